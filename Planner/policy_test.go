package Planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	p := DefaultPolicy()
	site := Site{DistanceKm: 30}

	assert.Equal(t, 2*time.Hour, Duration(site, KindDirect, p))
	assert.Equal(t, 3*time.Hour, Duration(site, KindMerged, p))
	assert.Equal(t, time.Hour, Duration(Site{}, KindDirect, p))
	assert.Equal(t, runStart.Add(90*time.Minute), EndTime(runStart, Site{DistanceKm: 15}, KindDirect, p))
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name   string
		mutate func(p *Policy)
	}{
		{"zero threshold", func(p *Policy) { p.FullLoadThreshold = 0 }},
		{"threshold above one", func(p *Policy) { p.FullLoadThreshold = 1.2 }},
		{"negative window", func(p *Policy) { p.ProximityKm = -1 }},
		{"zero speed", func(p *Policy) { p.SpeedKmh = 0 }},
		{"negative overhead", func(p *Policy) { p.MergedOverheadHours = -2 }},
		{"no trip limit", func(p *Policy) { p.MaxTripsPerOrder = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
