package Metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"Convoy/Planner"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveRun(t *testing.T) {
	r := NewRecorder()
	res := &Planner.Result{
		Trips: []Planner.Trip{
			{Kind: Planner.KindDirect},
			{Kind: Planner.KindMerged},
			{Kind: Planner.KindMerged},
		},
		Diagnostics: []Planner.Diagnostic{{Code: Planner.CodeNoCompatibleVehicle}},
	}

	r.ObserveRun(OutcomeSuccess, res, 40*time.Millisecond)
	r.ObserveRun(OutcomeRejected, nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trips.WithLabelValues("Direct")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.trips.WithLabelValues("Merged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dropped.WithLabelValues("no_compatible_vehicle")))

	families, err := r.Registry.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "convoy_plan_duration_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRun(OutcomeSuccess, &Planner.Result{}, time.Second)
		r.ObserveTrips(Planner.Trip{Kind: Planner.KindDirect})
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveTrips(Planner.Trip{Kind: Planner.KindDirect})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `convoy_trips_emitted_total{kind="Direct"} 1`)
}
