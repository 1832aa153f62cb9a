package Planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleFleet(mutate func(v *Vehicle, d *Driver, s *Site)) Fleet {
	v := truck(1, 10, 1)
	v.Name = "T-01"
	d := Driver{ID: 1, Status: DriverActive}
	s := Site{ID: 1, Name: "Mall", DistanceKm: 45}
	if mutate != nil {
		mutate(&v, &d, &s)
	}
	return NewSnapshot([]Vehicle{v}, []Driver{d}, []Site{s})
}

func TestScheduleSingle(t *testing.T) {
	trip, err := ScheduleSingle(singleFleet(nil), DefaultPolicy(), 1, 1, 8, runStart)
	require.NoError(t, err)

	assert.Equal(t, KindDirect, trip.Kind)
	assert.Equal(t, TripScheduled, trip.Status)
	assert.InDelta(t, 8, trip.Load, 1e-9)
	require.NotNil(t, trip.DriverID)
	assert.Equal(t, uint(1), *trip.DriverID)
	assert.Equal(t, runStart.Add(150*time.Minute), trip.End)
}

func TestScheduleSingle_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *Vehicle, d *Driver, s *Site)
		vehicle uint
		site    uint
		load    float64
		want    error
		message string
	}{
		{"scenario D capacity", nil, 1, 1, 15, ErrCapacityExceeded, "T-01 holds 10.00"},
		{"unknown vehicle", nil, 7, 1, 5, ErrUnknownVehicle, ""},
		{"unknown site", nil, 1, 7, 5, ErrUnknownSite, ""},
		{"zero load", nil, 1, 1, 0, ErrInvalidLoad, ""},
		{"incompatible", func(v *Vehicle, d *Driver, s *Site) { v.Tall, s.LowWires = true, true }, 1, 1, 5, ErrIncompatible, "too TALL for Mall"},
		{"maintenance", func(v *Vehicle, d *Driver, s *Site) { v.Status = VehicleMaintenance }, 1, 1, 5, ErrVehicleInMaintenance, ""},
		{"inactive driver", func(v *Vehicle, d *Driver, s *Site) { d.Status = DriverInactive }, 1, 1, 5, ErrNoActiveDriver, ""},
		{"no driver", func(v *Vehicle, d *Driver, s *Site) { v.DriverID = nil }, 1, 1, 5, ErrNoActiveDriver, ""},
		{"capacity checked before constraints", func(v *Vehicle, d *Driver, s *Site) {
			v.Oversized, s.NarrowGate, v.Status = true, true, VehicleMaintenance
		}, 1, 1, 11, ErrCapacityExceeded, ""},
		{"constraints checked before maintenance", func(v *Vehicle, d *Driver, s *Site) {
			v.Oversized, s.NarrowGate, v.Status = true, true, VehicleMaintenance
		}, 1, 1, 5, ErrIncompatible, ""},
		{"maintenance checked before driver", func(v *Vehicle, d *Driver, s *Site) {
			v.Status, d.Status = VehicleMaintenance, DriverInactive
		}, 1, 1, 5, ErrVehicleInMaintenance, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip, err := ScheduleSingle(singleFleet(tt.mutate), DefaultPolicy(), tt.vehicle, tt.site, tt.load, runStart)
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, trip)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestDecrementFloor(t *testing.T) {
	assert.Equal(t, 2, DecrementFloor(3))
	assert.Equal(t, 0, DecrementFloor(1))
	assert.Equal(t, 0, DecrementFloor(0))
	assert.Equal(t, 0, DecrementFloor(-4))
}
