package Planner

import (
	"fmt"
	"math"
	"time"
)

// ScheduleSingle validates one explicit assignment and builds its Direct
// trip. Each rule violation returns its own sentinel error.
func ScheduleSingle(f Fleet, p Policy, vehicleID, siteID uint, load float64, start time.Time) (Trip, error) {
	v, ok := f.GetVehicle(vehicleID)
	if !ok {
		return Trip{}, fmt.Errorf("%w: id %d", ErrUnknownVehicle, vehicleID)
	}
	site, ok := f.GetSite(siteID)
	if !ok {
		return Trip{}, fmt.Errorf("%w: id %d", ErrUnknownSite, siteID)
	}
	if !(load > 0) || math.IsInf(load, 1) {
		return Trip{}, ErrInvalidLoad
	}
	if load > v.Capacity {
		return Trip{}, fmt.Errorf("%w: %.2f requested, %s holds %.2f", ErrCapacityExceeded, load, v.Name, v.Capacity)
	}
	if ok, reason := Compatible(v, site); !ok {
		return Trip{}, fmt.Errorf("%w: %s", ErrIncompatible, reason)
	}
	if v.Status == VehicleMaintenance {
		return Trip{}, fmt.Errorf("%w: %s", ErrVehicleInMaintenance, v.Name)
	}
	d, ok := activeDriver(f, v)
	if !ok {
		return Trip{}, fmt.Errorf("%w: %s", ErrNoActiveDriver, v.Name)
	}

	driverID := d.ID
	return Trip{
		VehicleID: v.ID,
		DriverID:  &driverID,
		SiteID:    site.ID,
		Load:      load,
		Start:     start,
		End:       EndTime(start, site, KindDirect, p),
		Status:    TripScheduled,
		Kind:      KindDirect,
		Group:     1,
	}, nil
}

// DecrementFloor lowers a trip counter by one without going below zero.
func DecrementFloor(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
