package Planner

import (
	"errors"
	"math"
	"time"
)

// Policy holds the tunable constants of the allocation heuristic.
type Policy struct {
	FullLoadThreshold   float64 `json:"full_load_threshold"`
	ProximityKm         float64 `json:"proximity_km"`
	SpeedKmh            float64 `json:"speed_kmh"`
	DirectOverheadHours float64 `json:"direct_overhead_hours"`
	MergedOverheadHours float64 `json:"merged_overhead_hours"`
	// MaxTripsPerOrder caps the Direct trips one order may produce. Volume
	// left over once the cap is reached is dropped with CodeTripLimit.
	MaxTripsPerOrder int `json:"max_trips_per_order"`
}

func DefaultPolicy() Policy {
	return Policy{
		FullLoadThreshold:   0.8,
		ProximityKm:         10,
		SpeedKmh:            30,
		DirectOverheadHours: 1,
		MergedOverheadHours: 2,
		MaxTripsPerOrder:    200,
	}
}

func (p Policy) Validate() error {
	var errs []error
	if p.FullLoadThreshold <= 0 || p.FullLoadThreshold > 1 {
		errs = append(errs, errors.New("full_load_threshold must be in (0, 1]"))
	}
	if p.ProximityKm < 0 {
		errs = append(errs, errors.New("proximity_km must not be negative"))
	}
	if p.SpeedKmh <= 0 {
		errs = append(errs, errors.New("speed_kmh must be positive"))
	}
	if p.DirectOverheadHours < 0 || p.MergedOverheadHours < 0 {
		errs = append(errs, errors.New("overhead hours must not be negative"))
	}
	if p.MaxTripsPerOrder <= 0 {
		errs = append(errs, errors.New("max_trips_per_order must be positive"))
	}
	return errors.Join(errs...)
}

// Duration estimates how long a trip to site takes: travel at SpeedKmh plus
// the fixed overhead of its kind.
func Duration(site Site, kind TripKind, p Policy) time.Duration {
	overhead := p.DirectOverheadHours
	if kind == KindMerged {
		overhead = p.MergedOverheadHours
	}
	hours := site.DistanceKm/p.SpeedKmh + overhead
	return time.Duration(math.Round(hours * float64(time.Hour)))
}

func EndTime(start time.Time, site Site, kind TripKind, p Policy) time.Time {
	return start.Add(Duration(site, kind, p))
}
