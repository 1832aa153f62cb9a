package Planner

import "sort"

// Rotation hands out vehicles round-robin from the eligibility pool of one
// run. The cursor is shared by the direct and consolidation passes.
type Rotation struct {
	pool   []Vehicle
	cursor int
}

// NewRotation computes the eligibility pool once and orders it by trip count.
// Ties keep fetch order.
func NewRotation(f Fleet) *Rotation {
	var pool []Vehicle
	for _, v := range f.Vehicles() {
		if v.Status != VehicleActive || v.Capacity <= 0 {
			continue
		}
		if _, ok := activeDriver(f, v); !ok {
			continue
		}
		pool = append(pool, v)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].TripCount < pool[j].TripCount
	})
	return &Rotation{pool: pool}
}

func (r *Rotation) Pool() []Vehicle {
	return append([]Vehicle(nil), r.pool...)
}

func (r *Rotation) Empty() bool { return len(r.pool) == 0 }

// CompatibleWith filters the pool against site, keeping rotation order.
func (r *Rotation) CompatibleWith(site Site) []Vehicle {
	var subset []Vehicle
	for _, v := range r.pool {
		if ok, _ := Compatible(v, site); ok {
			subset = append(subset, v)
		}
	}
	return subset
}

// Next returns subset[cursor % len(subset)] and advances the cursor whether
// or not the caller ends up using the vehicle.
func (r *Rotation) Next(subset []Vehicle) (Vehicle, bool) {
	if len(subset) == 0 {
		return Vehicle{}, false
	}
	v := subset[r.cursor%len(subset)]
	r.cursor++
	return v, true
}

func (r *Rotation) Cursor() int { return r.cursor }
