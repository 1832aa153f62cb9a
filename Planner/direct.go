package Planner

import (
	"fmt"
	"math"
)

// allocateDirect splits one order into full or near-full loads. A
// sub-threshold remainder is parked as a fragment for consolidation.
func (s *session) allocateDirect(o Order, site Site) {
	subset := s.rotation.CompatibleWith(site)
	if len(subset) == 0 {
		s.drop(CodeNoCompatibleVehicle, site, o.Volume, fmt.Sprintf("no compatible vehicle for site %s", site.Name))
		return
	}

	remaining := o.Volume
	skips, trips := 0, 0
	for remaining > epsilon {
		if trips >= s.policy.MaxTripsPerOrder {
			s.drop(CodeTripLimit, site, remaining, fmt.Sprintf("order to site %s needs more than %d trips", site.Name, s.policy.MaxTripsPerOrder))
			return
		}
		v, _ := s.rotation.Next(subset)
		d, ok := activeDriver(s.fleet, v)
		if !ok {
			skips++
			if skips >= len(subset) {
				s.drop(CodeNoActiveDriver, site, remaining, fmt.Sprintf("no compatible vehicle with an active driver for site %s", site.Name))
				return
			}
			continue
		}
		skips = 0

		if remaining+epsilon < s.policy.FullLoadThreshold*v.Capacity {
			s.fragments = append(s.fragments, Fragment{Site: site, Volume: remaining})
			return
		}
		load := math.Min(remaining, v.Capacity)
		s.emit(v, d, []Fragment{{Site: site, Volume: load}}, KindDirect)
		remaining -= load
		trips++
	}
}
