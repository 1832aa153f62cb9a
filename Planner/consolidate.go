package Planner

import (
	"fmt"
	"math"
	"sort"
)

// consolidate bundles fragments onto shared vehicles, nearest sites first.
// A fragment is never split across vehicles.
func (s *session) consolidate() {
	total := len(s.fragments)
	failures := 0
	lastCode := CodeNoActiveDriver

	for len(s.fragments) > 0 {
		sort.SliceStable(s.fragments, func(i, j int) bool {
			return s.fragments[i].Site.DistanceKm < s.fragments[j].Site.DistanceKm
		})
		base := s.fragments[0]

		subset := s.rotation.CompatibleWith(base.Site)
		if len(subset) == 0 {
			s.drop(CodeNoCompatibleVehicle, base.Site, base.Volume, fmt.Sprintf("no compatible vehicle for site %s", base.Site.Name))
			s.fragments = s.fragments[1:]
			failures = 0
			continue
		}

		v, _ := s.rotation.Next(subset)
		d, ok := activeDriver(s.fleet, v)
		switch {
		case !ok:
			lastCode = CodeNoActiveDriver
		case base.Volume > v.Capacity+epsilon:
			lastCode = CodeExceedsCapacity
		default:
			s.emit(v, d, s.bundle(v, base), KindMerged)
			failures = 0
			continue
		}

		// The base stays in the pool for the next attempt. Every compatible
		// vehicle gets at least one try before the fragment is given up.
		failures++
		if failures >= max(total, len(subset)) {
			reason := fmt.Sprintf("no compatible vehicle with an active driver for site %s", base.Site.Name)
			if lastCode == CodeExceedsCapacity {
				reason = fmt.Sprintf("no available vehicle can carry %.2f to site %s", base.Volume, base.Site.Name)
			}
			s.drop(lastCode, base.Site, base.Volume, reason)
			s.fragments = s.fragments[1:]
			failures = 0
		}
	}
}

// bundle removes and returns every fragment v can take together with base:
// compatible, within capacity, and within the proximity window of base.
func (s *session) bundle(v Vehicle, base Fragment) []Fragment {
	var taken, rest []Fragment
	var load float64
	for _, f := range s.fragments {
		fits := load+f.Volume <= v.Capacity+epsilon
		near := math.Abs(f.Site.DistanceKm-base.Site.DistanceKm) <= s.policy.ProximityKm
		if ok, _ := Compatible(v, f.Site); ok && fits && near {
			taken = append(taken, f)
			load += f.Volume
			continue
		}
		rest = append(rest, f)
	}
	s.fragments = rest
	return taken
}
