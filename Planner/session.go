package Planner

import (
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// epsilon absorbs float drift when comparing loads against capacity.
const epsilon = 1e-9

// Result is the outcome of one planning run. Counter maps hold increments,
// not absolute values.
type Result struct {
	Start             time.Time    `json:"start_time"`
	Orders            int          `json:"orders"`
	Trips             []Trip       `json:"trips"`
	VehicleIncrements map[uint]int `json:"vehicle_increments"`
	DriverIncrements  map[uint]int `json:"driver_increments"`
	Diagnostics       []Diagnostic `json:"diagnostics"`
}

func (r *Result) AllocatedVolume() float64 {
	var total float64
	for _, t := range r.Trips {
		total += t.Load
	}
	return total
}

func (r *Result) DroppedVolume() float64 {
	var total float64
	for _, d := range r.Diagnostics {
		if d.Volume > 0 && !math.IsInf(d.Volume, 0) {
			total += d.Volume
		}
	}
	return total
}

// Groups counts dispatches: one per direct trip, one per merged bundle.
func (r *Result) Groups() int {
	seen := make(map[int]struct{})
	for _, t := range r.Trips {
		seen[t.Group] = struct{}{}
	}
	return len(seen)
}

func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d trips generated", len(r.Trips))
	if len(r.Diagnostics) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, ", %d skipped:", len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "\n- %.2f to site %d: %s", d.Volume, d.SiteID, d.Reason)
	}
	return b.String()
}

type session struct {
	fleet     Fleet
	policy    Policy
	rotation  *Rotation
	start     time.Time
	group     int
	fragments []Fragment
	res       *Result
}

// Run plans one batch of orders against fleet. It fails only when the policy
// is invalid or no vehicle is eligible; every other problem becomes a
// diagnostic on the result.
func Run(f Fleet, p Policy, orders []Order, start time.Time) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("plan: invalid policy: %w", err)
	}
	rotation := NewRotation(f)
	if rotation.Empty() {
		return nil, ErrNoEligibleVehicles
	}

	s := &session{
		fleet:    f,
		policy:   p,
		rotation: rotation,
		start:    start,
		res: &Result{
			Start:             start,
			Orders:            len(orders),
			VehicleIncrements: make(map[uint]int),
			DriverIncrements:  make(map[uint]int),
		},
	}

	for _, o := range orders {
		site, ok := f.GetSite(o.SiteID)
		if !ok {
			s.drop(CodeUnknownSite, Site{ID: o.SiteID}, o.Volume, fmt.Sprintf("site %d does not exist", o.SiteID))
			continue
		}
		if !(o.Volume > epsilon) || math.IsInf(o.Volume, 1) {
			s.drop(CodeInvalidVolume, site, o.Volume, fmt.Sprintf("invalid volume %v", o.Volume))
			continue
		}
		s.allocateDirect(o, site)
	}
	log.WithFields(log.Fields{
		"orders":    len(orders),
		"pool":      len(rotation.pool),
		"trips":     len(s.res.Trips),
		"fragments": len(s.fragments),
	}).Debug("direct pass complete")

	s.consolidate()
	log.WithFields(log.Fields{
		"trips":       len(s.res.Trips),
		"diagnostics": len(s.res.Diagnostics),
		"cursor":      rotation.Cursor(),
	}).Debug("consolidation pass complete")

	return s.res, nil
}

// emit records one dispatch of v carrying parts, and bumps the counters once.
func (s *session) emit(v Vehicle, d Driver, parts []Fragment, kind TripKind) {
	s.group++
	for _, part := range parts {
		driverID := d.ID
		s.res.Trips = append(s.res.Trips, Trip{
			VehicleID: v.ID,
			DriverID:  &driverID,
			SiteID:    part.Site.ID,
			Load:      part.Volume,
			Start:     s.start,
			End:       EndTime(s.start, part.Site, kind, s.policy),
			Status:    TripScheduled,
			Kind:      kind,
			Group:     s.group,
		})
	}
	s.res.VehicleIncrements[v.ID]++
	s.res.DriverIncrements[d.ID]++
}

func (s *session) drop(code DiagnosticCode, site Site, volume float64, reason string) {
	s.res.Diagnostics = append(s.res.Diagnostics, Diagnostic{
		Code:     code,
		SiteID:   site.ID,
		SiteName: site.Name,
		Volume:   volume,
		Reason:   reason,
	})
}
