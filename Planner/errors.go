package Planner

import "errors"

var (
	// ErrNoEligibleVehicles aborts a batch run before anything is planned.
	ErrNoEligibleVehicles = errors.New("no eligible vehicles: every vehicle is in maintenance, has no capacity, or lacks an active driver")

	ErrUnknownVehicle       = errors.New("vehicle not found")
	ErrUnknownSite          = errors.New("site not found")
	ErrInvalidLoad          = errors.New("load must be a positive number")
	ErrCapacityExceeded     = errors.New("load exceeds vehicle capacity")
	ErrIncompatible         = errors.New("vehicle is not compatible with site")
	ErrVehicleInMaintenance = errors.New("vehicle is under maintenance")
	ErrNoActiveDriver       = errors.New("vehicle has no active driver assigned")
)

type DiagnosticCode string

const (
	CodeNoCompatibleVehicle DiagnosticCode = "no_compatible_vehicle"
	CodeNoActiveDriver      DiagnosticCode = "no_active_driver"
	CodeExceedsCapacity     DiagnosticCode = "exceeds_capacity"
	CodeUnknownSite         DiagnosticCode = "unknown_site"
	CodeInvalidVolume       DiagnosticCode = "invalid_volume"
	CodeTripLimit           DiagnosticCode = "exceeds_trip_limit"
)

// Diagnostic records volume that a run could not place and why.
type Diagnostic struct {
	Code     DiagnosticCode `json:"code"`
	SiteID   uint           `json:"site_id"`
	SiteName string         `json:"site_name,omitempty"`
	Volume   float64        `json:"volume"`
	Reason   string         `json:"reason"`
}
