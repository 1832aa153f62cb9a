package Planner

import "time"

type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "Active"
	VehicleMaintenance VehicleStatus = "Maintenance"
)

type DriverStatus string

const (
	DriverActive   DriverStatus = "Active"
	DriverInactive DriverStatus = "Inactive"
)

type TripKind string

const (
	KindDirect TripKind = "Direct"
	KindMerged TripKind = "Merged"
)

type TripStatus string

const (
	TripScheduled TripStatus = "Scheduled"
	TripCompleted TripStatus = "Completed"
)

// Vehicle is the engine's view of a fleet vehicle.
type Vehicle struct {
	ID           uint          `json:"id"`
	Name         string        `json:"name"`
	Capacity     float64       `json:"capacity"`
	LowClearance bool          `json:"low_clearance"`
	Oversized    bool          `json:"oversized"`
	Tall         bool          `json:"tall"`
	Status       VehicleStatus `json:"status"`
	DriverID     *uint         `json:"driver_id"`
	TripCount    int           `json:"trip_count"`
}

type Driver struct {
	ID        uint         `json:"id"`
	Name      string       `json:"name"`
	Status    DriverStatus `json:"status"`
	TripCount int          `json:"trip_count"`
}

// Site is a delivery destination. Its flags are the dual of the vehicle flags.
type Site struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
	HighDock   bool    `json:"high_dock"`
	NarrowGate bool    `json:"narrow_gate"`
	LowWires   bool    `json:"low_wires"`
}

type Order struct {
	SiteID uint    `json:"site_id"`
	Volume float64 `json:"volume"`
}

// Fragment is the sub-threshold remainder of an order after the direct pass.
type Fragment struct {
	Site   Site
	Volume float64
}

// Trip is one emitted assignment. Rows of a merged bundle share Group.
type Trip struct {
	VehicleID uint       `json:"vehicle_id"`
	DriverID  *uint      `json:"driver_id"`
	SiteID    uint       `json:"site_id"`
	Load      float64    `json:"load"`
	Start     time.Time  `json:"start_time"`
	End       time.Time  `json:"end_time"`
	Status    TripStatus `json:"status"`
	Kind      TripKind   `json:"kind"`
	Group     int        `json:"group"`
}
