package Models

import (
	"Convoy/Planner"

	"gorm.io/gorm"
)

type Vehicle struct {
	gorm.Model
	Name         string  `json:"name" validate:"required,max=100"`
	Capacity     float64 `json:"capacity" validate:"gte=0"`
	LowClearance bool    `json:"low_clearance"`
	Oversized    bool    `json:"oversized"`
	Tall         bool    `json:"tall"`
	Status       string  `json:"status" gorm:"default:Active;index" validate:"omitempty,oneof=Active Maintenance"`
	TripCount    int     `json:"trip_count" gorm:"default:0"`

	AssignedDriverID *uint   `json:"assigned_driver_id" gorm:"index"`
	AssignedDriver   *Driver `json:"assigned_driver,omitempty" gorm:"foreignKey:AssignedDriverID" validate:"-"`

	MaintenanceLogs []MaintenanceLog `json:"maintenance_logs,omitempty" gorm:"foreignKey:VehicleID" validate:"-"`
}

func (v Vehicle) ToPlanner() Planner.Vehicle {
	return Planner.Vehicle{
		ID:           v.ID,
		Name:         v.Name,
		Capacity:     v.Capacity,
		LowClearance: v.LowClearance,
		Oversized:    v.Oversized,
		Tall:         v.Tall,
		Status:       Planner.VehicleStatus(v.Status),
		DriverID:     v.AssignedDriverID,
		TripCount:    v.TripCount,
	}
}

type Driver struct {
	gorm.Model
	Name          string `json:"name" validate:"required,max=100"`
	LicenseNumber string `json:"license_number" validate:"required,max=50"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	Status        string `json:"status" gorm:"default:Active;index" validate:"omitempty,oneof=Active Inactive"`
	TripCount     int    `json:"trip_count" gorm:"default:0"`
}

func (d Driver) ToPlanner() Planner.Driver {
	return Planner.Driver{
		ID:        d.ID,
		Name:      d.Name,
		Status:    Planner.DriverStatus(d.Status),
		TripCount: d.TripCount,
	}
}

// Site is a delivery destination. Its flags mirror the vehicle flags.
type Site struct {
	gorm.Model
	Name       string  `json:"name" validate:"required,max=100"`
	Address    string  `json:"address" validate:"required,max=200"`
	DistanceKm float64 `json:"distance_km" validate:"gte=0"`
	HighDock   bool    `json:"high_dock"`
	NarrowGate bool    `json:"narrow_gate"`
	LowWires   bool    `json:"low_wires"`
}

func (s Site) ToPlanner() Planner.Site {
	return Planner.Site{
		ID:         s.ID,
		Name:       s.Name,
		DistanceKm: s.DistanceKm,
		HighDock:   s.HighDock,
		NarrowGate: s.NarrowGate,
		LowWires:   s.LowWires,
	}
}
