package Models

import (
	"time"

	"Convoy/Planner"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Trip is one scheduled delivery. Rows of a merged dispatch share
// PlanRunID, VehicleID, StartTime and GroupNo.
type Trip struct {
	gorm.Model
	PlanRunID *string   `json:"plan_run_id" gorm:"size:36;index"`
	VehicleID uint      `json:"vehicle_id" gorm:"index;not null"`
	DriverID  *uint     `json:"driver_id" gorm:"index"`
	SiteID    uint      `json:"site_id" gorm:"index;not null"`
	Load      float64   `json:"load"`
	StartTime time.Time `json:"start_time" gorm:"index"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status" gorm:"default:Scheduled;index"`
	Kind      string    `json:"kind" gorm:"default:Direct"`
	GroupNo   int       `json:"group_no"`

	// Relationships
	Vehicle *Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
	Driver  *Driver  `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Site    *Site    `json:"site,omitempty" gorm:"foreignKey:SiteID"`
}

func (Trip) TableName() string {
	return "trips"
}

// NewTrip converts an engine trip into a row ready to insert.
func NewTrip(t Planner.Trip, runID *string) Trip {
	return Trip{
		PlanRunID: runID,
		VehicleID: t.VehicleID,
		DriverID:  t.DriverID,
		SiteID:    t.SiteID,
		Load:      t.Load,
		StartTime: t.Start,
		EndTime:   t.End,
		Status:    string(t.Status),
		Kind:      string(t.Kind),
		GroupNo:   t.Group,
	}
}

// PlanRun records one committed batch planning run.
type PlanRun struct {
	ID              string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt       time.Time      `json:"created_at"`
	StartTime       time.Time      `json:"start_time"`
	Orders          int            `json:"orders"`
	TripCount       int            `json:"trip_count"`
	Groups          int            `json:"groups"`
	AllocatedVolume float64        `json:"allocated_volume"`
	DroppedVolume   float64        `json:"dropped_volume"`
	Diagnostics     datatypes.JSON `json:"diagnostics"`
	Summary         string         `json:"summary"`
	CreatedBy       *uint          `json:"created_by"`

	Trips []Trip `json:"trips,omitempty" gorm:"foreignKey:PlanRunID"`
}
