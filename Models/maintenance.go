package Models

import (
	"time"

	"gorm.io/gorm"
)

type MaintenanceLog struct {
	gorm.Model
	VehicleID   uint      `json:"vehicle_id" gorm:"index;not null" validate:"required"`
	ServiceType string    `json:"service_type" validate:"required,max=100"`
	Cost        float64   `json:"cost" validate:"gte=0"`
	Date        time.Time `json:"date"`
	Notes       string    `json:"notes" validate:"max=200"`
}
