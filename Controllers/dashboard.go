package Controllers

import (
	"Convoy/Models"
	"Convoy/Planner"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	DB *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{DB: db}
}

type DashboardStats struct {
	TotalVehicles       int64   `json:"total_vehicles"`
	AvailableVehicles   int64   `json:"available_vehicles"`
	MaintenanceVehicles int64   `json:"maintenance_vehicles"`
	ActiveDrivers       int64   `json:"active_drivers"`
	ScheduledTrips      int64   `json:"scheduled_trips"`
	MaintenanceCost     float64 `json:"maintenance_cost"`
}

func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	var stats DashboardStats
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Models.Vehicle{}).Count(&stats.TotalVehicles).Error; err != nil {
			return err
		}
		if err := tx.Model(&Models.Vehicle{}).Where("status = ?", Planner.VehicleActive).Count(&stats.AvailableVehicles).Error; err != nil {
			return err
		}
		if err := tx.Model(&Models.Vehicle{}).Where("status = ?", Planner.VehicleMaintenance).Count(&stats.MaintenanceVehicles).Error; err != nil {
			return err
		}
		if err := tx.Model(&Models.Driver{}).Where("status = ?", Planner.DriverActive).Count(&stats.ActiveDrivers).Error; err != nil {
			return err
		}
		if err := tx.Model(&Models.Trip{}).Where("status = ?", Planner.TripScheduled).Count(&stats.ScheduledTrips).Error; err != nil {
			return err
		}
		return tx.Model(&Models.MaintenanceLog{}).Select("COALESCE(SUM(cost), 0)").Row().Scan(&stats.MaintenanceCost)
	})
	if err != nil {
		log.WithError(err).Error("dashboard stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load dashboard"})
	}
	return c.JSON(fiber.Map{"data": stats})
}
