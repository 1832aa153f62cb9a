package Controllers

import (
	"strconv"
	"time"

	"Convoy/Models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type MaintenanceHandler struct {
	DB *gorm.DB
}

func NewMaintenanceHandler(db *gorm.DB) *MaintenanceHandler {
	return &MaintenanceHandler{DB: db}
}

type maintenanceInput struct {
	VehicleID   uint       `json:"vehicle_id" validate:"required"`
	ServiceType string     `json:"service_type" validate:"required,max=100"`
	Cost        float64    `json:"cost" validate:"gte=0"`
	Date        *time.Time `json:"date"`
	Notes       string     `json:"notes" validate:"max=200"`
}

// GetLogs lists maintenance logs, newest first, optionally for one vehicle.
func (h *MaintenanceHandler) GetLogs(c *fiber.Ctx) error {
	query := h.DB.Model(&Models.MaintenanceLog{})
	if raw := c.Query("vehicle_id"); raw != "" {
		vehicleID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return invalidID(c, "vehicle")
		}
		query = query.Where("vehicle_id = ?", vehicleID)
	}

	var logs []Models.MaintenanceLog
	if err := query.Order("date DESC, id DESC").Find(&logs).Error; err != nil {
		log.WithError(err).Error("list maintenance logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch maintenance logs"})
	}
	return c.JSON(fiber.Map{"data": logs})
}

func (h *MaintenanceHandler) CreateLog(c *fiber.Ctx) error {
	var in maintenanceInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	var count int64
	if err := h.DB.Model(&Models.Vehicle{}).Where("id = ?", in.VehicleID).Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to check vehicle"})
	}
	if count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vehicle not found"})
	}

	entry := Models.MaintenanceLog{
		VehicleID:   in.VehicleID,
		ServiceType: in.ServiceType,
		Cost:        in.Cost,
		Date:        time.Now(),
		Notes:       in.Notes,
	}
	if in.Date != nil {
		entry.Date = *in.Date
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		log.WithError(err).Error("create maintenance log")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create maintenance log"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Maintenance log created successfully",
		"data":    entry,
	})
}

func (h *MaintenanceHandler) DeleteLog(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "maintenance log")
	}

	res := h.DB.Delete(&Models.MaintenanceLog{}, id)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete maintenance log"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Maintenance log not found"})
	}
	return c.JSON(fiber.Map{"message": "Maintenance log deleted successfully"})
}
