package Controllers

import (
	"errors"

	"Convoy/Models"
	"Convoy/Scheduler"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type VehicleHandler struct {
	DB      *gorm.DB
	Service *Scheduler.Service
}

func NewVehicleHandler(db *gorm.DB, service *Scheduler.Service) *VehicleHandler {
	return &VehicleHandler{DB: db, Service: service}
}

// vehicleInput is what clients may set on a vehicle. trip_count is owned by
// the scheduler.
type vehicleInput struct {
	Name             string  `json:"name" validate:"required,max=100"`
	Capacity         float64 `json:"capacity" validate:"gte=0"`
	LowClearance     bool    `json:"low_clearance"`
	Oversized        bool    `json:"oversized"`
	Tall             bool    `json:"tall"`
	Status           string  `json:"status" validate:"omitempty,oneof=Active Maintenance"`
	AssignedDriverID *uint   `json:"assigned_driver_id"`
}

var vehicleColumns = []string{"Name", "Capacity", "LowClearance", "Oversized", "Tall", "Status", "AssignedDriverID"}

func (in vehicleInput) apply(v *Models.Vehicle) {
	v.Name = in.Name
	v.Capacity = in.Capacity
	v.LowClearance = in.LowClearance
	v.Oversized = in.Oversized
	v.Tall = in.Tall
	v.Status = in.Status
	if v.Status == "" {
		v.Status = "Active"
	}
	v.AssignedDriverID = in.AssignedDriverID
}

func (h *VehicleHandler) driverExists(id *uint) (bool, error) {
	if id == nil {
		return true, nil
	}
	var count int64
	err := h.DB.Model(&Models.Driver{}).Where("id = ?", *id).Count(&count).Error
	return count > 0, err
}

func (h *VehicleHandler) GetVehicles(c *fiber.Ctx) error {
	query := h.DB.Model(&Models.Vehicle{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var vehicles []Models.Vehicle
	if err := query.Preload("AssignedDriver").Order("id").Find(&vehicles).Error; err != nil {
		log.WithError(err).Error("list vehicles")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch vehicles",
		})
	}
	return c.JSON(fiber.Map{"data": vehicles})
}

func (h *VehicleHandler) GetVehicle(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "vehicle")
	}

	var vehicle Models.Vehicle
	err := h.DB.Preload("AssignedDriver").
		Preload("MaintenanceLogs", func(db *gorm.DB) *gorm.DB { return db.Order("date DESC") }).
		First(&vehicle, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vehicle not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch vehicle"})
	}
	return c.JSON(fiber.Map{"data": vehicle})
}

func (h *VehicleHandler) CreateVehicle(c *fiber.Ctx) error {
	var in vehicleInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	exists, err := h.driverExists(in.AssignedDriverID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to check driver"})
	}
	if !exists {
		return validationFailed(c, map[string]string{"assigned_driver_id": "assigned_driver_id does not exist"})
	}

	var vehicle Models.Vehicle
	in.apply(&vehicle)
	if err := h.DB.Select(vehicleColumns).Create(&vehicle).Error; err != nil {
		log.WithError(err).Error("create vehicle")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create vehicle"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Vehicle created successfully",
		"data":    vehicle,
	})
}

func (h *VehicleHandler) UpdateVehicle(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "vehicle")
	}

	var vehicle Models.Vehicle
	if err := h.DB.First(&vehicle, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vehicle not found"})
	}

	var in vehicleInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	exists, err := h.driverExists(in.AssignedDriverID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to check driver"})
	}
	if !exists {
		return validationFailed(c, map[string]string{"assigned_driver_id": "assigned_driver_id does not exist"})
	}

	in.apply(&vehicle)
	if err := h.DB.Model(&vehicle).Select(vehicleColumns).Updates(&vehicle).Error; err != nil {
		log.WithError(err).WithField("vehicle_id", id).Error("update vehicle")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update vehicle"})
	}
	return c.JSON(fiber.Map{
		"message": "Vehicle updated successfully",
		"data":    vehicle,
	})
}

func (h *VehicleHandler) DeleteVehicle(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "vehicle")
	}

	res := h.DB.Delete(&Models.Vehicle{}, id)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete vehicle"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vehicle not found"})
	}
	return c.JSON(fiber.Map{"message": "Vehicle deleted successfully"})
}

// ToggleStatus flips a vehicle between Active and Maintenance.
func (h *VehicleHandler) ToggleStatus(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "vehicle")
	}

	vehicle, err := h.Service.ToggleVehicleStatus(c.UserContext(), id)
	if errors.Is(err, Scheduler.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vehicle not found"})
	}
	if err != nil {
		log.WithError(err).Error("toggle vehicle status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update vehicle status"})
	}
	return c.JSON(fiber.Map{
		"message": "Vehicle is now " + vehicle.Status,
		"data":    vehicle,
	})
}
