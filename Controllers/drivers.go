package Controllers

import (
	"Convoy/Models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DriverHandler struct {
	DB *gorm.DB
}

func NewDriverHandler(db *gorm.DB) *DriverHandler {
	return &DriverHandler{DB: db}
}

type driverInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	LicenseNumber string `json:"license_number" validate:"required,max=50"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	Status        string `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

var driverColumns = []string{"Name", "LicenseNumber", "Phone", "Status"}

func (in driverInput) apply(d *Models.Driver) {
	d.Name = in.Name
	d.LicenseNumber = in.LicenseNumber
	d.Phone = in.Phone
	d.Status = in.Status
	if d.Status == "" {
		d.Status = "Active"
	}
}

func (h *DriverHandler) GetDrivers(c *fiber.Ctx) error {
	query := h.DB.Model(&Models.Driver{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var drivers []Models.Driver
	if err := query.Order("id").Find(&drivers).Error; err != nil {
		log.WithError(err).Error("list drivers")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch drivers"})
	}
	return c.JSON(fiber.Map{"data": drivers})
}

func (h *DriverHandler) CreateDriver(c *fiber.Ctx) error {
	var in driverInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	var driver Models.Driver
	in.apply(&driver)
	if err := h.DB.Select(driverColumns).Create(&driver).Error; err != nil {
		log.WithError(err).Error("create driver")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create driver"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Driver created successfully",
		"data":    driver,
	})
}

func (h *DriverHandler) UpdateDriver(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "driver")
	}

	var driver Models.Driver
	if err := h.DB.First(&driver, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Driver not found"})
	}

	var in driverInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	in.apply(&driver)
	if err := h.DB.Model(&driver).Select(driverColumns).Updates(&driver).Error; err != nil {
		log.WithError(err).WithField("driver_id", id).Error("update driver")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update driver"})
	}
	return c.JSON(fiber.Map{
		"message": "Driver updated successfully",
		"data":    driver,
	})
}

// DeleteDriver removes the driver and unassigns it from any vehicle.
func (h *DriverHandler) DeleteDriver(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "driver")
	}

	var deleted int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&Models.Driver{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		if deleted == 0 {
			return nil
		}
		return tx.Model(&Models.Vehicle{}).Where("assigned_driver_id = ?", id).
			Update("assigned_driver_id", nil).Error
	})
	if err != nil {
		log.WithError(err).WithField("driver_id", id).Error("delete driver")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete driver"})
	}
	if deleted == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Driver not found"})
	}
	return c.JSON(fiber.Map{"message": "Driver deleted successfully"})
}
