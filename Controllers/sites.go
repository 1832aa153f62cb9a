package Controllers

import (
	"errors"
	"strconv"

	"Convoy/Models"
	"Convoy/Planner"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultSiteDistanceKm = 10

type SiteHandler struct {
	DB *gorm.DB
}

func NewSiteHandler(db *gorm.DB) *SiteHandler {
	return &SiteHandler{DB: db}
}

// siteInput leaves distance_km nil when omitted so 0 km stays expressible.
type siteInput struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Address    string   `json:"address" validate:"required,max=200"`
	DistanceKm *float64 `json:"distance_km" validate:"omitempty,gte=0"`
	HighDock   bool     `json:"high_dock"`
	NarrowGate bool     `json:"narrow_gate"`
	LowWires   bool     `json:"low_wires"`
}

var siteColumns = []string{"Name", "Address", "DistanceKm", "HighDock", "NarrowGate", "LowWires"}

func (in siteInput) apply(s *Models.Site) {
	s.Name = in.Name
	s.Address = in.Address
	s.DistanceKm = defaultSiteDistanceKm
	if in.DistanceKm != nil {
		s.DistanceKm = *in.DistanceKm
	}
	s.HighDock = in.HighDock
	s.NarrowGate = in.NarrowGate
	s.LowWires = in.LowWires
}

func (h *SiteHandler) GetSites(c *fiber.Ctx) error {
	var sites []Models.Site
	if err := h.DB.Order("distance_km, id").Find(&sites).Error; err != nil {
		log.WithError(err).Error("list sites")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch sites"})
	}
	return c.JSON(fiber.Map{"data": sites})
}

func (h *SiteHandler) CreateSite(c *fiber.Ctx) error {
	var in siteInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	var site Models.Site
	in.apply(&site)
	if err := h.DB.Select(siteColumns).Create(&site).Error; err != nil {
		log.WithError(err).Error("create site")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create site"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Site created successfully",
		"data":    site,
	})
}

func (h *SiteHandler) UpdateSite(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "site")
	}

	var site Models.Site
	if err := h.DB.First(&site, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Site not found"})
	}

	var in siteInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	in.apply(&site)
	if err := h.DB.Model(&site).Select(siteColumns).Updates(&site).Error; err != nil {
		log.WithError(err).WithField("site_id", id).Error("update site")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update site"})
	}
	return c.JSON(fiber.Map{
		"message": "Site updated successfully",
		"data":    site,
	})
}

func (h *SiteHandler) DeleteSite(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "site")
	}

	res := h.DB.Delete(&Models.Site{}, id)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete site"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Site not found"})
	}
	return c.JSON(fiber.Map{"message": "Site deleted successfully"})
}

// CheckCompatibility answers whether ?vehicle_id= can serve the site, with
// the checker's reason.
func (h *SiteHandler) CheckCompatibility(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "site")
	}
	vehicleID, err := strconv.ParseUint(c.Query("vehicle_id"), 10, 64)
	if err != nil || vehicleID == 0 {
		return invalidID(c, "vehicle")
	}

	var site Models.Site
	if err := h.DB.First(&site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Site not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch site"})
	}
	var vehicle Models.Vehicle
	if err := h.DB.First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vehicle not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch vehicle"})
	}

	compatible, reason := Planner.Compatible(vehicle.ToPlanner(), site.ToPlanner())
	return c.JSON(fiber.Map{
		"compatible": compatible,
		"reason":     reason,
	})
}
