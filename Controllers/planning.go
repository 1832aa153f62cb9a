package Controllers

import (
	"errors"
	"time"

	"Convoy/Models"
	"Convoy/Planner"
	"Convoy/Scheduler"
	"Convoy/middleware"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PlanningHandler struct {
	DB      *gorm.DB
	Service *Scheduler.Service
}

func NewPlanningHandler(db *gorm.DB, service *Scheduler.Service) *PlanningHandler {
	return &PlanningHandler{DB: db, Service: service}
}

// Orders with unknown sites or non-positive volumes are not rejected here;
// the run reports them as diagnostics. Volumes above one million units are.
type orderInput struct {
	SiteID uint    `json:"site_id"`
	Volume float64 `json:"volume" validate:"lte=1000000"`
}

type planInput struct {
	StartTime time.Time    `json:"start_time" validate:"required"`
	Orders    []orderInput `json:"orders" validate:"required,min=1,dive"`
}

type singleInput struct {
	VehicleID uint      `json:"vehicle_id" validate:"required"`
	SiteID    uint      `json:"site_id" validate:"required"`
	Load      float64   `json:"load"`
	StartTime time.Time `json:"start_time" validate:"required"`
}

// CreatePlan runs one batch planning session and commits its trips.
func (h *PlanningHandler) CreatePlan(c *fiber.Ctx) error {
	var in planInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	orders := make([]Planner.Order, len(in.Orders))
	for i, o := range in.Orders {
		orders[i] = Planner.Order{SiteID: o.SiteID, Volume: o.Volume}
	}
	req := Scheduler.PlanRequest{StartTime: in.StartTime, Orders: orders}
	if user, ok := middleware.CurrentUser(c); ok {
		id := user.ID
		req.UserID = &id
	}

	outcome, err := h.Service.RunPlan(c.UserContext(), req)
	switch {
	case errors.Is(err, Scheduler.ErrPlanningInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Another planning run is in progress",
		})
	case errors.Is(err, Planner.ErrNoEligibleVehicles):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "No eligible vehicles: check vehicle status, capacity and driver assignments",
			"error":   Planner.ErrNoEligibleVehicles.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Planning run failed, nothing was saved",
		})
	}

	diagnostics := outcome.Result.Diagnostics
	if diagnostics == nil {
		diagnostics = []Planner.Diagnostic{}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     outcome.Run.Summary,
		"data":        outcome.Run,
		"diagnostics": diagnostics,
	})
}

func (h *PlanningHandler) GetPlans(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	var total int64
	if err := h.DB.Model(&Models.PlanRun{}).Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to count plan runs"})
	}
	var runs []Models.PlanRun
	if err := h.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&runs).Error; err != nil {
		log.WithError(err).Error("list plan runs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch plan runs"})
	}
	return c.JSON(fiber.Map{
		"data": runs,
		"meta": pageMeta(total, page, limit),
	})
}

func (h *PlanningHandler) GetPlan(c *fiber.Ctx) error {
	var run Models.PlanRun
	err := h.DB.Preload("Trips", func(db *gorm.DB) *gorm.DB { return db.Order("group_no, id") }).
		Preload("Trips.Vehicle").
		Preload("Trips.Site").
		First(&run, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Plan run not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch plan run"})
	}
	return c.JSON(fiber.Map{"data": run})
}

// ScheduleTrip books one explicit vehicle/site/load assignment. Every rule
// violation gets its own message.
func (h *PlanningHandler) ScheduleTrip(c *fiber.Ctx) error {
	var in singleInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	trip, err := h.Service.ScheduleSingle(c.UserContext(), Scheduler.SingleRequest{
		VehicleID: in.VehicleID,
		SiteID:    in.SiteID,
		Load:      in.Load,
		StartTime: in.StartTime,
	})
	if err != nil {
		status, message := scheduleError(err)
		if status == fiber.StatusInternalServerError {
			log.WithError(err).Error("schedule trip")
		}
		return c.Status(status).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Trip scheduled successfully",
		"data":    trip,
	})
}

func scheduleError(err error) (int, string) {
	switch {
	case errors.Is(err, Planner.ErrUnknownVehicle):
		return fiber.StatusNotFound, "Vehicle not found"
	case errors.Is(err, Planner.ErrUnknownSite):
		return fiber.StatusNotFound, "Site not found"
	case errors.Is(err, Planner.ErrInvalidLoad):
		return fiber.StatusUnprocessableEntity, "Load must be greater than zero"
	case errors.Is(err, Planner.ErrCapacityExceeded):
		return fiber.StatusUnprocessableEntity, "Load exceeds vehicle capacity"
	case errors.Is(err, Planner.ErrIncompatible):
		return fiber.StatusUnprocessableEntity, "Vehicle cannot serve this site"
	case errors.Is(err, Planner.ErrVehicleInMaintenance):
		return fiber.StatusUnprocessableEntity, "Vehicle is under maintenance"
	case errors.Is(err, Planner.ErrNoActiveDriver):
		return fiber.StatusUnprocessableEntity, "Vehicle has no active driver"
	case errors.Is(err, Scheduler.ErrPlanningInProgress):
		return fiber.StatusConflict, "A planning run is in progress, try again shortly"
	}
	return fiber.StatusInternalServerError, "Failed to schedule trip"
}
