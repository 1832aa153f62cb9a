package Controllers

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"Convoy/Models"
	"Convoy/Planner"
	"Convoy/Scheduler"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// TripHandler contains handler methods for trip routes
type TripHandler struct {
	DB      *gorm.DB
	Service *Scheduler.Service
}

// NewTripHandler creates a new trip handler
func NewTripHandler(db *gorm.DB, service *Scheduler.Service) *TripHandler {
	return &TripHandler{
		DB:      db,
		Service: service,
	}
}

var kindColors = map[string]string{
	string(Planner.KindDirect): "#2563eb",
	string(Planner.KindMerged): "#f59e0b",
}

// TripEvent is one entry of the calendar feed.
type TripEvent struct {
	ID     uint      `json:"id"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Color  string    `json:"color"`
	Kind   string    `json:"kind"`
	Status string    `json:"status"`
}

// parseDay accepts RFC3339 or a bare date. A bare "to" date covers the whole
// day.
func parseDay(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// filteredTrips applies the shared query filters of the list, export and
// events endpoints.
func (h *TripHandler) filteredTrips(c *fiber.Ctx) (*gorm.DB, error) {
	query := h.DB.Model(&Models.Trip{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if runID := c.Query("plan_run_id"); runID != "" {
		query = query.Where("plan_run_id = ?", runID)
	}
	if raw := c.Query("vehicle_id"); raw != "" {
		vehicleID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vehicle_id %q", raw)
		}
		query = query.Where("vehicle_id = ?", vehicleID)
	}
	if raw := c.Query("from"); raw != "" {
		from, err := parseDay(raw, false)
		if err != nil {
			return nil, fmt.Errorf("invalid from date %q", raw)
		}
		query = query.Where("start_time >= ?", from)
	}
	if raw := c.Query("to"); raw != "" {
		to, err := parseDay(raw, true)
		if err != nil {
			return nil, fmt.Errorf("invalid to date %q", raw)
		}
		query = query.Where("start_time <= ?", to)
	}
	return query, nil
}

func (h *TripHandler) GetTrips(c *fiber.Ctx) error {
	query, err := h.filteredTrips(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	page, limit, offset := pagination(c)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to count trips"})
	}

	var trips []Models.Trip
	err = query.Preload("Vehicle").Preload("Driver").Preload("Site").
		Order("start_time DESC, group_no, id").
		Offset(offset).Limit(limit).
		Find(&trips).Error
	if err != nil {
		log.WithError(err).Error("list trips")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch trips"})
	}

	return c.JSON(fiber.Map{
		"data": trips,
		"meta": pageMeta(total, page, limit),
	})
}

func (h *TripHandler) GetTrip(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "trip")
	}

	var trip Models.Trip
	err := h.DB.Preload("Vehicle").Preload("Driver").Preload("Site").First(&trip, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Trip not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch trip"})
	}
	return c.JSON(fiber.Map{"data": trip})
}

func (h *TripHandler) CompleteTrip(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "trip")
	}

	trip, err := h.Service.CompleteTrip(c.UserContext(), id)
	if errors.Is(err, Scheduler.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Trip not found"})
	}
	if err != nil {
		log.WithError(err).Error("complete trip")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to complete trip"})
	}
	return c.JSON(fiber.Map{
		"message": "Trip marked as completed",
		"data":    trip,
	})
}

// RevertTrip deletes a trip and gives its counts back to the vehicle and
// driver.
func (h *TripHandler) RevertTrip(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "trip")
	}

	err := h.Service.RevertTrip(c.UserContext(), id)
	if errors.Is(err, Scheduler.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Trip not found"})
	}
	if err != nil {
		log.WithError(err).Error("revert trip")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to revert trip"})
	}
	return c.JSON(fiber.Map{"message": "Trip reverted successfully"})
}

// GetTripEvents returns trips in the shape calendar widgets expect.
func (h *TripHandler) GetTripEvents(c *fiber.Ctx) error {
	query, err := h.filteredTrips(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var trips []Models.Trip
	if err := query.Preload("Vehicle").Preload("Site").Order("start_time, id").Find(&trips).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch trips"})
	}

	events := make([]TripEvent, 0, len(trips))
	for _, t := range trips {
		events = append(events, TripEvent{
			ID:     t.ID,
			Title:  fmt.Sprintf("%s: %s", vehicleName(t), siteName(t)),
			Start:  t.StartTime,
			End:    t.EndTime,
			Color:  kindColors[t.Kind],
			Kind:   t.Kind,
			Status: t.Status,
		})
	}
	return c.JSON(events)
}

func vehicleName(t Models.Trip) string {
	if t.Vehicle != nil {
		return t.Vehicle.Name
	}
	return fmt.Sprintf("Vehicle #%d", t.VehicleID)
}

func siteName(t Models.Trip) string {
	if t.Site != nil {
		return t.Site.Name
	}
	return fmt.Sprintf("Site #%d", t.SiteID)
}

// ExportTrips writes the filtered trips to an xlsx sheet.
func (h *TripHandler) ExportTrips(c *fiber.Ctx) error {
	query, err := h.filteredTrips(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var trips []Models.Trip
	err = query.Preload("Vehicle").Preload("Driver").Preload("Site").
		Order("start_time, group_no, id").Find(&trips).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch trips"})
	}

	buf, err := tripsWorkbook(trips)
	if err != nil {
		log.WithError(err).Error("export trips")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to build export"})
	}

	filename := fmt.Sprintf("trips_export_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(buf.Bytes())
}

var exportHeaders = []string{
	"Trip ID", "Plan Run", "Group", "Kind", "Status", "Vehicle", "Driver",
	"Site", "Load", "Start", "End",
}

func tripsWorkbook(trips []Models.Trip) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Trips"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	for i, t := range trips {
		runID := ""
		if t.PlanRunID != nil {
			runID = *t.PlanRunID
		}
		driver := ""
		if t.Driver != nil {
			driver = t.Driver.Name
		}
		values := []interface{}{
			t.ID, runID, t.GroupNo, t.Kind, t.Status, vehicleName(t), driver,
			siteName(t), t.Load,
			t.StartTime.Format("2006-01-02 15:04"),
			t.EndTime.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(exportHeaders))
	f.SetColWidth(sheet, "A", last, 16)
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return &buf, nil
}
