package Controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"Convoy/Models"
	"Convoy/middleware"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// SnagNotifier tells someone about a newly submitted snag.
type SnagNotifier interface {
	NotifySnag(ctx context.Context, snag Models.Snag) error
}

// optionsTTL is how long dropdown data is served from memory.
const optionsTTL = time.Hour

const (
	optionSites      = "sites"
	optionCategories = "categories"
	optionUrgencies  = "urgency_levels"
)

// SnagHandler tracks defects reported against sites and vehicles.
// Dispatchers see and edit their own snags; admins see all of them.
type SnagHandler struct {
	DB *gorm.DB
	// Mailer emails the reporter; success sets email_sent. Chat posts to a
	// team channel. Either may be nil.
	Mailer SnagNotifier
	Chat   SnagNotifier

	options *ttlCache[[]SnagOption]
	now     func() time.Time
}

func NewSnagHandler(db *gorm.DB, mailer, chat SnagNotifier) *SnagHandler {
	return &SnagHandler{
		DB:      db,
		Mailer:  mailer,
		Chat:    chat,
		options: newTTLCache[[]SnagOption](optionsTTL),
		now:     time.Now,
	}
}

// SnagOption is one entry of a submission form dropdown.
type SnagOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Code  string `json:"code,omitempty"`
}

type snagInput struct {
	ReporterName string `json:"reporter_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	SiteID       *uint  `json:"site_id"`
	Location     string `json:"location" validate:"required_without=SiteID,max=200"`
	SiteCode     string `json:"site_code" validate:"max=50"`
	VehicleID    *uint  `json:"vehicle_id"`
	ReportDate   string `json:"report_date" validate:"required,datetime=2006-01-02"`
	Title        string `json:"title" validate:"required,max=150"`
	Category     string `json:"category" validate:"required,max=50"`
	Description  string `json:"description" validate:"required,max=2000"`
	Urgency      string `json:"urgency" validate:"required"`
	MediaLink    string `json:"media_link" validate:"omitempty,url"`
}

type snagStatusInput struct {
	Status string `json:"status" validate:"required"`
}

type snagCostInput struct {
	Cost          float64 `json:"cost" validate:"gte=0"`
	PaymentStatus string  `json:"payment_status"`
}

type snagNoteInput struct {
	Note string `json:"note" validate:"required,max=1000"`
}

// SnagStats summarises every snag the caller can see, ignoring filters.
type SnagStats struct {
	Total      int64   `json:"total"`
	Pending    int64   `json:"pending"`
	InProgress int64   `json:"in_progress"`
	Resolved   int64   `json:"resolved"`
	Critical   int64   `json:"critical"`
	TotalCost  float64 `json:"total_cost"`
}

func isAdmin(user Models.User) bool {
	return user.Permission >= Models.PermissionAdmin
}

func notLoggedIn(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not Logged In."})
}

// scoped limits a snag query to what user may see.
func (h *SnagHandler) scoped(user Models.User) *gorm.DB {
	query := h.DB.Model(&Models.Snag{})
	if !isAdmin(user) {
		query = query.Where("user_id = ?", user.ID)
	}
	return query
}

// load fetches the snag named by the id param and checks that user may
// touch it. It writes the error response itself and returns nil on failure.
func (h *SnagHandler) load(c *fiber.Ctx, user Models.User) (*Models.Snag, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, invalidID(c, "snag")
	}
	var snag Models.Snag
	err := h.DB.Preload("Site").Preload("Vehicle").First(&snag, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Snag not found"})
	}
	if err != nil {
		log.WithError(err).WithField("snag_id", id).Error("load snag")
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch snag"})
	}
	if !isAdmin(user) && snag.UserID != user.ID {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied."})
	}
	return &snag, nil
}

// SubmitSnag records a new snag, numbers it and notifies the reporter.
func (h *SnagHandler) SubmitSnag(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return notLoggedIn(c)
	}
	var in snagInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if !slices.Contains(Models.UrgencyLevels, in.Urgency) {
		return validationFailed(c, map[string]string{"urgency": "urgency must be one of Low, Medium, High, Critical"})
	}
	reported, _ := time.Parse("2006-01-02", in.ReportDate)

	snag := Models.Snag{
		ReporterName: in.ReporterName,
		Email:        in.Email,
		Location:     in.Location,
		SiteCode:     in.SiteCode,
		ReportDate:   reported,
		Title:        in.Title,
		Category:     in.Category,
		Description:  in.Description,
		Urgency:      in.Urgency,
		Score:        Models.UrgencyScore(in.Urgency),
		Status:       Models.SnagPending,
		MediaLink:    in.MediaLink,
		UserID:       user.ID,
	}

	if in.SiteID != nil {
		var site Models.Site
		if err := h.DB.First(&site, *in.SiteID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Site not found"})
		}
		snag.SiteID = &site.ID
		if snag.Location == "" {
			snag.Location = site.Name + " - " + site.Address
		}
	}
	if in.VehicleID != nil {
		var count int64
		if err := h.DB.Model(&Models.Vehicle{}).Where("id = ?", *in.VehicleID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vehicle not found"})
		}
		snag.VehicleID = in.VehicleID
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		code, err := Models.NextSnagCode(tx, h.now())
		if err != nil {
			return err
		}
		snag.SnagID = code
		return tx.Create(&snag).Error
	})
	if err != nil {
		log.WithError(err).Error("create snag")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Error submitting snag"})
	}
	h.options.Invalidate(optionCategories)

	h.notify(c.UserContext(), &snag)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Snag submitted successfully! ID: " + snag.SnagID,
		"data":    snag,
	})
}

// notify runs the configured notifiers. Failures are logged, never returned:
// the snag is already stored.
func (h *SnagHandler) notify(ctx context.Context, snag *Models.Snag) {
	fields := log.Fields{"snag_id": snag.SnagID}
	if h.Mailer != nil {
		if err := h.Mailer.NotifySnag(ctx, *snag); err != nil {
			log.WithError(err).WithFields(fields).Warn("snag email not sent")
		} else if err := h.DB.Model(snag).UpdateColumn("email_sent", true).Error; err != nil {
			log.WithError(err).WithFields(fields).Error("mark snag email sent")
		} else {
			snag.EmailSent = true
		}
	}
	if h.Chat != nil {
		if err := h.Chat.NotifySnag(ctx, *snag); err != nil {
			log.WithError(err).WithFields(fields).Warn("snag chat notice not sent")
		}
	}
}

// GetSnags is the snag dashboard: the filtered page, stats over everything
// visible and the values the filters can take.
func (h *SnagHandler) GetSnags(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return notLoggedIn(c)
	}

	filtered := func() (*gorm.DB, error) {
		query := h.scoped(user)
		if v := c.Query("site"); v != "" {
			query = query.Where("location LIKE ?", "%"+v+"%")
		}
		if v := c.Query("category"); v != "" {
			query = query.Where("category = ?", v)
		}
		if v := c.Query("urgency"); v != "" {
			query = query.Where("urgency = ?", v)
		}
		if v := c.Query("status"); v != "" {
			query = query.Where("status = ?", v)
		}
		for param, op := range map[string]string{"date_from": ">=", "date_to": "<="} {
			raw := c.Query(param)
			if raw == "" {
				continue
			}
			day, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return nil, fmt.Errorf("%s must be a date like 2006-01-02", param)
			}
			if op == "<=" {
				day = day.Add(24*time.Hour - time.Nanosecond)
			}
			query = query.Where("report_date "+op+" ?", day)
		}
		return query, nil
	}

	query, err := filtered()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	page, limit, offset := pagination(c)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to count snags"})
	}

	query, _ = filtered()
	var snags []Models.Snag
	err = query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&snags).Error
	if err != nil {
		log.WithError(err).Error("list snags")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch snags"})
	}

	stats, err := h.stats(user)
	if err != nil {
		log.WithError(err).Error("snag stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to compute snag stats"})
	}
	var locations, categories []string
	h.scoped(user).Distinct().Order("location").Pluck("location", &locations)
	h.scoped(user).Distinct().Order("category").Pluck("category", &categories)

	return c.JSON(fiber.Map{
		"data":  snags,
		"meta":  pageMeta(total, page, limit),
		"stats": stats,
		"filters": fiber.Map{
			"sites":          locations,
			"categories":     categories,
			"urgency_levels": Models.UrgencyLevels,
			"statuses":       Models.SnagStatuses,
		},
	})
}

func (h *SnagHandler) stats(user Models.User) (SnagStats, error) {
	var stats SnagStats
	err := h.scoped(user).Select(
		"COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS resolved, "+
			"COALESCE(SUM(CASE WHEN urgency = ? THEN 1 ELSE 0 END), 0) AS critical, "+
			"COALESCE(SUM(cost), 0) AS total_cost",
		Models.SnagPending, Models.SnagInProgress, Models.SnagResolved, "Critical",
	).Scan(&stats).Error
	return stats, err
}

func (h *SnagHandler) GetSnag(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return notLoggedIn(c)
	}
	snag, err := h.load(c, user)
	if snag == nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snag})
}

// UpdateStatus moves a snag through Pending, In Progress, Resolved and
// Closed. Resolving records who resolved it and when.
func (h *SnagHandler) UpdateStatus(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return notLoggedIn(c)
	}
	snag, err := h.load(c, user)
	if snag == nil {
		return err
	}
	var in snagStatusInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if !slices.Contains(Models.SnagStatuses, in.Status) {
		return validationFailed(c, map[string]string{"status": "status must be one of Pending, In Progress, Resolved, Closed"})
	}

	snag.SetStatus(in.Status, user.Username, h.now())
	err = h.DB.Model(snag).Updates(map[string]interface{}{
		"status":        snag.Status,
		"resolved_date": snag.ResolvedDate,
		"resolved_by":   snag.ResolvedBy,
	}).Error
	if err != nil {
		log.WithError(err).WithField("snag_id", snag.SnagID).Error("update snag status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update status"})
	}
	return c.JSON(fiber.Map{
		"message": "Status updated successfully!",
		"data":    snag,
	})
}

// UpdateCost sets the latest cost and payment status. Admin only.
func (h *SnagHandler) UpdateCost(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return notLoggedIn(c)
	}
	snag, err := h.load(c, user)
	if snag == nil {
		return err
	}
	var in snagCostInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = "Unpaid"
	}
	if !slices.Contains(Models.PaymentStatuses, in.PaymentStatus) {
		return validationFailed(c, map[string]string{"payment_status": "payment_status must be one of Unpaid, Partially Paid, Paid"})
	}

	snag.Cost = in.Cost
	snag.PaymentStatus = in.PaymentStatus
	err = h.DB.Model(snag).Updates(map[string]interface{}{
		"cost":           snag.Cost,
		"payment_status": snag.PaymentStatus,
	}).Error
	if err != nil {
		log.WithError(err).WithField("snag_id", snag.SnagID).Error("update snag cost")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update cost"})
	}
	return c.JSON(fiber.Map{
		"message": "Cost updated successfully!",
		"data":    snag,
	})
}

// AddNote appends a timestamped, signed entry to the snag's notes.
func (h *SnagHandler) AddNote(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return notLoggedIn(c)
	}
	snag, err := h.load(c, user)
	if snag == nil {
		return err
	}
	var in snagNoteInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	snag.AppendNote(user.Username, in.Note, h.now())
	if err := h.DB.Model(snag).UpdateColumn("notes", snag.Notes).Error; err != nil {
		log.WithError(err).WithField("snag_id", snag.SnagID).Error("add snag note")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to add note"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Note added successfully!",
		"data":    snag,
	})
}

// DeleteSnag removes a snag. Admin only.
func (h *SnagHandler) DeleteSnag(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidID(c, "snag")
	}
	res := h.DB.Delete(&Models.Snag{}, id)
	if res.Error != nil {
		log.WithError(res.Error).WithField("snag_id", id).Error("delete snag")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete snag"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Snag not found"})
	}
	h.options.Invalidate(optionCategories)
	return c.JSON(fiber.Map{"message": "Snag deleted successfully!"})
}

// GetOptions serves the submission form dropdowns from the cache.
func (h *SnagHandler) GetOptions(c *fiber.Ctx) error {
	sites, err := h.options.GetOrLoad(optionSites, h.siteOptions)
	if err != nil {
		log.WithError(err).Error("load site options")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load sites"})
	}
	categories, err := h.options.GetOrLoad(optionCategories, h.categoryOptions)
	if err != nil {
		log.WithError(err).Error("load category options")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load categories"})
	}
	urgencies, _ := h.options.GetOrLoad(optionUrgencies, urgencyOptions)

	return c.JSON(fiber.Map{"data": fiber.Map{
		optionSites:      sites,
		optionCategories: categories,
		optionUrgencies:  urgencies,
	}})
}

// ClearOptions drops the cached dropdown data. Admin only.
func (h *SnagHandler) ClearOptions(c *fiber.Ctx) error {
	h.options.Clear()
	return c.JSON(fiber.Map{"message": "Cache cleared"})
}

func (h *SnagHandler) siteOptions() ([]SnagOption, error) {
	var sites []Models.Site
	if err := h.DB.Select("id", "name", "address").Order("name").Find(&sites).Error; err != nil {
		return nil, err
	}
	out := make([]SnagOption, 0, len(sites))
	for _, s := range sites {
		label := s.Name
		if s.Address != "" {
			label = s.Name + " - " + s.Address
		}
		out = append(out, SnagOption{Value: s.Name, Label: label, Code: strconv.FormatUint(uint64(s.ID), 10)})
	}
	return out, nil
}

// categoryOptions lists the built-in categories followed by any others
// already used on snags.
func (h *SnagHandler) categoryOptions() ([]SnagOption, error) {
	var used []string
	if err := h.DB.Model(&Models.Snag{}).Distinct().Order("category").Pluck("category", &used).Error; err != nil {
		return nil, err
	}
	out := make([]SnagOption, 0, len(Models.SnagCategories)+len(used))
	for _, name := range Models.SnagCategories {
		out = append(out, SnagOption{Value: name, Label: name})
	}
	for _, name := range used {
		if name != "" && !slices.Contains(Models.SnagCategories, name) {
			out = append(out, SnagOption{Value: name, Label: name})
		}
	}
	return out, nil
}

func urgencyOptions() ([]SnagOption, error) {
	out := make([]SnagOption, 0, len(Models.UrgencyLevels))
	for _, level := range Models.UrgencyLevels {
		out = append(out, SnagOption{Value: level, Label: level, Code: strconv.Itoa(Models.UrgencyScore(level))})
	}
	return out, nil
}

// ExportSnags downloads every visible snag as an xlsx workbook.
func (h *SnagHandler) ExportSnags(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return notLoggedIn(c)
	}
	var snags []Models.Snag
	if err := h.scoped(user).Order("created_at DESC, id DESC").Find(&snags).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch snags"})
	}

	buf, err := snagsWorkbook(snags)
	if err != nil {
		log.WithError(err).Error("export snags")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to build export"})
	}

	filename := fmt.Sprintf("snags_export_%s.xlsx", h.now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(buf.Bytes())
}

var snagExportHeaders = []string{
	"Snag ID", "Timestamp", "Reporter", "Email", "Location", "Site Code",
	"Date of Report", "Title", "Category", "Description", "Urgency", "Score",
	"Status", "Cost", "Payment Status", "Media Link", "Notes", "Resolved Date",
	"Resolved By",
}

func snagsWorkbook(snags []Models.Snag) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Snags"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := f.SetSheetRow(sheet, "A1", &snagExportHeaders); err != nil {
		return nil, fmt.Errorf("error writing headers: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FDE68A"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	for i, s := range snags {
		resolved := ""
		if s.ResolvedDate != nil {
			resolved = s.ResolvedDate.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			s.SnagID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.ReporterName, s.Email,
			s.Location, s.SiteCode, s.ReportDate.Format("2006-01-02"), s.Title, s.Category,
			s.Description, s.Urgency, s.Score, s.Status, s.Cost, s.PaymentStatus,
			s.MediaLink, s.Notes, resolved, s.ResolvedBy,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("error writing snag %s: %w", s.SnagID, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(snagExportHeaders))
	f.SetColWidth(sheet, "A", last, 18)
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return &buf, nil
}
