package Models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Snag is a defect reported at a site or on a vehicle, tracked until it is
// resolved and paid for.
type Snag struct {
	gorm.Model
	SnagID       string    `json:"snag_id" gorm:"size:20;uniqueIndex"`
	ReporterName string    `json:"reporter_name"`
	Email        string    `json:"email"`
	SiteID       *uint     `json:"site_id" gorm:"index"`
	Location     string    `json:"location" gorm:"index"`
	SiteCode     string    `json:"site_code"`
	VehicleID    *uint     `json:"vehicle_id" gorm:"index"`
	ReportDate   time.Time `json:"report_date" gorm:"index"`
	Title        string    `json:"title"`
	Category     string    `json:"category" gorm:"index"`
	Description  string    `json:"description"`
	Urgency      string    `json:"urgency" gorm:"index"`
	Score        int       `json:"score"`
	Status       string    `json:"status" gorm:"default:Pending;index"`

	Cost          float64 `json:"cost" gorm:"default:0"`
	PaymentStatus string  `json:"payment_status" gorm:"default:Unpaid"`

	EmailSent    bool       `json:"email_sent"`
	MediaLink    string     `json:"media_link"`
	Notes        string     `json:"notes"`
	ResolvedDate *time.Time `json:"resolved_date"`
	ResolvedBy   string     `json:"resolved_by"`

	UserID uint `json:"user_id" gorm:"index"`

	Site    *Site    `json:"site,omitempty" gorm:"foreignKey:SiteID"`
	Vehicle *Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

const (
	SnagPending    = "Pending"
	SnagInProgress = "In Progress"
	SnagResolved   = "Resolved"
	SnagClosed     = "Closed"
)

var (
	SnagStatuses    = []string{SnagPending, SnagInProgress, SnagResolved, SnagClosed}
	UrgencyLevels   = []string{"Low", "Medium", "High", "Critical"}
	PaymentStatuses = []string{"Unpaid", "Partially Paid", "Paid"}

	// SnagCategories is offered when no snag has used another category yet.
	SnagCategories = []string{
		"Electrical", "Plumbing", "Structural", "HVAC", "Safety", "Lighting",
		"Flooring", "Doors/Windows", "Painting", "Equipment", "Other",
	}
)

var urgencyScores = map[string]int{"Low": 1, "Medium": 2, "High": 3, "Critical": 4}

// UrgencyScore ranks an urgency level from 1 (Low) to 4 (Critical). Unknown
// levels score 0.
func UrgencyScore(level string) int {
	return urgencyScores[level]
}

// SnagCode formats the public id of the seq-th snag ever reported, e.g.
// SNag-20250602-0007.
func SnagCode(reported time.Time, seq int64) string {
	return fmt.Sprintf("SNag-%s-%04d", reported.Format("20060102"), seq)
}

// NextSnagCode numbers a new snag after every snag ever stored, deleted ones
// included, so codes are never reused. Call it inside the transaction that
// creates the snag.
func NextSnagCode(tx *gorm.DB, now time.Time) (string, error) {
	var n int64
	if err := tx.Unscoped().Model(&Snag{}).Count(&n).Error; err != nil {
		return "", fmt.Errorf("count snags: %w", err)
	}
	return SnagCode(now, n+1), nil
}

// AppendNote adds a "[2006-01-02 15:04] author: text" entry to the snag's
// notes, separated from earlier entries by a blank line.
func (s *Snag) AppendNote(author, text string, at time.Time) {
	entry := fmt.Sprintf("[%s] %s: %s", at.Format("2006-01-02 15:04"), author, strings.TrimSpace(text))
	if s.Notes == "" {
		s.Notes = entry
		return
	}
	s.Notes += "\n\n" + entry
}

// SetStatus moves the snag to status. Resolving stamps who and when.
func (s *Snag) SetStatus(status, by string, at time.Time) {
	s.Status = status
	if status == SnagResolved {
		s.ResolvedDate = &at
		s.ResolvedBy = by
	}
}
