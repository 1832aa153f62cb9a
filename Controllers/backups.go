package Controllers

import (
	"time"

	"Convoy/CronJobs"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// BackupHandler exposes the database backup job to admins. Job is nil when
// the store is not sqlite.
type BackupHandler struct {
	Job *CronJobs.BackupJob
}

func NewBackupHandler(job *CronJobs.BackupJob) *BackupHandler {
	return &BackupHandler{Job: job}
}

type scheduleInput struct {
	Schedule string `json:"schedule" validate:"required"`
}

func (h *BackupHandler) disabled(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Backups are only available for the sqlite store"})
}

func (h *BackupHandler) status() fiber.Map {
	status := fiber.Map{"schedule": h.Job.Schedule()}
	if next := h.Job.Next(); !next.IsZero() {
		status["next_run"] = next.Format(time.RFC3339)
	}
	return status
}

func (h *BackupHandler) GetSchedule(c *fiber.Ctx) error {
	if h.Job == nil {
		return h.disabled(c)
	}
	return c.JSON(fiber.Map{"data": h.status()})
}

func (h *BackupHandler) UpdateSchedule(c *fiber.Ctx) error {
	if h.Job == nil {
		return h.disabled(c)
	}
	var in scheduleInput
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	if err := h.Job.UpdateSchedule(in.Schedule); err != nil {
		return validationFailed(c, map[string]string{"schedule": err.Error()})
	}
	return c.JSON(fiber.Map{
		"message": "Backup schedule updated",
		"data":    h.status(),
	})
}

// CreateBackup takes a copy right now.
func (h *BackupHandler) CreateBackup(c *fiber.Ctx) error {
	if h.Job == nil {
		return h.disabled(c)
	}
	path, err := h.Job.Backup(c.UserContext(), "MANUAL")
	if err != nil {
		log.WithError(err).Error("manual backup")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Backup failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Backup written",
		"data":    fiber.Map{"path": path},
	})
}
