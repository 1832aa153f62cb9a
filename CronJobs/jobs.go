package CronJobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BackupJob copies the sqlite database into a backup directory on a
// schedule and on demand.
type BackupJob struct {
	cronScheduler *cron.Cron
	db            *gorm.DB
	source        string
	dir           string
	keep          int
	now           func() time.Time

	mu       sync.Mutex
	schedule string
	jobID    cron.EntryID
}

// NewBackupJob creates a backup job. Copies taken while the server runs go
// through db with VACUUM INTO; source is the database file copied at startup
// and shutdown when no connection is open. schedule uses the six-field cron
// format with seconds, e.g. "0 0 2 * * *" for 02:00:00 every day. keep bounds
// how many scheduled copies are retained; 0 keeps them all.
func NewBackupJob(db *gorm.DB, source, dir, schedule string, keep int) *BackupJob {
	return &BackupJob{
		cronScheduler: cron.New(cron.WithSeconds()),
		db:            db,
		source:        source,
		dir:           dir,
		schedule:      schedule,
		keep:          keep,
		now:           time.Now,
	}
}

// Start registers the scheduled copy and starts the scheduler.
func (b *BackupJob) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	b.jobID, err = b.cronScheduler.AddFunc(b.schedule, b.scheduled)
	if err != nil {
		return fmt.Errorf("error scheduling backup job: %w", err)
	}
	b.cronScheduler.Start()
	log.WithFields(log.Fields{
		"schedule": b.schedule,
		"dir":      b.dir,
		"next_run": b.cronScheduler.Entry(b.jobID).Next,
	}).Info("backup scheduler started")
	return nil
}

// Stop terminates the scheduler and waits for a running copy to finish.
func (b *BackupJob) Stop() {
	if b.cronScheduler != nil {
		<-b.cronScheduler.Stop().Done()
		log.Println("Backup scheduler stopped")
	}
}

// UpdateSchedule changes the schedule of the backup job. A schedule that
// does not parse leaves the current one in place.
func (b *BackupJob) UpdateSchedule(schedule string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, err := b.cronScheduler.AddFunc(schedule, b.scheduled)
	if err != nil {
		return fmt.Errorf("error updating backup schedule: %w", err)
	}
	b.cronScheduler.Remove(b.jobID)
	b.jobID = id
	b.schedule = schedule
	log.WithFields(log.Fields{
		"schedule": schedule,
		"next_run": b.cronScheduler.Entry(id).Next,
	}).Info("backup schedule updated")
	return nil
}

func (b *BackupJob) Schedule() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.schedule
}

// Next reports when the scheduled copy runs next. It is zero before Start.
func (b *BackupJob) Next() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cronScheduler.Entry(b.jobID).Next
}

func (b *BackupJob) scheduled() {
	if _, err := b.Backup(context.Background(), "SCHEDULED"); err != nil {
		log.WithError(err).Error("scheduled backup failed")
		return
	}
	if err := b.prune("SCHEDULED"); err != nil {
		log.WithError(err).Warn("pruning old backups failed")
	}
}

func (b *BackupJob) target(event string) (string, error) {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	name := fmt.Sprintf("convoy_%s_%s.db", event, b.now().Format("2006-01-02_15-04-05"))
	return filepath.Join(b.dir, name), nil
}

// Backup writes a consistent copy of the open database with VACUUM INTO,
// so it is safe while requests are writing. Without a connection it falls
// back to Snapshot.
func (b *BackupJob) Backup(ctx context.Context, event string) (string, error) {
	if b.db == nil {
		return b.Snapshot(event)
	}
	dest, err := b.target(event)
	if err != nil {
		return "", err
	}
	// VACUUM INTO refuses to overwrite.
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("backup %s already exists", dest)
	}
	if err := b.db.WithContext(ctx).Exec("VACUUM INTO ?", dest).Error; err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	log.WithFields(log.Fields{"event": event, "path": dest}).Info("backup written")
	return dest, nil
}

// Snapshot copies the database file byte for byte, naming the copy after
// event. Use it only while no connection writes to the file, i.e. before
// the server starts or after it has closed the database. It returns the path
// of the copy, or "" when there is no database file yet.
func (b *BackupJob) Snapshot(event string) (string, error) {
	src, err := os.Open(b.source)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("source", b.source).Warn("no database file to back up")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open database file: %w", err)
	}
	defer src.Close()

	dest, err := b.target(event)
	if err != nil {
		return "", err
	}
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("copy database: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close backup file: %w", err)
	}

	log.WithFields(log.Fields{"event": event, "path": dest}).Info("backup written")
	return dest, nil
}

// prune removes the oldest copies of event beyond the retention limit.
func (b *BackupJob) prune(event string) error {
	if b.keep <= 0 {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(b.dir, "convoy_"+event+"_*.db"))
	if err != nil {
		return err
	}
	if len(matches) <= b.keep {
		return nil
	}
	// Timestamps in the names sort chronologically.
	sort.Strings(matches)
	var errs []error
	for _, old := range matches[:len(matches)-b.keep] {
		if err := os.Remove(old); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
