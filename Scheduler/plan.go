package Scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"Convoy/Metrics"
	"Convoy/Models"
	"Convoy/Planner"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanRequest struct {
	StartTime time.Time
	Orders    []Planner.Order
	UserID    *uint
}

type PlanOutcome struct {
	Run    Models.PlanRun
	Result *Planner.Result
}

// RunPlan plans one batch and commits the run record, its trips and every
// counter increment in a single transaction. Nothing is written when the
// planner rejects the batch or any write fails.
func (s *Service) RunPlan(ctx context.Context, req PlanRequest) (*PlanOutcome, error) {
	started := time.Now()
	release, err := s.Lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrPlanningInProgress) {
			s.Metrics.ObserveRun(Metrics.OutcomeBusy, nil, time.Since(started))
		}
		return nil, err
	}
	defer release()

	db := s.DB.WithContext(ctx)
	snapshot, err := LoadSnapshot(db)
	if err != nil {
		s.Metrics.ObserveRun(Metrics.OutcomeStoreError, nil, time.Since(started))
		return nil, fmt.Errorf("run plan: %w", err)
	}

	res, err := Planner.Run(snapshot, s.Policy, req.Orders, req.StartTime)
	if err != nil {
		s.Metrics.ObserveRun(Metrics.OutcomeRejected, nil, time.Since(started))
		log.WithError(err).WithField("orders", len(req.Orders)).Warn("planning run rejected")
		return nil, fmt.Errorf("run plan: %w", err)
	}

	diagnostics := res.Diagnostics
	if diagnostics == nil {
		diagnostics = []Planner.Diagnostic{}
	}
	raw, err := json.Marshal(diagnostics)
	if err != nil {
		return nil, fmt.Errorf("run plan: encode diagnostics: %w", err)
	}

	run := Models.PlanRun{
		ID:              uuid.NewString(),
		StartTime:       req.StartTime,
		Orders:          res.Orders,
		TripCount:       len(res.Trips),
		Groups:          res.Groups(),
		AllocatedVolume: res.AllocatedVolume(),
		DroppedVolume:   res.DroppedVolume(),
		Diagnostics:     datatypes.JSON(raw),
		Summary:         res.Summary(),
		CreatedBy:       req.UserID,
	}
	trips := make([]Models.Trip, len(res.Trips))
	for i, t := range res.Trips {
		trips[i] = Models.NewTrip(t, &run.ID)
	}

	if err := s.commitRun(db, &run, trips, res); err != nil {
		s.Metrics.ObserveRun(Metrics.OutcomeStoreError, nil, time.Since(started))
		log.WithError(err).WithField("run_id", run.ID).Error("planning run rolled back")
		return nil, fmt.Errorf("run plan: %w", err)
	}

	run.Trips = trips
	s.Metrics.ObserveRun(Metrics.OutcomeSuccess, res, time.Since(started))
	log.WithFields(log.Fields{
		"run_id":      run.ID,
		"orders":      run.Orders,
		"trips":       run.TripCount,
		"diagnostics": len(res.Diagnostics),
	}).Info("planning run committed")

	return &PlanOutcome{Run: run, Result: res}, nil
}

func (s *Service) commitRun(db *gorm.DB, run *Models.PlanRun, trips []Models.Trip, res *Planner.Result) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Create(run).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("create plan run: %w", err)
	}
	if len(trips) > 0 {
		if err := tx.Create(&trips).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("create trips: %w", err)
		}
	}
	if err := incrementCounters(tx, &Models.Vehicle{}, res.VehicleIncrements); err != nil {
		tx.Rollback()
		return fmt.Errorf("update vehicle counters: %w", err)
	}
	if err := incrementCounters(tx, &Models.Driver{}, res.DriverIncrements); err != nil {
		tx.Rollback()
		return fmt.Errorf("update driver counters: %w", err)
	}

	return tx.Commit().Error
}

// incrementCounters applies relative updates in id order so concurrent
// writers lock rows in the same sequence.
func incrementCounters(tx *gorm.DB, model interface{}, increments map[uint]int) error {
	ids := make([]uint, 0, len(increments))
	for id := range increments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		err := tx.Model(model).Where("id = ?", id).
			UpdateColumn("trip_count", gorm.Expr("trip_count + ?", increments[id])).Error
		if err != nil {
			return err
		}
	}
	return nil
}

type SingleRequest struct {
	VehicleID uint
	SiteID    uint
	Load      float64
	StartTime time.Time
}

// ScheduleSingle books one explicit trip. Rule violations come back as the
// Planner sentinel errors and leave the store untouched.
func (s *Service) ScheduleSingle(ctx context.Context, req SingleRequest) (*Models.Trip, error) {
	release, err := s.Lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	db := s.DB.WithContext(ctx)
	snapshot, err := loadAssignment(db, req.VehicleID, req.SiteID)
	if err != nil {
		return nil, fmt.Errorf("schedule trip: %w", err)
	}
	planned, err := Planner.ScheduleSingle(snapshot, s.Policy, req.VehicleID, req.SiteID, req.Load, req.StartTime)
	if err != nil {
		return nil, err
	}

	trip := Models.NewTrip(planned, nil)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trip).Error; err != nil {
			return fmt.Errorf("create trip: %w", err)
		}
		if err := incrementCounters(tx, &Models.Vehicle{}, map[uint]int{planned.VehicleID: 1}); err != nil {
			return fmt.Errorf("update vehicle counter: %w", err)
		}
		return incrementCounters(tx, &Models.Driver{}, map[uint]int{*planned.DriverID: 1})
	})
	if err != nil {
		return nil, fmt.Errorf("schedule trip: %w", err)
	}

	s.Metrics.ObserveTrips(planned)
	log.WithFields(log.Fields{
		"trip_id":    trip.ID,
		"vehicle_id": trip.VehicleID,
		"site_id":    trip.SiteID,
	}).Info("trip scheduled")
	return &trip, nil
}
