package Scheduler

import (
	"errors"
	"fmt"

	"Convoy/Metrics"
	"Convoy/Models"
	"Convoy/Planner"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Service runs the planner against the store and owns every write that
// touches trips or trip counters.
type Service struct {
	DB      *gorm.DB
	Lock    RunLock
	Policy  Planner.Policy
	Metrics *Metrics.Recorder
}

func NewService(db *gorm.DB, lock RunLock, policy Planner.Policy, recorder *Metrics.Recorder) *Service {
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Service{
		DB:      db,
		Lock:    lock,
		Policy:  policy,
		Metrics: recorder,
	}
}

// LoadSnapshot reads the whole fleet in id order.
func LoadSnapshot(db *gorm.DB) (*Planner.Snapshot, error) {
	var vehicles []Models.Vehicle
	if err := db.Order("id").Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	var drivers []Models.Driver
	if err := db.Order("id").Find(&drivers).Error; err != nil {
		return nil, fmt.Errorf("load drivers: %w", err)
	}
	var sites []Models.Site
	if err := db.Order("id").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	return snapshotOf(vehicles, drivers, sites), nil
}

// loadAssignment reads just the records one single-order request needs.
func loadAssignment(db *gorm.DB, vehicleID, siteID uint) (*Planner.Snapshot, error) {
	var vehicles []Models.Vehicle
	if err := db.Where("id = ?", vehicleID).Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("load vehicle: %w", err)
	}
	var drivers []Models.Driver
	if len(vehicles) == 1 && vehicles[0].AssignedDriverID != nil {
		if err := db.Where("id = ?", *vehicles[0].AssignedDriverID).Find(&drivers).Error; err != nil {
			return nil, fmt.Errorf("load driver: %w", err)
		}
	}
	var sites []Models.Site
	if err := db.Where("id = ?", siteID).Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("load site: %w", err)
	}
	return snapshotOf(vehicles, drivers, sites), nil
}

func snapshotOf(vehicles []Models.Vehicle, drivers []Models.Driver, sites []Models.Site) *Planner.Snapshot {
	pv := make([]Planner.Vehicle, len(vehicles))
	for i, v := range vehicles {
		pv[i] = v.ToPlanner()
	}
	pd := make([]Planner.Driver, len(drivers))
	for i, d := range drivers {
		pd[i] = d.ToPlanner()
	}
	ps := make([]Planner.Site, len(sites))
	for i, s := range sites {
		ps[i] = s.ToPlanner()
	}
	return Planner.NewSnapshot(pv, pd, ps)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
