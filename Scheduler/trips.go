package Scheduler

import (
	"context"
	"fmt"

	"Convoy/Models"
	"Convoy/Planner"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// floorDecrement lowers trip_count by one, never below zero.
var floorDecrement = gorm.Expr("CASE WHEN trip_count > 0 THEN trip_count - 1 ELSE 0 END")

// CompleteTrip moves a trip to Completed. Completed is terminal, so a repeat
// call returns the trip unchanged.
func (s *Service) CompleteTrip(ctx context.Context, id uint) (*Models.Trip, error) {
	db := s.DB.WithContext(ctx)
	var trip Models.Trip
	if err := db.First(&trip, id).Error; err != nil {
		return nil, fmt.Errorf("complete trip %d: %w", id, notFound(err))
	}
	if trip.Status == string(Planner.TripCompleted) {
		return &trip, nil
	}
	if err := db.Model(&trip).Update("status", string(Planner.TripCompleted)).Error; err != nil {
		return nil, fmt.Errorf("complete trip %d: %w", id, err)
	}
	trip.Status = string(Planner.TripCompleted)
	return &trip, nil
}

// RevertTrip deletes a trip and gives back one trip on the vehicle's and
// driver's counters. A merged group was counted once, so only the revert of
// its last remaining row touches the counters. Vehicles or drivers that no
// longer exist are skipped.
func (s *Service) RevertTrip(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip Models.Trip
		if err := tx.First(&trip, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&trip).Error; err != nil {
			return err
		}

		if trip.PlanRunID != nil {
			var siblings int64
			err := tx.Model(&Models.Trip{}).
				Where("plan_run_id = ? AND group_no = ?", *trip.PlanRunID, trip.GroupNo).
				Count(&siblings).Error
			if err != nil {
				return err
			}
			if siblings > 0 {
				log.WithFields(log.Fields{"trip_id": id, "group_no": trip.GroupNo, "remaining": siblings}).
					Debug("group still has trips, counters kept")
				return nil
			}
		}

		res := tx.Model(&Models.Vehicle{}).Where("id = ?", trip.VehicleID).UpdateColumn("trip_count", floorDecrement)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.WithFields(log.Fields{"trip_id": id, "vehicle_id": trip.VehicleID}).Warn("reverted trip references a missing vehicle")
		}

		if trip.DriverID == nil {
			return nil
		}
		res = tx.Model(&Models.Driver{}).Where("id = ?", *trip.DriverID).UpdateColumn("trip_count", floorDecrement)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.WithFields(log.Fields{"trip_id": id, "driver_id": *trip.DriverID}).Warn("reverted trip references a missing driver")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revert trip %d: %w", id, err)
	}
	log.WithField("trip_id", id).Info("trip reverted")
	return nil
}

// ToggleVehicleStatus flips a vehicle between Active and Maintenance. The
// next planning run picks the new status up.
func (s *Service) ToggleVehicleStatus(ctx context.Context, id uint) (*Models.Vehicle, error) {
	db := s.DB.WithContext(ctx)
	var vehicle Models.Vehicle
	if err := db.First(&vehicle, id).Error; err != nil {
		return nil, fmt.Errorf("toggle vehicle %d: %w", id, notFound(err))
	}

	next := string(Planner.VehicleMaintenance)
	if vehicle.Status == string(Planner.VehicleMaintenance) {
		next = string(Planner.VehicleActive)
	}
	if err := db.Model(&vehicle).Update("status", next).Error; err != nil {
		return nil, fmt.Errorf("toggle vehicle %d: %w", id, err)
	}
	vehicle.Status = next
	log.WithFields(log.Fields{"vehicle_id": id, "status": next}).Info("vehicle status changed")
	return &vehicle, nil
}
