package Controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"Convoy/CronJobs"
	"Convoy/Models"
	"Convoy/Planner"
	"Convoy/Scheduler"
	"Convoy/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var start = time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

type env struct {
	db  *gorm.DB
	svc *Scheduler.Service
	app *fiber.App

	drivers  []Models.Driver
	vehicles []Models.Vehicle
	sites    []Models.Site
}

// newEnv wires every handler onto a bare app backed by an in-memory store
// holding two 10-unit trucks, their drivers and two sites.
func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Models.Migrate(db))
	Models.DB = db
	t.Cleanup(func() {
		Models.DB = nil
		sqlDB.Close()
	})

	e := &env{
		db:  db,
		svc: Scheduler.NewService(db, nil, Planner.DefaultPolicy(), nil),
		app: fiber.New(),
		drivers: []Models.Driver{
			{Name: "Ana", LicenseNumber: "L-1"},
			{Name: "Ben", LicenseNumber: "L-2"},
		},
		sites: []Models.Site{
			{Name: "Central", Address: "1 Main St", DistanceKm: 5, HighDock: true},
			{Name: "Harbour", Address: "9 Quay Rd", DistanceKm: 8},
		},
	}
	require.NoError(t, db.Create(&e.drivers).Error)
	require.NoError(t, db.Create(&e.sites).Error)
	e.vehicles = []Models.Vehicle{
		{Name: "T-01", Capacity: 10, AssignedDriverID: &e.drivers[0].ID},
		{Name: "T-02", Capacity: 10, AssignedDriverID: &e.drivers[1].ID},
	}
	require.NoError(t, db.Create(&e.vehicles).Error)

	vehicles := NewVehicleHandler(db, e.svc)
	drivers := NewDriverHandler(db)
	sites := NewSiteHandler(db)
	planning := NewPlanningHandler(db, e.svc)
	trips := NewTripHandler(db, e.svc)
	maintenance := NewMaintenanceHandler(db)
	dashboard := NewDashboardHandler(db)
	auth := NewAuthHandler(db)

	api := e.app.Group("/api")
	api.Get("/vehicles", vehicles.GetVehicles)
	api.Post("/vehicles", vehicles.CreateVehicle)
	api.Get("/vehicles/:id", vehicles.GetVehicle)
	api.Put("/vehicles/:id", vehicles.UpdateVehicle)
	api.Delete("/vehicles/:id", vehicles.DeleteVehicle)
	api.Patch("/vehicles/:id/status", vehicles.ToggleStatus)
	api.Get("/drivers", drivers.GetDrivers)
	api.Post("/drivers", drivers.CreateDriver)
	api.Put("/drivers/:id", drivers.UpdateDriver)
	api.Delete("/drivers/:id", drivers.DeleteDriver)
	api.Get("/sites", sites.GetSites)
	api.Post("/sites", sites.CreateSite)
	api.Put("/sites/:id", sites.UpdateSite)
	api.Delete("/sites/:id", sites.DeleteSite)
	api.Get("/sites/:id/compatibility", sites.CheckCompatibility)
	api.Post("/plans", planning.CreatePlan)
	api.Get("/plans", planning.GetPlans)
	api.Get("/plans/:id", planning.GetPlan)
	api.Post("/trips/schedule", planning.ScheduleTrip)
	api.Get("/trips", trips.GetTrips)
	api.Get("/trips/export", trips.ExportTrips)
	api.Get("/trips/events", trips.GetTripEvents)
	api.Get("/trips/:id", trips.GetTrip)
	api.Patch("/trips/:id/complete", trips.CompleteTrip)
	api.Delete("/trips/:id", trips.RevertTrip)
	api.Get("/maintenance", maintenance.GetLogs)
	api.Post("/maintenance", maintenance.CreateLog)
	api.Delete("/maintenance/:id", maintenance.DeleteLog)
	api.Get("/dashboard", dashboard.GetStats)
	api.Post("/auth/register", auth.Register)
	api.Post("/auth/login", auth.Login)
	api.Post("/auth/logout", auth.Logout)
	api.Get("/auth/me", middleware.Verify(Models.PermissionDispatcher), auth.Me)
	return e
}

func (e *env) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp := e.send(t, newRequest(method, path, body))
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func (e *env) send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func newRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return req
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestVehicleHandler_Create(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/vehicles",
		`{"name":"T-03","capacity":12,"tall":true,"trip_count":40,"assigned_driver_id":1}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	vehicle := data(t, body)
	assert.Equal(t, "Active", vehicle["status"])
	assert.Equal(t, true, vehicle["tall"])

	var stored Models.Vehicle
	require.NoError(t, e.db.First(&stored, uint(vehicle["ID"].(float64))).Error)
	assert.Zero(t, stored.TripCount, "clients cannot seed trip counters")
}

func TestVehicleHandler_Validation(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/vehicles", `{"capacity":-1,"status":"Parked"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "capacity")
	assert.Contains(t, errs, "status")
	assert.Contains(t, errs["name"], "name is a required field")

	resp, body = e.do(t, fiber.MethodPost, "/api/vehicles", `{"name":"T-09","capacity":5,"assigned_driver_id":99}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "assigned_driver_id")

	resp, _ = e.do(t, fiber.MethodPost, "/api/vehicles", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVehicleHandler_UpdateAndDelete(t *testing.T) {
	e := newEnv(t)
	e.db.Model(&e.vehicles[0]).UpdateColumn("trip_count", 3)

	resp, body := e.do(t, fiber.MethodPut, "/api/vehicles/1",
		`{"name":"T-01b","capacity":8,"low_clearance":true,"trip_count":0}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	var stored Models.Vehicle
	require.NoError(t, e.db.First(&stored, e.vehicles[0].ID).Error)
	assert.Equal(t, "T-01b", stored.Name)
	assert.Equal(t, 8.0, stored.Capacity)
	assert.True(t, stored.LowClearance)
	assert.Nil(t, stored.AssignedDriverID, "an omitted driver unassigns")
	assert.Equal(t, 3, stored.TripCount)

	resp, _ = e.do(t, fiber.MethodPut, "/api/vehicles/77", `{"name":"x","capacity":1}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, fiber.MethodDelete, "/api/vehicles/2", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, fiber.MethodDelete, "/api/vehicles/2", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, fiber.MethodGet, "/api/vehicles/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVehicleHandler_ToggleStatus(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPatch, "/api/vehicles/1/status", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Maintenance", data(t, body)["status"])

	resp, body = e.do(t, fiber.MethodGet, "/api/vehicles?status=Active", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, body = e.do(t, fiber.MethodPatch, "/api/vehicles/1/status", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Active", data(t, body)["status"])

	resp, _ = e.do(t, fiber.MethodPatch, "/api/vehicles/42/status", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDriverHandler(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/drivers", `{"name":"Cleo","license_number":"L-3"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Active", data(t, body)["status"])

	resp, body = e.do(t, fiber.MethodPut, "/api/drivers/2", `{"name":"Ben","license_number":"L-2","status":"Inactive"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	resp, body = e.do(t, fiber.MethodGet, "/api/drivers?status=Active", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 2)

	resp, _ = e.do(t, fiber.MethodDelete, "/api/drivers/1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var vehicle Models.Vehicle
	require.NoError(t, e.db.First(&vehicle, e.vehicles[0].ID).Error)
	assert.Nil(t, vehicle.AssignedDriverID)

	resp, _ = e.do(t, fiber.MethodDelete, "/api/drivers/1", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSiteHandler_DistanceDefault(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/sites", `{"name":"Depot","address":"0 Yard"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, 10.0, data(t, body)["distance_km"])

	resp, body = e.do(t, fiber.MethodPost, "/api/sites", `{"name":"Next door","address":"2 Yard","distance_km":0}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, 0.0, data(t, body)["distance_km"])

	resp, body = e.do(t, fiber.MethodPost, "/api/sites", `{"name":"Nowhere","address":"?","distance_km":-4}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "distance_km")
}

func TestSiteHandler_CheckCompatibility(t *testing.T) {
	e := newEnv(t)
	e.db.Model(&e.vehicles[0]).Update("low_clearance", true)

	resp, body := e.do(t, fiber.MethodGet, "/api/sites/1/compatibility?vehicle_id=1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["compatible"])
	assert.Equal(t, "T-01 is too LOW for Central.", body["reason"])

	resp, body = e.do(t, fiber.MethodGet, "/api/sites/2/compatibility?vehicle_id=1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["compatible"])
	assert.Equal(t, "OK", body["reason"])

	resp, _ = e.do(t, fiber.MethodGet, "/api/sites/1/compatibility?vehicle_id=9", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, fiber.MethodGet, "/api/sites/1/compatibility", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPlanningHandler_CreatePlan(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/plans",
		`{"start_time":"2025-06-02T07:00:00Z","orders":[{"site_id":2,"volume":20},{"site_id":99,"volume":3}]}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Contains(t, body["message"], "2 trips generated")
	require.Len(t, body["diagnostics"], 1)
	assert.Equal(t, "unknown_site", body["diagnostics"].([]interface{})[0].(map[string]interface{})["code"])

	run := data(t, body)
	runID := run["id"].(string)
	assert.Len(t, run["trips"], 2)

	resp, body = e.do(t, fiber.MethodGet, "/api/plans/"+runID, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	trips := data(t, body)["trips"].([]interface{})
	require.Len(t, trips, 2)
	first := trips[0].(map[string]interface{})
	assert.Equal(t, "Direct", first["kind"])
	assert.Equal(t, "Harbour", first["site"].(map[string]interface{})["name"])

	resp, body = e.do(t, fiber.MethodGet, "/api/plans", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, 1.0, body["meta"].(map[string]interface{})["total"])

	resp, _ = e.do(t, fiber.MethodGet, "/api/plans/not-a-run", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPlanningHandler_CreatePlanRejections(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/plans", `{"start_time":"2025-06-02T07:00:00Z","orders":[]}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "orders")

	resp, body = e.do(t, fiber.MethodPost, "/api/plans", `{"start_time":"2025-06-02T07:00:00Z","orders":[{"site_id":2,"volume":1e12}]}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "volume")

	release, err := e.svc.Lock.Acquire(context.Background())
	require.NoError(t, err)
	resp, _ = e.do(t, fiber.MethodPost, "/api/plans", `{"start_time":"2025-06-02T07:00:00Z","orders":[{"site_id":2,"volume":4}]}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	release()

	require.NoError(t, e.db.Model(&Models.Vehicle{}).Where("1 = 1").Update("status", "Maintenance").Error)
	resp, body = e.do(t, fiber.MethodPost, "/api/plans", `{"start_time":"2025-06-02T07:00:00Z","orders":[{"site_id":2,"volume":4}]}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["message"], "No eligible vehicles")

	var runs int64
	e.db.Model(&Models.PlanRun{}).Count(&runs)
	assert.Zero(t, runs)
}

func TestPlanningHandler_ScheduleTrip(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/trips/schedule",
		`{"vehicle_id":2,"site_id":2,"load":6,"start_time":"2025-06-02T07:00:00Z"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	trip := data(t, body)
	assert.Equal(t, "Direct", trip["kind"])
	assert.Equal(t, "2025-06-02T08:16:00Z", trip["end_time"])

	e.db.Model(&e.vehicles[0]).Update("low_clearance", true)
	e.db.Model(&e.drivers[1]).Update("status", "Inactive")

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"unknown vehicle", `{"vehicle_id":9,"site_id":2,"load":1,"start_time":"2025-06-02T07:00:00Z"}`, fiber.StatusNotFound, "Vehicle not found"},
		{"unknown site", `{"vehicle_id":1,"site_id":9,"load":1,"start_time":"2025-06-02T07:00:00Z"}`, fiber.StatusNotFound, "Site not found"},
		{"zero load", `{"vehicle_id":1,"site_id":2,"load":0,"start_time":"2025-06-02T07:00:00Z"}`, fiber.StatusUnprocessableEntity, "Load must be greater than zero"},
		{"over capacity", `{"vehicle_id":1,"site_id":2,"load":11,"start_time":"2025-06-02T07:00:00Z"}`, fiber.StatusUnprocessableEntity, "Load exceeds vehicle capacity"},
		{"incompatible", `{"vehicle_id":1,"site_id":1,"load":2,"start_time":"2025-06-02T07:00:00Z"}`, fiber.StatusUnprocessableEntity, "Vehicle cannot serve this site"},
		{"inactive driver", `{"vehicle_id":2,"site_id":2,"load":2,"start_time":"2025-06-02T07:00:00Z"}`, fiber.StatusUnprocessableEntity, "Vehicle has no active driver"},
		{"missing fields", `{"load":2}`, fiber.StatusBadRequest, "Validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.do(t, fiber.MethodPost, "/api/trips/schedule", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, body["message"])
		})
	}

	e.db.Model(&e.vehicles[1]).Update("status", "Maintenance")
	resp, body = e.do(t, fiber.MethodPost, "/api/trips/schedule",
		`{"vehicle_id":2,"site_id":2,"load":2,"start_time":"2025-06-02T07:00:00Z"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Vehicle is under maintenance", body["message"])
}

func planTrips(t *testing.T, e *env, orders ...Planner.Order) *Scheduler.PlanOutcome {
	t.Helper()
	out, err := e.svc.RunPlan(context.Background(), Scheduler.PlanRequest{StartTime: start, Orders: orders})
	require.NoError(t, err)
	return out
}

func TestTripHandler_ListAndFilters(t *testing.T) {
	e := newEnv(t)
	out := planTrips(t, e,
		Planner.Order{SiteID: e.sites[1].ID, Volume: 10},
		Planner.Order{SiteID: e.sites[1].ID, Volume: 3},
	)
	require.Len(t, out.Run.Trips, 2)

	resp, body := e.do(t, fiber.MethodGet, "/api/trips?kind=Merged", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, body["data"], 1)
	assert.Equal(t, 3.0, body["data"].([]interface{})[0].(map[string]interface{})["load"])

	resp, body = e.do(t, fiber.MethodGet, "/api/trips?plan_run_id="+out.Run.ID+"&limit=1&page=2", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, 2.0, meta["total"])
	assert.Equal(t, 2.0, meta["pages"])

	resp, body = e.do(t, fiber.MethodGet, "/api/trips?from=2025-06-03", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])

	resp, body = e.do(t, fiber.MethodGet, "/api/trips?to=2025-06-02", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 2)

	resp, _ = e.do(t, fiber.MethodGet, "/api/trips?from=yesterday", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTripHandler_CompleteAndRevert(t *testing.T) {
	e := newEnv(t)
	out := planTrips(t, e, Planner.Order{SiteID: e.sites[1].ID, Volume: 10})
	id := out.Run.Trips[0].ID
	path := "/api/trips/" + strconv.FormatUint(uint64(id), 10)

	resp, body := e.do(t, fiber.MethodPatch, path+"/complete", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Completed", data(t, body)["status"])

	resp, _ = e.do(t, fiber.MethodDelete, path, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var vehicle Models.Vehicle
	require.NoError(t, e.db.First(&vehicle, out.Run.Trips[0].VehicleID).Error)
	assert.Zero(t, vehicle.TripCount)

	resp, _ = e.do(t, fiber.MethodDelete, path, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, fiber.MethodGet, path, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, fiber.MethodPatch, path+"/complete", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestTripHandler_Events(t *testing.T) {
	e := newEnv(t)
	planTrips(t, e,
		Planner.Order{SiteID: e.sites[1].ID, Volume: 10},
		Planner.Order{SiteID: e.sites[1].ID, Volume: 2},
	)

	resp := e.send(t, newRequest(fiber.MethodGet, "/api/trips/events", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var events []TripEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 2)

	kinds := map[string]TripEvent{}
	for _, ev := range events {
		kinds[ev.Kind] = ev
	}
	assert.Equal(t, "T-01: Harbour", kinds["Direct"].Title)
	assert.Equal(t, "#2563eb", kinds["Direct"].Color)
	assert.Equal(t, "#f59e0b", kinds["Merged"].Color)
	assert.True(t, kinds["Merged"].End.After(kinds["Merged"].Start))
}

func TestTripHandler_Export(t *testing.T) {
	e := newEnv(t)
	planTrips(t, e, Planner.Order{SiteID: e.sites[1].ID, Volume: 20})

	resp := e.send(t, newRequest(fiber.MethodGet, "/api/trips/export", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "trips_export_")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Trips"}, f.GetSheetList())
	rows, err := f.GetRows("Trips")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "Harbour", rows[1][7])
	assert.Equal(t, "2025-06-02 07:00", rows[1][9])
}

func TestMaintenanceHandler(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, fiber.MethodPost, "/api/maintenance",
		`{"vehicle_id":1,"service_type":"Oil change","cost":120.5,"date":"2025-05-01T00:00:00Z"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	resp, _ = e.do(t, fiber.MethodPost, "/api/maintenance", `{"vehicle_id":2,"service_type":"Tyres","cost":80}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = e.do(t, fiber.MethodPost, "/api/maintenance", `{"vehicle_id":9,"service_type":"Brakes"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, body = e.do(t, fiber.MethodPost, "/api/maintenance", `{"vehicle_id":1,"cost":-3}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "service_type")
	assert.Contains(t, body["errors"], "cost")

	resp, body = e.do(t, fiber.MethodGet, "/api/maintenance?vehicle_id=1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, body["data"], 1)

	resp, body = e.do(t, fiber.MethodGet, "/api/vehicles/1", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, data(t, body)["maintenance_logs"], 1)

	resp, _ = e.do(t, fiber.MethodDelete, "/api/maintenance/1", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, fiber.MethodDelete, "/api/maintenance/1", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDashboardHandler(t *testing.T) {
	e := newEnv(t)
	planTrips(t, e, Planner.Order{SiteID: e.sites[1].ID, Volume: 10})
	e.db.Model(&e.vehicles[1]).Update("status", "Maintenance")
	e.db.Create(&Models.MaintenanceLog{VehicleID: e.vehicles[1].ID, ServiceType: "Tyres", Cost: 80, Date: start})
	e.db.Create(&Models.MaintenanceLog{VehicleID: e.vehicles[1].ID, ServiceType: "Brakes", Cost: 40.5, Date: start})

	resp, body := e.do(t, fiber.MethodGet, "/api/dashboard", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := data(t, body)
	assert.Equal(t, 2.0, stats["total_vehicles"])
	assert.Equal(t, 1.0, stats["available_vehicles"])
	assert.Equal(t, 1.0, stats["maintenance_vehicles"])
	assert.Equal(t, 2.0, stats["active_drivers"])
	assert.Equal(t, 1.0, stats["scheduled_trips"])
	assert.Equal(t, 120.5, stats["maintenance_cost"])
}

func TestAuthHandler(t *testing.T) {
	e := newEnv(t)
	middleware.SetSecret("test-secret")

	resp, body := e.do(t, fiber.MethodPost, "/api/auth/register", `{"username":"first","password":"secret1"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, float64(Models.PermissionAdmin), data(t, body)["permission"])
	assert.NotContains(t, data(t, body), "password")

	resp, body = e.do(t, fiber.MethodPost, "/api/auth/register", `{"username":"second","password":"secret2"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(Models.PermissionDispatcher), data(t, body)["permission"])

	resp, _ = e.do(t, fiber.MethodPost, "/api/auth/register", `{"username":"second","password":"another"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp, _ = e.do(t, fiber.MethodPost, "/api/auth/register", `{"username":"x","password":"1"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, fiber.MethodPost, "/api/auth/login", `{"username":"second","password":"wrong!"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, fiber.MethodPost, "/api/auth/login", `{"username":"second","password":"secret2"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.CookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	me := newRequest(fiber.MethodGet, "/api/auth/me", "")
	me.AddCookie(&http.Cookie{Name: session.Name, Value: session.Value})
	resp = e.send(t, me)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "second", out["data"]["username"])

	resp, _ = e.do(t, fiber.MethodPost, "/api/auth/logout", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.CookieName {
			assert.Empty(t, ck.Value)
		}
	}
}

func TestBackupHandler(t *testing.T) {
	e := newEnv(t)
	disabled := NewBackupHandler(nil)
	e.app.Get("/off/backups", disabled.GetSchedule)
	resp, _ := e.do(t, fiber.MethodGet, "/off/backups", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	dir := t.TempDir()
	job := CronJobs.NewBackupJob(e.db, "", dir, "0 0 2 * * *", 0)
	backups := NewBackupHandler(job)
	e.app.Get("/api/admin/backups", backups.GetSchedule)
	e.app.Post("/api/admin/backups", backups.CreateBackup)
	e.app.Put("/api/admin/backups/schedule", backups.UpdateSchedule)

	resp, body := e.do(t, fiber.MethodGet, "/api/admin/backups", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "0 0 2 * * *", data(t, body)["schedule"])
	assert.NotContains(t, data(t, body), "next_run")

	require.NoError(t, job.Start())
	defer job.Stop()

	resp, body = e.do(t, fiber.MethodPut, "/api/admin/backups/schedule", `{"schedule":"0 30 4 * * *"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "0 30 4 * * *", data(t, body)["schedule"])
	next, err := time.Parse(time.RFC3339, data(t, body)["next_run"].(string))
	require.NoError(t, err)
	assert.Equal(t, 4, next.Hour())
	assert.Equal(t, 30, next.Minute())

	resp, body = e.do(t, fiber.MethodPut, "/api/admin/backups/schedule", `{"schedule":"whenever"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "schedule")
	assert.Equal(t, "0 30 4 * * *", job.Schedule())

	resp, body = e.do(t, fiber.MethodPost, "/api/admin/backups", "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	assert.FileExists(t, data(t, body)["path"].(string))
}
