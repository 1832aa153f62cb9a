package Planner

// Fleet resolves the records a planning run reads. Implementations must
// return vehicles in a stable fetch order.
type Fleet interface {
	Vehicles() []Vehicle
	GetVehicle(id uint) (Vehicle, bool)
	GetDriver(id uint) (Driver, bool)
	GetSite(id uint) (Site, bool)
}

// Snapshot is a point-in-time, in-memory Fleet.
type Snapshot struct {
	vehicles []Vehicle
	byID     map[uint]int
	drivers  map[uint]Driver
	sites    map[uint]Site
}

func NewSnapshot(vehicles []Vehicle, drivers []Driver, sites []Site) *Snapshot {
	s := &Snapshot{
		vehicles: append([]Vehicle(nil), vehicles...),
		byID:     make(map[uint]int, len(vehicles)),
		drivers:  make(map[uint]Driver, len(drivers)),
		sites:    make(map[uint]Site, len(sites)),
	}
	for i, v := range s.vehicles {
		s.byID[v.ID] = i
	}
	for _, d := range drivers {
		s.drivers[d.ID] = d
	}
	for _, site := range sites {
		s.sites[site.ID] = site
	}
	return s
}

func (s *Snapshot) Vehicles() []Vehicle {
	return append([]Vehicle(nil), s.vehicles...)
}

func (s *Snapshot) GetVehicle(id uint) (Vehicle, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Vehicle{}, false
	}
	return s.vehicles[i], true
}

func (s *Snapshot) GetDriver(id uint) (Driver, bool) {
	d, ok := s.drivers[id]
	return d, ok
}

func (s *Snapshot) GetSite(id uint) (Site, bool) {
	site, ok := s.sites[id]
	return site, ok
}

// activeDriver returns the vehicle's assigned driver when present and Active.
func activeDriver(f Fleet, v Vehicle) (Driver, bool) {
	if v.DriverID == nil {
		return Driver{}, false
	}
	d, ok := f.GetDriver(*v.DriverID)
	if !ok || d.Status != DriverActive {
		return Driver{}, false
	}
	return d, true
}
