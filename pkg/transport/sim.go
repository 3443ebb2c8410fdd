// pkg/transport/sim.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package transport

import (
	"context"
	"sync"
)

// SimDrone is a minimal in-memory Drone implementation used by tests and
// local development in place of a real flight-controller link. It has
// no flight dynamics: arm/takeoff/land/disarm flip flags immediately,
// and mission uploads are recorded verbatim for inspection.
type SimDrone struct {
	mu sync.Mutex

	connected bool
	armed     bool
	inAir     bool
	landed    bool

	position  Position
	altitude  float64

	lastPlan  MissionPlan
	missionOn bool
}

func NewSimDrone(start Position) *SimDrone {
	return &SimDrone{position: start, landed: true}
}

func (s *SimDrone) Connect(ctx context.Context, systemAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *SimDrone) IsConnected(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected, nil
}

func (s *SimDrone) HealthAllOK(ctx context.Context) (bool, error) { return true, nil }

func (s *SimDrone) HealthDetail(ctx context.Context) (map[string]bool, error) {
	return map[string]bool{
		"gyrometer":     true,
		"accelerometer": true,
		"magnetometer":  true,
		"local_position": true,
		"home_position": true,
		"armable":       true,
	}, nil
}

func (s *SimDrone) Arm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	return nil
}

func (s *SimDrone) Disarm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
	return nil
}

func (s *SimDrone) Takeoff(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inAir = true
	s.landed = false
	return nil
}

func (s *SimDrone) Land(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inAir = false
	s.landed = true
	return nil
}

func (s *SimDrone) ReturnToLaunch(ctx context.Context) error {
	return s.Land(ctx)
}

func (s *SimDrone) SetTakeoffAltitude(ctx context.Context, meters float64) error { return nil }
func (s *SimDrone) SetReturnToLaunchAltitude(ctx context.Context, meters float64) error { return nil }

func (s *SimDrone) ClearMission(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPlan = MissionPlan{}
	s.missionOn = false
	return nil
}

func (s *SimDrone) UploadMission(ctx context.Context, plan MissionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPlan = plan
	return nil
}

func (s *SimDrone) StartMission(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missionOn = true
	if len(s.lastPlan.Items) > 0 {
		last := s.lastPlan.Items[len(s.lastPlan.Items)-1]
		s.position = Position{Lat: last.Lat, Lon: last.Lon}
		s.altitude = last.RelativeAltM
	}
	return nil
}

func (s *SimDrone) IsMissionFinished(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missionOn, nil
}

func (s *SimDrone) MissionProgress(ctx context.Context) (<-chan int, <-chan error) {
	progress := make(chan int, 1)
	errs := make(chan error)
	progress <- 1
	close(progress)
	close(errs)
	return progress, errs
}

func (s *SimDrone) IsArmed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed, nil
}

func (s *SimDrone) IsInAir(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inAir, nil
}

func (s *SimDrone) LandedState(ctx context.Context) (LandedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.landed {
		return LandedStateOnGround, nil
	}
	return LandedStateInAir, nil
}

func (s *SimDrone) FlightMode(ctx context.Context) (string, error) { return "HOLD", nil }

func (s *SimDrone) Battery(ctx context.Context) (Battery, error) {
	return Battery{VoltageV: 16.8, RemainPercent: 100}, nil
}

func (s *SimDrone) GPSInfo(ctx context.Context) (GPSInfo, error) {
	return GPSInfo{NumSatellites: 12, FixType: "3D"}, nil
}

func (s *SimDrone) Position(ctx context.Context) (Position, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, s.altitude, nil
}

func (s *SimDrone) SetPositionUpdateRate(ctx context.Context, hz float64) error { return nil }

func (s *SimDrone) StreamPosition(ctx context.Context) (<-chan PositionUpdate, <-chan error) {
	updates := make(chan PositionUpdate, 1)
	errs := make(chan error)
	s.mu.Lock()
	updates <- PositionUpdate{Position: s.position, RelativeAltitudeM: s.altitude}
	s.mu.Unlock()
	close(updates)
	close(errs)
	return updates, errs
}

// LastMissionPlan returns the most recently uploaded mission plan, for
// test inspection.
func (s *SimDrone) LastMissionPlan() MissionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPlan
}
