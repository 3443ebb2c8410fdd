// pkg/transport/transport.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package transport defines the MAVLink-style flight-controller contract
// that the command pipeline is built against. The transport itself --
// the wire protocol, the RPC plumbing -- is an external collaborator;
// this package states only the surface the core depends on, plus a
// small in-memory simulated implementation used by tests and local
// development.
package transport

import "context"

// Position is a geodetic point (latitude and longitude in degrees).
// Altitude is not part of it; telemetry and mission items carry it
// separately.
type Position struct {
	Lat, Lon float64
}

// LandedState mirrors the flight controller's landed-state enumeration.
type LandedState int

const (
	LandedStateUnknown LandedState = iota
	LandedStateOnGround
	LandedStateInAir
	LandedStateTakingOff
	LandedStateLanding
)

// PositionUpdate is one message from the position telemetry stream.
type PositionUpdate struct {
	Position          Position
	RelativeAltitudeM float64
}

// Battery is a one-shot diagnostic read.
type Battery struct {
	VoltageV      float64
	RemainPercent float64
}

// GPSInfo is a one-shot diagnostic read.
type GPSInfo struct {
	NumSatellites int
	FixType       string
}

// MissionItem is one immutable waypoint in an uploaded mission plan.
type MissionItem struct {
	Lat, Lon      float64
	RelativeAltM  float64
	SpeedMS       float64
	FlyThrough    bool
	GimbalPitchDeg float64
	GimbalYawDeg   float64
	CameraAction   string
	LoiterS        float64
	PhotoIntervalS float64
}

// MissionPlan is an ordered sequence of mission items. At most one
// mission plan is active on the drone at a time; a new upload replaces
// the previous one.
type MissionPlan struct {
	Items []MissionItem
}

// Drone is the flight-controller transport contract. The core depends
// only on this interface; a concrete implementation speaks whatever wire
// protocol the target flight stack requires.
type Drone interface {
	Connect(ctx context.Context, systemAddress string) error
	IsConnected(ctx context.Context) (bool, error)

	HealthAllOK(ctx context.Context) (bool, error)
	HealthDetail(ctx context.Context) (map[string]bool, error)

	Arm(ctx context.Context) error
	Disarm(ctx context.Context) error
	Takeoff(ctx context.Context) error
	Land(ctx context.Context) error
	ReturnToLaunch(ctx context.Context) error
	SetTakeoffAltitude(ctx context.Context, meters float64) error
	SetReturnToLaunchAltitude(ctx context.Context, meters float64) error

	ClearMission(ctx context.Context) error
	UploadMission(ctx context.Context, plan MissionPlan) error
	StartMission(ctx context.Context) error
	IsMissionFinished(ctx context.Context) (bool, error)
	MissionProgress(ctx context.Context) (<-chan int, <-chan error)

	IsArmed(ctx context.Context) (bool, error)
	IsInAir(ctx context.Context) (bool, error)
	LandedState(ctx context.Context) (LandedState, error)
	FlightMode(ctx context.Context) (string, error)
	Battery(ctx context.Context) (Battery, error)
	GPSInfo(ctx context.Context) (GPSInfo, error)
	Position(ctx context.Context) (Position, float64, error)

	SetPositionUpdateRate(ctx context.Context, hz float64) error
	StreamPosition(ctx context.Context) (<-chan PositionUpdate, <-chan error)
}
