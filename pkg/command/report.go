// pkg/command/report.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package command

import (
	"context"
	"math"
	"time"

	"github.com/im7mortal/utm"

	"github.com/leonce-m/dronebot/pkg/log"
	"github.com/leonce-m/dronebot/pkg/telemetry"
	"github.com/leonce-m/dronebot/pkg/transport"
)

const (
	defaultMinDistMeters = 2.0
	defaultMinDiffMeters = 0.5
)

func utmDistance(a, b transport.Position) (float64, error) {
	ae, an, _, _, err := utm.FromLatLon(a.Lat, a.Lon)
	if err != nil {
		return 0, err
	}
	be, bn, _, _, err := utm.FromLatLon(b.Lat, b.Lon)
	if err != nil {
		return 0, err
	}
	return math.Hypot(ae-be, an-bn), nil
}

// Task is the follow-up work a Report* command runs once its wait
// condition is satisfied. It is deliberately not the Command interface:
// the original's follow-up is sometimes a command object's execution,
// sometimes a bare voice acknowledgement or state-machine event, so
// Report* commands take any closure over that work.
type Task func(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error

// TaskFromCommand adapts a Command into a Task, for the common case of
// chaining straight into another command object's execution.
func TaskFromCommand(c Command) Task {
	if c == nil {
		return nil
	}
	return c.Execute
}

// ReportPos polls every second; once the drone's UTM Euclidean distance
// to Position drops under MinDist, it awaits Task.
type ReportPos struct {
	base
	Position transport.Position
	MinDist  float64
	Task     Task
}

func NewReportPos(pos transport.Position, task Task) *ReportPos {
	return &ReportPos{base: newBase(), Position: pos, MinDist: defaultMinDistMeters, Task: task}
}

func (r *ReportPos) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		cur, _ := tc.Position()
		dist, err := utmDistance(cur, r.Position)
		if err == nil && dist < r.MinDist {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if r.Task == nil {
		return nil
	}
	return r.Task(ctx, drone, mc, tc)
}

// ReportAlt polls every second until the cache's altitude is within
// MinDiff of Altitude, then awaits Task.
type ReportAlt struct {
	base
	AltitudeM float64
	MinDiff   float64
	Task      Task
}

func NewReportAlt(altitudeM float64, task Task) *ReportAlt {
	return &ReportAlt{base: newBase(), AltitudeM: altitudeM, MinDiff: defaultMinDiffMeters, Task: task}
}

func (r *ReportAlt) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if math.Abs(tc.Altitude()-r.AltitudeM) <= r.MinDiff {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if r.Task == nil {
		return nil
	}
	return r.Task(ctx, drone, mc, tc)
}

// ReportTakeoff awaits the telemetry cache observing the drone airborne,
// then awaits Task.
type ReportTakeoff struct {
	base
	Task Task
}

func NewReportTakeoff(task Task) *ReportTakeoff {
	return &ReportTakeoff{base: newBase(), Task: task}
}

func (r *ReportTakeoff) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	tc.WaitForInAir(ctx, 10)
	if r.Task == nil {
		return nil
	}
	return r.Task(ctx, drone, mc, tc)
}

// ReportLanded awaits the telemetry cache observing the drone landed,
// then awaits Task.
type ReportLanded struct {
	base
	Task Task
}

func NewReportLanded(task Task) *ReportLanded {
	return &ReportLanded{base: newBase(), Task: task}
}

func (r *ReportLanded) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	tc.WaitForLanded(ctx, 10)
	if r.Task == nil {
		return nil
	}
	return r.Task(ctx, drone, mc, tc)
}

// EngineStart is a single try_action on arm.
type EngineStart struct {
	base
	lg *log.Logger
}

func NewEngineStart(lg *log.Logger) *EngineStart { return &EngineStart{base: newBase(), lg: lg} }

func (e *EngineStart) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	return tryAction(ctx, e.lg, transport.IsAction, drone.Arm)
}

// EngineShutdown is a single try_action on disarm.
type EngineShutdown struct {
	base
	lg *log.Logger
}

func NewEngineShutdown(lg *log.Logger) *EngineShutdown {
	return &EngineShutdown{base: newBase(), lg: lg}
}

func (e *EngineShutdown) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	return tryAction(ctx, e.lg, transport.IsAction, drone.Disarm)
}
