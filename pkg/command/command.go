// pkg/command/command.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package command implements the typed effectful actions dispatched by
// the flight state machine: Takeoff, Altitude, Heading, Direct, Land,
// the Report* family, and EngineStart/EngineShutdown.
package command

import (
	"context"
	"time"

	"github.com/leonce-m/dronebot/pkg/log"
	"github.com/leonce-m/dronebot/pkg/telemetry"
	"github.com/leonce-m/dronebot/pkg/transport"
)

// Command is a typed effectful action that, when executed with a drone
// handle, a mission context, and a telemetry cache, uploads/starts a
// mission or awaits a telemetry condition. Every command carries an
// implicit creation timestamp (CreatedAt).
type Command interface {
	Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error
	CreatedAt() time.Time
}

// base supplies the creation timestamp every command carries.
type base struct {
	createdAt time.Time
}

func newBase() base { return base{createdAt: time.Now()} }

func (b base) CreatedAt() time.Time { return b.createdAt }

// tryAction invokes action; if it fails with an error recognized by
// filter, the error is logged and the call sleeps 100ms before
// returning nil -- it must never re-raise the swallowed error. Errors
// filter does not recognize (context cancellation, programmer errors)
// propagate to the caller.
func tryAction(ctx context.Context, lg *log.Logger, filter func(error) bool, action func(context.Context) error) error {
	err := action(ctx)
	if err == nil {
		return nil
	}
	if filter(err) {
		lg.Warnf("transport action failed, retrying: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
		return nil
	}
	return err
}

// uploadAndStart clears the current mission, uploads plan, waits for one
// mission-progress tick, then starts the mission. Errors from starting
// the mission are swallowed via tryAction.
func uploadAndStart(ctx context.Context, drone transport.Drone, lg *log.Logger, plan transport.MissionPlan) error {
	if err := drone.ClearMission(ctx); err != nil {
		return transport.NewMissionError(err)
	}
	if err := drone.UploadMission(ctx, plan); err != nil {
		return transport.NewMissionError(err)
	}

	progress, errs := drone.MissionProgress(ctx)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-errs:
		if ok && err != nil {
			lg.Warnf("mission progress stream error: %v", err)
		}
	case <-progress:
	}

	return tryAction(ctx, lg, transport.IsMission, func(ctx context.Context) error {
		return drone.StartMission(ctx)
	})
}

func singleItemPlan(pos transport.Position, altitudeM float64) transport.MissionPlan {
	return transport.MissionPlan{Items: []transport.MissionItem{{
		Lat:          pos.Lat,
		Lon:          pos.Lon,
		RelativeAltM: altitudeM,
		SpeedMS:      5,
		FlyThrough:   true,
	}}}
}
