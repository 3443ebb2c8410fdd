// pkg/command/move.go
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

// headingStepMeters is the fixed displacement used by Heading to
// synthesize a one-waypoint plan in the commanded direction, rather than
// true continuous heading-hold.
const headingStepMeters = 5.0

// Altitude rebuilds the active mission plan with every item's altitude
// replaced, or -- if no plan is active -- synthesizes a single-item plan
// at the current position.
type Altitude struct {
	base
	AltitudeM float64
	lg        *log.Logger
}

func NewAltitude(alt float64, lg *log.Logger) *Altitude {
	return &Altitude{base: newBase(), AltitudeM: alt, lg: lg}
}

func (a *Altitude) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	var plan transport.MissionPlan
	if prior := mc.LastPlan(); prior != nil && len(prior.Items) > 0 {
		plan.Items = make([]transport.MissionItem, len(prior.Items))
		copy(plan.Items, prior.Items)
		for i := range plan.Items {
			plan.Items[i].RelativeAltM = a.AltitudeM
		}
	} else {
		pos, _ := tc.Position()
		plan = singleItemPlan(pos, a.AltitudeM)
	}

	mc.SetTargetAltitude(a.AltitudeM)
	mc.SetLastPlan(plan)
	return uploadAndStart(ctx, drone, a.lg, plan)
}

// Heading converts the current position to UTM, steps a fixed distance
// along the heading vector, converts back to lat/lon, and uploads a
// single-item plan at the current target altitude.
type Heading struct {
	base
	HeadingDeg int
	lg         *log.Logger
}

func NewHeading(deg int, lg *log.Logger) *Heading {
	return &Heading{base: newBase(), HeadingDeg: deg, lg: lg}
}

func (h *Heading) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	pos, _ := tc.Position()

	easting, northing, zone, zoneLetter, err := utm.FromLatLon(pos.Lat, pos.Lon)
	if err != nil {
		return transport.NewActionError(err)
	}

	rad := float64(h.HeadingDeg) * math.Pi / 180
	easting += headingStepMeters * math.Sin(rad)
	northing += headingStepMeters * math.Cos(rad)

	lat, lon, err := utm.ToLatLon(easting, northing, zone, zoneLetter)
	if err != nil {
		return transport.NewActionError(err)
	}

	plan := singleItemPlan(transport.Position{Lat: lat, Lon: lon}, mc.TargetAltitude())
	mc.SetLastPlan(plan)
	return uploadAndStart(ctx, drone, h.lg, plan)
}

// Direct uploads a single-item plan at a named position, holding the
// current target altitude.
type Direct struct {
	base
	Position transport.Position
	lg       *log.Logger
}

func NewDirect(pos transport.Position, lg *log.Logger) *Direct {
	return &Direct{base: newBase(), Position: pos, lg: lg}
}

func (d *Direct) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	plan := singleItemPlan(d.Position, mc.TargetAltitude())
	mc.SetLastPlan(plan)
	return uploadAndStart(ctx, drone, d.lg, plan)
}

// Takeoff optionally sets the transport's takeoff altitude, then arms
// and takes off, retrying each action until telemetry confirms it.
type Takeoff struct {
	base
	AltitudeM *float64
	lg        *log.Logger
}

func NewTakeoff(altitudeM *float64, lg *log.Logger) *Takeoff {
	return &Takeoff{base: newBase(), AltitudeM: altitudeM, lg: lg}
}

func (t *Takeoff) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	if t.AltitudeM != nil {
		if err := drone.SetTakeoffAltitude(ctx, *t.AltitudeM); err != nil {
			return transport.NewActionError(err)
		}
		mc.SetTargetAltitude(*t.AltitudeM)
	}

	for !tc.IsArmed() {
		if err := tryAction(ctx, t.lg, transport.IsAction, drone.Arm); err != nil {
			return err
		}
	}
	tc.WaitForArmed(ctx, 10)

	for !tc.InAir() {
		if err := tryAction(ctx, t.lg, transport.IsAction, drone.Takeoff); err != nil {
			return err
		}
	}
	tc.WaitForInAir(ctx, 10)
	return nil
}

// Land, if given a position, uploads a two-item descent plan (5m then
// 1m) and waits for the mission to finish; otherwise it proceeds
// directly. In both cases it then waits briefly, lands, waits for
// landed (30s timeout), disarms, and waits for disarmed (10s timeout).
type Land struct {
	base
	Position *transport.Position
	lg       *log.Logger
}

func NewLand(pos *transport.Position, lg *log.Logger) *Land {
	return &Land{base: newBase(), Position: pos, lg: lg}
}

func (l *Land) Execute(ctx context.Context, drone transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
	if l.Position != nil {
		plan := transport.MissionPlan{Items: []transport.MissionItem{
			{Lat: l.Position.Lat, Lon: l.Position.Lon, RelativeAltM: 5, SpeedMS: 5, FlyThrough: true},
			{Lat: l.Position.Lat, Lon: l.Position.Lon, RelativeAltM: 1, SpeedMS: 2, FlyThrough: false},
		}}
		mc.SetLastPlan(plan)
		if err := uploadAndStart(ctx, drone, l.lg, plan); err != nil {
			return err
		}

		for {
			finished, err := drone.IsMissionFinished(ctx)
			if err != nil {
				return transport.NewMissionError(err)
			}
			if finished {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
	}

	if err := tryAction(ctx, l.lg, transport.IsAction, drone.Land); err != nil {
		return err
	}

	landCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	tc.WaitForLanded(landCtx, 10)

	if err := tryAction(ctx, l.lg, transport.IsAction, drone.Disarm); err != nil {
		return err
	}

	disarmCtx, cancel2 := context.WithTimeout(ctx, 10*time.Second)
	defer cancel2()
	tc.WaitForDisarmed(disarmCtx, 10)

	return nil
}
