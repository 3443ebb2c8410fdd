// pkg/command/command_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package command

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/leonce-m/dronebot/pkg/telemetry"
	"github.com/leonce-m/dronebot/pkg/transport"
)

func newHarness() (*transport.SimDrone, *telemetry.Cache, *MissionContext) {
	drone := transport.NewSimDrone(transport.Position{Lat: 48.0, Lon: 11.0})
	tc := telemetry.New(drone, nil)
	mc := NewMissionContext()
	return drone, tc, mc
}

func refreshCache(ctx context.Context, drone *transport.SimDrone, tc *telemetry.Cache) {
	// SimDrone's position stream emits exactly one update and closes;
	// re-subscribing picks up the latest simulated state, mirroring how
	// a real subscription would deliver the next telemetry message.
	tc.SubscribePosition(ctx)
}

func TestDirectRoundTrip(t *testing.T) {
	ctx := context.Background()
	drone, tc, mc := newHarness()

	target := transport.Position{Lat: 48.12345, Lon: 11.6789}
	d := NewDirect(target, nil)
	if err := d.Execute(ctx, drone, mc, tc); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	plan := drone.LastMissionPlan()
	if len(plan.Items) != 1 {
		t.Fatalf("expected single-item plan, got %d items", len(plan.Items))
	}
	if math.Abs(plan.Items[0].Lat-target.Lat) > 1e-9 || math.Abs(plan.Items[0].Lon-target.Lon) > 1e-9 {
		t.Errorf("round trip mismatch: got (%v,%v) want (%v,%v)",
			plan.Items[0].Lat, plan.Items[0].Lon, target.Lat, target.Lon)
	}
}

func TestAltitudeWithNoPriorPlan(t *testing.T) {
	ctx := context.Background()
	drone, tc, mc := newHarness()

	a := NewAltitude(15.24, nil)
	if err := a.Execute(ctx, drone, mc, tc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if mc.TargetAltitude() != 15.24 {
		t.Errorf("target altitude not updated: got %v", mc.TargetAltitude())
	}
	plan := drone.LastMissionPlan()
	if len(plan.Items) != 1 || plan.Items[0].RelativeAltM != 15.24 {
		t.Errorf("expected single item at 15.24m, got %+v", plan.Items)
	}
}

func TestAltitudeRebuildsPriorPlan(t *testing.T) {
	ctx := context.Background()
	drone, tc, mc := newHarness()

	mc.SetLastPlan(transport.MissionPlan{Items: []transport.MissionItem{
		{Lat: 1, Lon: 2, RelativeAltM: 10},
		{Lat: 3, Lon: 4, RelativeAltM: 10},
	}})

	a := NewAltitude(20, nil)
	if err := a.Execute(ctx, drone, mc, tc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	plan := drone.LastMissionPlan()
	if len(plan.Items) != 2 {
		t.Fatalf("expected 2 items preserved, got %d", len(plan.Items))
	}
	for _, item := range plan.Items {
		if item.RelativeAltM != 20 {
			t.Errorf("item altitude not rebuilt, full plan:\n%s", spew.Sdump(plan))
		}
	}
}

func TestTakeoffArmsAndLiftsOff(t *testing.T) {
	ctx := context.Background()
	drone, tc, mc := newHarness()

	go tc.SubscribeState(context.Background())

	to := NewTakeoff(nil, nil)
	done := make(chan error, 1)
	go func() { done <- to.Execute(ctx, drone, mc, tc) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("takeoff did not complete")
	}

	armed, _ := drone.IsArmed(ctx)
	inAir, _ := drone.IsInAir(ctx)
	if !armed || !inAir {
		t.Errorf("expected armed+in_air, got armed=%v in_air=%v", armed, inAir)
	}
}

func TestReportPosChainsToTask(t *testing.T) {
	ctx := context.Background()
	drone, tc, mc := newHarness()
	refreshCache(ctx, drone, tc)

	ranTask := false
	task := func(ctx context.Context, d transport.Drone, mc *MissionContext, tc *telemetry.Cache) error {
		ranTask = true
		return nil
	}

	pos, _ := tc.Position()
	rp := NewReportPos(pos, task)
	rp.MinDist = 1000 // already within range

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := rp.Execute(ctx2, drone, mc, tc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ranTask {
		t.Error("expected task to run once position condition satisfied")
	}
}

func TestEngineStartAndShutdown(t *testing.T) {
	ctx := context.Background()
	drone, tc, mc := newHarness()

	if err := NewEngineStart(nil).Execute(ctx, drone, mc, tc); err != nil {
		t.Fatalf("EngineStart: %v", err)
	}
	armed, _ := drone.IsArmed(ctx)
	if !armed {
		t.Error("expected armed after EngineStart")
	}

	if err := NewEngineShutdown(nil).Execute(ctx, drone, mc, tc); err != nil {
		t.Fatalf("EngineShutdown: %v", err)
	}
	armed, _ = drone.IsArmed(ctx)
	if armed {
		t.Error("expected disarmed after EngineShutdown")
	}
}
