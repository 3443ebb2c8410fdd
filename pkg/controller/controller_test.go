// pkg/controller/controller_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonce-m/dronebot/pkg/transport"
	"github.com/leonce-m/dronebot/pkg/vocab"
)

const testGrammar = `
MODES:
  ALTITUDE: 0
  CLEARANCE: 1

VERBS:
  ALTITUDE:
    - "climb|descend|maintain"
  CLEARANCE:
    - "cleared for"

NOUNS:
  ALTITUDE:
    - "flight level (?P<val>\\d+)(?P<unit>)"
  CLEARANCE:
    - "cleared for (?P<type>route)"

POSITIONS: {}
`

func loadTestVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grammar.yaml")
	if err := os.WriteFile(path, []byte(testGrammar), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := vocab.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return v
}

func TestStartupSucceedsWithHealthySim(t *testing.T) {
	ctx := context.Background()
	v := loadTestVocab(t)
	drone := transport.NewSimDrone(transport.Position{Lat: 48, Lon: 11})
	c := New(Config{CallSign: "cityairbus1234", SystemAddress: "udp://:14550"}, v, drone, nil)

	if err := c.Startup(ctx); err != nil {
		t.Fatalf("Startup: %v", err)
	}
}

// unhealthyDrone always fails HealthAllOK. The test below cancels the
// preflight loop through a short context timeout during the first
// retry delay, so it checks that Startup fails on cancellation without
// waiting out all five attempts; the retry-budget exhaustion path
// itself is not reached.
type unhealthyDrone struct {
	*transport.SimDrone
}

func (u *unhealthyDrone) HealthAllOK(ctx context.Context) (bool, error) { return false, nil }

func TestStartupPreflightTimesOutViaContext(t *testing.T) {
	v := loadTestVocab(t)
	sim := transport.NewSimDrone(transport.Position{Lat: 48, Lon: 11})
	drone := &unhealthyDrone{sim}
	c := New(Config{CallSign: "cityairbus1234", SystemAddress: "udp://:14550"}, v, drone, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.Startup(ctx); err == nil {
		t.Fatal("expected Startup to fail when preflight never passes and context expires")
	}
}

// TestMonitorATCRtbOverride exercises monitorATC directly (rather than
// the full Run gather) so the rtb override is observed without paying
// for the emergency return-to-launch path's telemetry wait.
func TestMonitorATCRtbOverride(t *testing.T) {
	v := loadTestVocab(t)
	drone := transport.NewSimDrone(transport.Position{Lat: 48, Lon: 11})
	c := New(Config{CallSign: "cityairbus1234", SystemAddress: "udp://:14550"}, v, drone, nil)

	lines := make(chan string, 1)
	lines <- "rtb"

	err := c.monitorATC(context.Background(), lines)
	if !errors.Is(err, ErrControl) {
		t.Errorf("expected ErrControl, got %v", err)
	}
}

// TestMonitorATCEmptyLineEndsCleanly mirrors the "empty line terminates"
// input-stream contract.
func TestMonitorATCEmptyLineEndsCleanly(t *testing.T) {
	v := loadTestVocab(t)
	drone := transport.NewSimDrone(transport.Position{Lat: 48, Lon: 11})
	c := New(Config{CallSign: "cityairbus1234", SystemAddress: "udp://:14550"}, v, drone, nil)

	lines := make(chan string, 1)
	lines <- ""

	if err := c.monitorATC(context.Background(), lines); err != nil {
		t.Errorf("expected clean return on empty line, got %v", err)
	}
}

func TestStateSavePersistsPhase(t *testing.T) {
	v := loadTestVocab(t)
	drone := transport.NewSimDrone(transport.Position{Lat: 48, Lon: 11})
	c := New(Config{CallSign: "cityairbus1234", SystemAddress: "udp://:14550"}, v, drone, nil)

	dir := t.TempDir()
	savePath := filepath.Join(dir, "flight_state.txt")
	if err := c.state.Save(savePath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "parked" {
		t.Errorf("expected persisted phase %q, got %q", "parked", data)
	}
}
