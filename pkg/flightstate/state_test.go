// pkg/flightstate/state_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flightstate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonce-m/dronebot/pkg/command"
	"github.com/leonce-m/dronebot/pkg/voice"
	"github.com/leonce-m/dronebot/pkg/vocab"
)

func newHarness() (*Machine, *command.Queue, *voice.Queue) {
	q := command.NewQueue()
	vq := voice.New("manching tower", "cityairbus1234")
	return New(q, vq, nil), q, vq
}

// popAll drains every currently-queued command without blocking past a
// short deadline, for asserting queue contents in test order.
func popAll(t *testing.T, q *command.Queue, n int) []command.Command {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out := make([]command.Command, 0, n)
	for i := 0; i < n; i++ {
		c, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("expected %d queued commands, got %d", n, i)
		}
		out = append(out, c)
	}
	return out
}

func routeClearance() *vocab.Record {
	return &vocab.Record{Mode: vocab.Clearance, Phrase: "cleared route", Clearance: &vocab.ClearanceInfo{Type: "route"}}
}

func takeoffClearance() *vocab.Record {
	return &vocab.Record{Mode: vocab.Clearance, Phrase: "cleared for takeoff", Clearance: &vocab.ClearanceInfo{Type: "takeoff"}}
}

// TestScenario1TakeoffChain mirrors a concrete ATC exchange:
// a route clearance in parked advances to depart, and the following
// takeoff clearance advances depart to flight via the callback chain,
// enqueuing EngineStart then Takeoff (plus the deferred altitude report).
func TestScenario1TakeoffChain(t *testing.T) {
	m, q, _ := newHarness()

	m.HandleCommands([]*vocab.Record{routeClearance()})
	if m.Phase() != Depart {
		t.Fatalf("expected Depart after route clearance, got %s", m.Phase())
	}
	if q.Len() != 1 {
		t.Fatalf("expected callback_startup to queue EngineStart, got %d queued", q.Len())
	}

	m.HandleCommands([]*vocab.Record{takeoffClearance()})
	if m.Phase() != Flight {
		t.Fatalf("expected Flight after takeoff clearance, got %s", m.Phase())
	}

	// callback_startup queued EngineStart; callback_takeoff then queues
	// Takeoff followed by the deferred climb-report ReportAlt.
	cmds := popAll(t, q, 3)
	if _, ok := cmds[0].(*command.EngineStart); !ok {
		t.Errorf("expected first queued command to be EngineStart, got %T", cmds[0])
	}
	if _, ok := cmds[1].(*command.Takeoff); !ok {
		t.Errorf("expected second queued command to be Takeoff, got %T", cmds[1])
	}
	if _, ok := cmds[2].(*command.ReportAlt); !ok {
		t.Errorf("expected third queued command to be ReportAlt, got %T", cmds[2])
	}
}

// TestClearanceInvalidForPhaseStagesUnable asserts that a takeoff
// clearance offered before any route clearance is rejected: the phase
// does not change and no command is queued, only an "unable" voice
// phrase is staged.
func TestClearanceInvalidForPhaseStagesUnable(t *testing.T) {
	m, q, vq := newHarness()

	m.HandleCommands([]*vocab.Record{takeoffClearance()})
	if m.Phase() != Parked {
		t.Fatalf("expected phase to remain Parked, got %s", m.Phase())
	}
	if q.Len() != 0 {
		t.Fatalf("expected no commands queued, got %d", q.Len())
	}

	select {
	case sentence := <-vq.Out():
		if sentence == "" {
			t.Error("expected non-empty unable sentence")
		}
	default:
		t.Error("expected a staged voice sentence after HandleCommands flushed")
	}
}

// TestUnrecognizedRecordStagesSayAgain asserts the nil-record ("not
// understood") path stages "say again" outside Parked.
func TestUnrecognizedRecordStagesSayAgain(t *testing.T) {
	m, _, vq := newHarness()

	m.HandleCommands([]*vocab.Record{routeClearance()}) // advance to Depart first
	<-vq.Out()

	m.HandleCommands([]*vocab.Record{nil})

	select {
	case sentence := <-vq.Out():
		if sentence == "" {
			t.Error("expected non-empty say-again sentence")
		}
	default:
		t.Error("expected a staged voice sentence for the unrecognized record")
	}
}

// TestAltitudeConditionGating exercises the two-pass condition protocol:
// an Altitude record following a Condition(altitude) record is deferred
// rather than queued immediately, and is only released once the gating
// ReportAlt commands are queued ahead of it.
func TestAltitudeConditionGating(t *testing.T) {
	m, q, _ := newHarness()

	condRec := &vocab.Record{
		Mode:      vocab.Condition,
		Phrase:    "at 3000",
		Condition: &vocab.Condition{IsAltitude: true, AltitudeM: 3000},
	}
	altRec := &vocab.Record{Mode: vocab.Altitude, Phrase: "climb flight level one hundred", AltitudeM: 3048}

	m.HandleCommands([]*vocab.Record{condRec, altRec})

	// gateScheduled's condAltitude branch queues: the gate-altitude
	// Altitude command, a ReportAlt that speaks, and a ReportAlt that
	// replays the original record via m.update -- three commands, none
	// of which is the bare immediate Altitude command the record would
	// have produced outside a condition.
	if q.Len() != 3 {
		t.Fatalf("expected 3 gated commands queued, got %d", q.Len())
	}
	cmds := popAll(t, q, 3)
	if _, ok := cmds[0].(*command.Altitude); !ok {
		t.Errorf("expected first gated command to be Altitude (to the condition altitude), got %T", cmds[0])
	}
	if _, ok := cmds[1].(*command.ReportAlt); !ok {
		t.Errorf("expected second gated command to be ReportAlt, got %T", cmds[1])
	}
	if _, ok := cmds[2].(*command.ReportAlt); !ok {
		t.Errorf("expected third gated command to be ReportAlt, got %T", cmds[2])
	}
}

// TestRouteClearanceThenAltitudeGates covers the realistic ATC exchange
// "cleared route, climb flight level one hundred" in a single line: the
// Altitude record following a route clearance on the same pass must be
// promoted to a condAltitude gate (queuing EngineStart immediately from
// the route clearance's callback_startup, then the gated Altitude +
// ReportAlt x2 triplet), not run immediately via the default branch.
func TestRouteClearanceThenAltitudeGates(t *testing.T) {
	m, q, _ := newHarness()

	altRec := &vocab.Record{Mode: vocab.Altitude, Phrase: "climb flight level one hundred", AltitudeM: 3048}
	m.HandleCommands([]*vocab.Record{routeClearance(), altRec})

	if m.Phase() != Depart {
		t.Fatalf("expected Depart after route clearance, got %s", m.Phase())
	}

	// callback_startup queues EngineStart immediately; the Altitude
	// record is gated behind the condAltitude triplet (Altitude,
	// ReportAlt, ReportAlt), not run immediately.
	cmds := popAll(t, q, 4)
	if _, ok := cmds[0].(*command.EngineStart); !ok {
		t.Errorf("expected first queued command to be EngineStart, got %T", cmds[0])
	}
	if _, ok := cmds[1].(*command.Altitude); !ok {
		t.Errorf("expected second queued command to be the gated Altitude, got %T", cmds[1])
	}
	if _, ok := cmds[2].(*command.ReportAlt); !ok {
		t.Errorf("expected third queued command to be ReportAlt, got %T", cmds[2])
	}
	if _, ok := cmds[3].(*command.ReportAlt); !ok {
		t.Errorf("expected fourth queued command to be ReportAlt, got %T", cmds[3])
	}
}

// TestPositionConditionGating exercises the condPosition gating branch:
// a record following a Condition(position) record is deferred behind a
// ReportPos command rather than run immediately.
func TestPositionConditionGating(t *testing.T) {
	m, q, _ := newHarness()

	pos := vocab.Position{Name: "ALPHA", Lat: 48.36, Lon: 11.79}
	condRec := &vocab.Record{
		Mode:      vocab.Condition,
		Phrase:    "at ALPHA",
		Condition: &vocab.Condition{Position: &pos},
	}
	contactRec := &vocab.Record{Mode: vocab.Contact, Phrase: "contact departure", Contact: "departure"}

	m.HandleCommands([]*vocab.Record{condRec, contactRec})

	if q.Len() != 1 {
		t.Fatalf("expected 1 gated ReportPos command queued, got %d", q.Len())
	}
	cmds := popAll(t, q, 1)
	if _, ok := cmds[0].(*command.ReportPos); !ok {
		t.Errorf("expected gated command to be ReportPos, got %T", cmds[0])
	}
}

// TestInvalidTransitionTable walks a set of (phase, clearance type) pairs
// not present in allowedClearances and asserts the phase never advances,
// covering the invariant that parked->flight, parked->landing, and
// depart->landing are all unreachable in a single step.
func TestInvalidTransitionTable(t *testing.T) {
	cases := []struct {
		name  string
		phase Phase
		typ   string
	}{
		{"parked rejects ils", Parked, "ils"},
		{"parked rejects land", Parked, "land"},
		{"depart rejects land", Depart, "land"},
		{"depart rejects route", Depart, "route"},
		{"inbound rejects takeoff", Inbound, "takeoff"},
		{"landing rejects anything", Landing, "route"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, q, _ := newHarness()
			m.phase = tc.phase

			rec := &vocab.Record{Mode: vocab.Clearance, Phrase: "cleared", Clearance: &vocab.ClearanceInfo{Type: tc.typ}}
			m.HandleCommands([]*vocab.Record{rec})

			if m.Phase() != tc.phase {
				t.Errorf("expected phase to remain %s, got %s", tc.phase, m.Phase())
			}
			if q.Len() != 0 {
				t.Errorf("expected no command queued for a rejected clearance, got %d", q.Len())
			}
		})
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	m, _, _ := newHarness()
	m.phase = Flight

	path := filepath.Join(t.TempDir(), "flight_state.txt")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, _, _ := newHarness()
	if err := restored.Restore(path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Phase() != Flight {
		t.Errorf("expected restored phase Flight, got %s", restored.Phase())
	}
}

func TestRestoreMissingFileDefaultsToParked(t *testing.T) {
	m, _, _ := newHarness()
	path := filepath.Join(t.TempDir(), "does-not-exist.txt")
	if err := m.Restore(path); err == nil {
		t.Fatal("expected an error restoring a missing file")
	}
	if m.Phase() != Parked {
		t.Errorf("expected phase to remain Parked after a failed restore, got %s", m.Phase())
	}
}

func TestParsePhaseRoundTrip(t *testing.T) {
	for _, p := range []Phase{Parked, Depart, Flight, Inbound, Landing} {
		got, err := ParsePhase(p.String())
		if err != nil {
			t.Fatalf("ParsePhase(%q): %v", p.String(), err)
		}
		if got != p {
			t.Errorf("ParsePhase(%q) = %v, want %v", p.String(), got, p)
		}
	}
	if _, err := ParsePhase("bogus"); err == nil {
		t.Error("expected an error for an unrecognized phase name")
	}
}
