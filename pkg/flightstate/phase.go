// pkg/flightstate/phase.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package flightstate implements the flight-phase state machine: the
// small set of phases a sortie moves through, the ATC clearances that
// drive transitions between them, and the two-pass translation of a
// parsed command batch into queued command objects and staged voice
// acknowledgements.
package flightstate

import "fmt"

// Phase is one node of the flight-phase state machine.
type Phase int

const (
	Parked Phase = iota
	Depart
	Flight
	Inbound
	Landing
)

var phaseNames = map[Phase]string{
	Parked:  "parked",
	Depart:  "depart",
	Flight:  "flight",
	Inbound: "inbound",
	Landing: "landing",
}

var phaseValues = map[string]Phase{
	"parked":  Parked,
	"depart":  Depart,
	"flight":  Flight,
	"inbound": Inbound,
	"landing": Landing,
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// ParsePhase recovers a Phase from its String() form, as read back from
// persisted state.
func ParsePhase(s string) (Phase, error) {
	if p, ok := phaseValues[s]; ok {
		return p, nil
	}
	return Parked, fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}
