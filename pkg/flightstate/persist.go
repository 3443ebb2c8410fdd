// pkg/flightstate/persist.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flightstate

import (
	"os"
	"strings"
)

// DefaultSavePath is where Machine.Save writes and Restore reads the
// persisted phase, matching the original's saves/ directory convention.
const DefaultSavePath = "saves/flight_state.txt"

// Save writes the machine's current phase to path as plain text.
func (m *Machine) Save(path string) error {
	m.mu.Lock()
	phase := m.phase
	m.mu.Unlock()

	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return err
	}
	m.lg.Debugf("saving flight state: %s", phase)
	return os.WriteFile(path, []byte(phase.String()), 0o644)
}

// Restore loads a persisted phase from path into the machine. On any
// read or parse failure it leaves the machine at Parked and returns the
// error, matching the original's conservative fallback on a missing or
// corrupt save file.
func (m *Machine) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		m.lg.Warnf("restoring flight state failed, defaulting to parked: %v", err)
		m.transitionTo(Parked)
		return err
	}
	phase, err := ParsePhase(strings.TrimSpace(string(data)))
	if err != nil {
		m.lg.Warnf("restoring flight state failed, defaulting to parked: %v", err)
		m.transitionTo(Parked)
		return err
	}
	m.mu.Lock()
	m.phase = phase
	m.mu.Unlock()
	m.lg.Debugf("restored flight state: %s", phase)
	return nil
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}
