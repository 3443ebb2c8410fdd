// pkg/command/context.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package command

import (
	"sync"

	"github.com/leonce-m/dronebot/pkg/transport"
)

const defaultTargetAltitudeM = 5.0

// MissionContext holds the one piece of state shared across move
// commands: the last uploaded mission plan and the current target
// altitude. It is owned by the controller and passed explicitly into
// every command's Execute -- never global state.
type MissionContext struct {
	mu             sync.Mutex
	lastPlan       *transport.MissionPlan
	targetAltitude float64
}

func NewMissionContext() *MissionContext {
	return &MissionContext{targetAltitude: defaultTargetAltitudeM}
}

func (m *MissionContext) LastPlan() *transport.MissionPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPlan
}

func (m *MissionContext) SetLastPlan(p transport.MissionPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPlan = &p
}

func (m *MissionContext) TargetAltitude() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetAltitude
}

func (m *MissionContext) SetTargetAltitude(alt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targetAltitude = alt
}
