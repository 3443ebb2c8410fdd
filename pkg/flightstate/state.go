// pkg/flightstate/state.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flightstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/leonce-m/dronebot/pkg/command"
	"github.com/leonce-m/dronebot/pkg/log"
	"github.com/leonce-m/dronebot/pkg/telemetry"
	"github.com/leonce-m/dronebot/pkg/transport"
	"github.com/leonce-m/dronebot/pkg/vocab"
	"github.com/leonce-m/dronebot/pkg/voice"
)

// altitudeReportThresholdMeters gates a condition-scheduled climb: it is
// the altitude both gating ReportAlt commands wait for, and once the
// telemetry cache's altitude is within ReportAlt's MinDiff of it, the
// staged voice response and the gated record both fire. Independent of
// start altitude; kept as the reference behavior's literal default.
const altitudeReportThresholdMeters = 4.6

// takeoffReportAltitudeM is the altitude at which callbackTakeoff's
// inbound-report voice line fires after departure.
const takeoffReportAltitudeM = 10.0

var allowedClearances = map[Phase][]string{
	Parked: {"route"},
	Depart: {"takeoff"},
	Flight: {"ils", "land"},
	Inbound: {"land"},
}

// Machine is the flight-phase state machine: the current phase, the
// command queue it feeds, and the voice queue it stages ATC
// acknowledgements onto.
type Machine struct {
	mu    sync.Mutex
	phase Phase

	queue  *command.Queue
	voiceQ *voice.Queue
	lg     *log.Logger
}

func New(queue *command.Queue, voiceQ *voice.Queue, lg *log.Logger) *Machine {
	return &Machine{queue: queue, voiceQ: voiceQ, lg: lg}
}

// Phase reports the machine's current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Machine) transitionTo(next Phase) {
	m.mu.Lock()
	m.phase = next
	m.mu.Unlock()
	m.lg.Debugf("state: <%s>", next)
}

func toTransportPosition(p vocab.Position) transport.Position {
	return transport.Position{Lat: p.Lat, Lon: p.Lon}
}

// clearanceValid reports whether ci's type is admissible in the
// machine's current phase.
func (m *Machine) clearanceValid(ci *vocab.ClearanceInfo) bool {
	if ci == nil {
		return false
	}
	phase := m.Phase()
	for _, t := range allowedClearances[phase] {
		if t == ci.Type {
			return true
		}
	}
	return false
}

// receiveClearance fires the transition implied by ci from the current
// phase, running the matched row's callback. The caller must already
// have verified clearanceValid.
func (m *Machine) receiveClearance(ci *vocab.ClearanceInfo) error {
	switch m.Phase() {
	case Parked:
		m.transitionTo(Depart)
		m.callbackStartup()
	case Depart:
		m.transitionTo(Flight)
		m.callbackTakeoff()
	case Flight:
		switch ci.Type {
		case "land":
			m.transitionTo(Inbound)
			m.callbackInbound(ci)
		case "ils":
			m.transitionTo(Landing)
			m.callbackLanding(ci)
		default:
			return fmt.Errorf("%w: clearance %q from flight", ErrInvalidTransition, ci.Type)
		}
	case Inbound:
		m.transitionTo(Landing)
		m.callbackLanding(ci)
	default:
		return fmt.Errorf("%w: clearance from %s", ErrInvalidTransition, m.Phase())
	}
	return nil
}

func (m *Machine) callbackStartup() {
	m.queue.Push(command.NewEngineStart(m.lg))
}

func (m *Machine) callbackTakeoff() {
	m.queue.Push(command.NewTakeoff(nil, m.lg))
	voiceTask := command.Task(func(context.Context, transport.Drone, *command.MissionContext, *telemetry.Cache) error {
		m.voiceQ.SpeakNow("inbound, passing 3500 feet climbing flight level five zero")
		return nil
	})
	m.queue.Push(command.NewReportAlt(takeoffReportAltitudeM, voiceTask))
}

func (m *Machine) callbackInbound(ci *vocab.ClearanceInfo) {
	if ci.Position == nil {
		m.lg.Warnf("inbound clearance missing position")
		return
	}
	pos := toTransportPosition(*ci.Position)
	m.queue.Push(command.NewDirect(pos, m.lg))

	phrase := fmt.Sprintf("inbound %s", ci.Description)
	task := command.Task(func(context.Context, transport.Drone, *command.MissionContext, *telemetry.Cache) error {
		m.voiceQ.SpeakNow(phrase)
		return nil
	})
	m.queue.Push(command.NewReportPos(pos, task))
}

func (m *Machine) callbackLanding(ci *vocab.ClearanceInfo) {
	var pos *transport.Position
	if ci.Position != nil {
		p := toTransportPosition(*ci.Position)
		pos = &p
	}
	m.queue.Push(command.NewLand(pos, m.lg))
	m.queue.Push(command.NewReportLanded(m.parkTask()))
}

// park fires the landing->parked event, run as the ReportLanded task
// once the drone reports landed.
func (m *Machine) park() {
	m.mu.Lock()
	if m.phase != Landing {
		m.mu.Unlock()
		m.lg.Warnf("park event fired outside landing phase (phase=%s)", m.phase)
		return
	}
	m.phase = Parked
	m.mu.Unlock()
	m.lg.Debugf("state: <%s>", Parked)
	m.voiceQ.Stage("request engine shutdown")
}

func (m *Machine) parkTask() command.Task {
	return func(context.Context, transport.Drone, *command.MissionContext, *telemetry.Cache) error {
		m.park()
		return nil
	}
}

// update dispatches a single record by mode: enqueuing commands, staging
// voice phrases, and driving clearance-triggered transitions. rec must
// not be nil.
func (m *Machine) update(rec *vocab.Record) {
	m.lg.Debugf("state: <%s>", m.Phase())

	switch rec.Mode {
	case vocab.Altitude:
		m.queue.Push(command.NewAltitude(rec.AltitudeM, m.lg))
		m.voiceQ.Stage(rec.Phrase)

	case vocab.Heading:
		m.queue.Push(command.NewHeading(rec.HeadingDeg, m.lg))
		m.voiceQ.Stage(rec.Phrase)

	case vocab.Position:
		if rec.Position != nil {
			m.queue.Push(command.NewDirect(toTransportPosition(*rec.Position), m.lg))
		}
		m.voiceQ.Stage(rec.Phrase)

	case vocab.Report:
		if rec.Report == "departure" && m.Phase() == Depart {
			m.voiceQ.Stage("ready for departure")
		}

	case vocab.Contact:
		m.voiceQ.SetStation(rec.Contact)
		m.voiceQ.Stage(rec.Phrase)

	case vocab.Clearance:
		if rec.Clearance == nil {
			m.voiceQ.Stage("unable")
			return
		}
		if rec.Clearance.Type == "shutdown" {
			m.queue.Push(command.NewEngineShutdown(m.lg))
			m.voiceQ.Stage(rec.Phrase)
			return
		}
		if m.clearanceValid(rec.Clearance) {
			if err := m.receiveClearance(rec.Clearance); err != nil {
				m.lg.Errorf("%v", err)
				m.voiceQ.Stage("unable")
				return
			}
			m.voiceQ.Stage(rec.Phrase)
		} else {
			m.voiceQ.Stage("unable")
		}
	}
}

// conditionKind is the active gate Pass 1 of HandleCommands is tracking.
type conditionKind int

const (
	condNone conditionKind = iota
	condPosition
	condAltitude
	condRoute
)

// HandleCommands is the main entry from the controller: it runs every
// record from one parsed input line through the two-pass condition
// protocol, then flushes the accumulated voice response.
func (m *Machine) HandleCommands(records []*vocab.Record) {
	var scheduled []*vocab.Record
	kind := condNone
	var condPos *vocab.Position
	var condAlt float64

	for _, rec := range records {
		if rec == nil {
			if m.Phase() == Parked {
				m.voiceQ.Stage("request IFR clearance")
			} else {
				m.voiceQ.Stage("say again")
			}
			continue
		}

		switch {
		case rec.Mode == vocab.Condition && rec.Condition != nil:
			m.voiceQ.Stage(rec.Phrase)
			if rec.Condition.IsAltitude {
				kind, condAlt = condAltitude, rec.Condition.AltitudeM
			} else if rec.Condition.Position != nil {
				kind, condPos = condPosition, rec.Condition.Position
			}

		case kind == condRoute && rec.Mode == vocab.Altitude:
			kind, condAlt = condAltitude, rec.AltitudeM
			scheduled = append(scheduled, rec)

		case rec.Mode == vocab.Clearance && rec.Clearance != nil && rec.Clearance.Type == "route":
			kind = condRoute
			m.update(rec)

		case kind == condPosition || kind == condAltitude:
			scheduled = append(scheduled, rec)

		default:
			m.update(rec)
		}
	}

	m.gateScheduled(kind, condPos, condAlt, scheduled)
	m.voiceQ.Speak()
}

// gateScheduled enqueues the Pass-2 telemetry-gated follow-up for every
// record collected while a condition was active.
func (m *Machine) gateScheduled(kind conditionKind, condPos *vocab.Position, condAlt float64, scheduled []*vocab.Record) {
	for _, rec := range scheduled {
		rec := rec

		switch kind {
		case condPosition:
			pos := toTransportPosition(*condPos)
			m.voiceQ.Stage(rec.Phrase)
			task := command.Task(func(context.Context, transport.Drone, *command.MissionContext, *telemetry.Cache) error {
				m.update(rec)
				return nil
			})
			m.queue.Push(command.NewReportPos(pos, task))

		case condAltitude:
			m.queue.Push(command.NewAltitude(condAlt, m.lg))

			voiceTask := command.Task(func(context.Context, transport.Drone, *command.MissionContext, *telemetry.Cache) error {
				m.voiceQ.SpeakNow(rec.Phrase)
				return nil
			})
			m.queue.Push(command.NewReportAlt(altitudeReportThresholdMeters, voiceTask))

			climbTask := command.Task(func(context.Context, transport.Drone, *command.MissionContext, *telemetry.Cache) error {
				m.update(rec)
				return nil
			})
			m.queue.Push(command.NewReportAlt(altitudeReportThresholdMeters, climbTask))

		default:
			// Records are only scheduled under condPosition or
			// condAltitude; kind ends up elsewhere (condRoute) only when
			// a route clearance later in the same batch reset it, and
			// those scheduled records then run immediately.
			m.update(rec)
		}
	}
}
