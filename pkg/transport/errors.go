// pkg/transport/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package transport

import "errors"

// Errors from the flight-controller transport are discriminated by
// family, not by individual type, matching the three RPC families named
// in the transport contract (actions, telemetry streams, missions).
type ActionErrorKind struct{ err error }

func (e *ActionErrorKind) Error() string { return "action error: " + e.err.Error() }
func (e *ActionErrorKind) Unwrap() error { return e.err }

func NewActionError(err error) error { return &ActionErrorKind{err: err} }

type TelemetryErrorKind struct{ err error }

func (e *TelemetryErrorKind) Error() string { return "telemetry error: " + e.err.Error() }
func (e *TelemetryErrorKind) Unwrap() error { return e.err }

func NewTelemetryError(err error) error { return &TelemetryErrorKind{err: err} }

type MissionErrorKind struct{ err error }

func (e *MissionErrorKind) Error() string { return "mission error: " + e.err.Error() }
func (e *MissionErrorKind) Unwrap() error { return e.err }

func NewMissionError(err error) error { return &MissionErrorKind{err: err} }

// IsAction, IsTelemetry, and IsMission classify a transport error by
// family so callers (try_action's Go rendering, the controller's
// top-level run loop) can catch only the enumerated transport error
// kinds rather than a blanket exception.
func IsAction(err error) bool {
	var e *ActionErrorKind
	return errors.As(err, &e)
}

func IsTelemetry(err error) bool {
	var e *TelemetryErrorKind
	return errors.As(err, &e)
}

func IsMission(err error) bool {
	var e *MissionErrorKind
	return errors.As(err, &e)
}

// IsTransport reports whether err is one of the three recognized
// transport error families.
func IsTransport(err error) bool {
	return IsAction(err) || IsTelemetry(err) || IsMission(err)
}
