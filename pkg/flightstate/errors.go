// pkg/flightstate/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flightstate

import "errors"

// ErrInvalidPhase is returned by ParsePhase for an unrecognized phase
// name, and returned by Restore on a corrupt persistence file.
var ErrInvalidPhase = errors.New("flightstate: invalid phase name")

// ErrInvalidTransition is returned by receiveClearance when a clearance
// is not valid for the current phase, mirroring the original's
// MachineError on a rejected transition.
var ErrInvalidTransition = errors.New("flightstate: invalid transition")
