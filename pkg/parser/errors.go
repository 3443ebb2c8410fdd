// pkg/parser/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package parser

import "errors"

// ErrCommunication signals that an input line did not parse: an unknown
// callsign, or a phrase with no recognized verb. It is never returned to
// callers of HandleCommand -- it is captured as a nil ("say again")
// sentinel record and logged.
var ErrCommunication = errors.New("communication error")
