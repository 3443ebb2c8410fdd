// pkg/vocab/mode.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vocab

// Mode identifies the semantic class of a parsed ATC phrase.
type Mode int

const (
	Altitude Mode = iota
	Heading
	Position
	Takeoff
	Land
	Clearance
	Contact
	Condition
	Report
	Status
	Special
)

var modeNames = map[string]Mode{
	"ALTITUDE":  Altitude,
	"HEADING":   Heading,
	"POSITION":  Position,
	"TAKEOFF":   Takeoff,
	"LAND":      Land,
	"CLEARANCE": Clearance,
	"CONTACT":   Contact,
	"CONDITION": Condition,
	"REPORT":    Report,
	"STATUS":    Status,
	"SPECIAL":   Special,
}

func (m Mode) String() string {
	for name, v := range modeNames {
		if v == m {
			return name
		}
	}
	return "UNKNOWN"
}

// ParamModes admit a decoded value (val/unit) beyond bare mode recognition.
// Modes not in this set (Takeoff, Status, Special) are complete once the
// verb alone matches.
var paramModes = map[Mode]bool{
	Altitude:  true,
	Heading:   true,
	Position:  true,
	Land:      true,
	Clearance: true,
	Contact:   true,
	Condition: true,
	Report:    true,
}

// HasParams reports whether phrases of this mode are expected to carry a
// decoded argument.
func (m Mode) HasParams() bool {
	return paramModes[m]
}
