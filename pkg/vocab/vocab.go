// pkg/vocab/vocab.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vocab

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leonce-m/dronebot/pkg/util"
)

// Position is a named geodetic point as declared under the grammar's
// POSITIONS table.
type Position struct {
	Name      string
	Lat, Lon  float64
	Altitude  float64 // meters, absolute
	Yaw       float64 // degrees
}

// ClearanceInfo is the decoded argument of a Clearance-mode record.
type ClearanceInfo struct {
	Type        string // one of route, takeoff, ils, land, shutdown
	Position    *Position
	Description string
}

// Condition is the decoded argument of a Condition-mode record: either a
// named position or an altitude gate, never both.
type Condition struct {
	Position  *Position
	AltitudeM float64
	IsAltitude bool
}

// Record is a command record produced by the parser and consumed by the
// flight state machine. Only the field matching Mode is meaningful.
type Record struct {
	Mode   Mode
	Phrase string
	Match  string

	AltitudeM  float64
	HeadingDeg int
	Position   *Position
	Clearance  *ClearanceInfo
	Contact    string
	Condition  *Condition
	Report     string
}

// ErrConfigInvalid is returned by Load when the grammar table is missing
// modes/verbs/nouns or references an undeclared mode.
var ErrConfigInvalid = fmt.Errorf("vocabulary configuration invalid")

type grammarFile struct {
	Modes     map[string]int        `yaml:"MODES"`
	Verbs     map[string][]string   `yaml:"VERBS"`
	Nouns     map[string][]string   `yaml:"NOUNS"`
	Positions map[string][4]float64 `yaml:"POSITIONS"`
}

// Vocabulary is the read-only bundle of verbs, nouns, and named positions
// loaded once at startup and immutable thereafter.
type Vocabulary struct {
	verbs     map[Mode][]*regexp.Regexp
	nouns     map[Mode][]*regexp.Regexp
	positions map[string]Position
	modeOrder []Mode // stable iteration order for FindVerb
}

// Load reads the grammar table at the given path and builds a Vocabulary.
// It fails with ErrConfigInvalid (wrapping an ErrorLogger's accumulated
// messages) if modes, verbs, or nouns are missing or reference undeclared
// modes.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	var gf grammarFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	var el util.ErrorLogger
	el.Push("MODES")
	if len(gf.Modes) == 0 {
		el.ErrorString("no modes declared")
	}
	declared := make(map[string]bool)
	for name := range gf.Modes {
		if _, ok := modeNames[strings.ToUpper(name)]; !ok {
			el.ErrorString("%q is not a recognized mode name", name)
			continue
		}
		declared[strings.ToUpper(name)] = true
	}
	el.Pop()

	v := &Vocabulary{
		verbs:     make(map[Mode][]*regexp.Regexp),
		nouns:     make(map[Mode][]*regexp.Regexp),
		positions: make(map[string]Position),
	}

	el.Push("VERBS")
	if len(gf.Verbs) == 0 {
		el.ErrorString("no verbs declared")
	}
	for name, pats := range gf.Verbs {
		mode, ok := modeNames[strings.ToUpper(name)]
		if !ok || !declared[strings.ToUpper(name)] {
			el.ErrorString("verbs reference undeclared mode %q", name)
			continue
		}
		el.Push(name)
		for _, p := range pats {
			re, err := regexp.Compile(p)
			if err != nil {
				el.Error(err)
				continue
			}
			v.verbs[mode] = append(v.verbs[mode], re)
		}
		el.Pop()
	}
	el.Pop()

	el.Push("NOUNS")
	if len(gf.Nouns) == 0 {
		el.ErrorString("no nouns declared")
	}
	for name, pats := range gf.Nouns {
		mode, ok := modeNames[strings.ToUpper(name)]
		if !ok || !declared[strings.ToUpper(name)] {
			el.ErrorString("nouns reference undeclared mode %q", name)
			continue
		}
		el.Push(name)
		for _, p := range pats {
			re, err := regexp.Compile(p)
			if err != nil {
				el.Error(err)
				continue
			}
			v.nouns[mode] = append(v.nouns[mode], re)
		}
		el.Pop()

		if mode.HasParams() && len(v.nouns[mode]) == 0 {
			el.ErrorString("mode %q admits parameters but has no noun patterns", name)
		}
	}
	el.Pop()

	el.Push("POSITIONS")
	for name, p := range gf.Positions {
		v.positions[name] = Position{Name: name, Lat: p[0], Lon: p[1], Altitude: p[2], Yaw: p[3]}
	}
	el.Pop()

	if el.HaveErrors() {
		return nil, fmt.Errorf("%w: %s", ErrConfigInvalid, el.String())
	}

	v.modeOrder = util.SortedMapKeys(v.verbs)

	return v, nil
}

// NounsFor returns the noun patterns declared for the given mode, in
// declaration order.
func (v *Vocabulary) NounsFor(mode Mode) []*regexp.Regexp {
	return v.nouns[mode]
}

// Position looks up a named position. The second return is false if the
// name is not declared in the grammar's POSITIONS table.
func (v *Vocabulary) Position(name string) (Position, bool) {
	p, ok := v.positions[name]
	return p, ok
}

// FindVerb scans verb patterns across all modes and returns the first
// (lowest start index) match. Iteration order across modes and within a
// mode's pattern list is fixed (modes by numeric value, patterns in
// declaration order), so ties at equal start index resolve the same way
// on every run.
func (v *Vocabulary) FindVerb(phrase string) (start, end int, pattern *regexp.Regexp, mode Mode, ok bool) {
	bestStart := -1
	for _, m := range v.modeOrder {
		for _, re := range v.verbs[m] {
			loc := re.FindStringIndex(phrase)
			if loc == nil {
				continue
			}
			if bestStart == -1 || loc[0] < bestStart {
				bestStart, end, pattern, mode, ok = loc[0], loc[1], re, m, true
				start = loc[0]
			}
		}
	}
	return
}

// Decode regex-searches pattern in phrase; if it matches, it constructs a
// command record applying mode-specific numeric conversion.
func (v *Vocabulary) Decode(pattern *regexp.Regexp, phrase string, mode Mode, matchedVerb string) (*Record, bool) {
	m := pattern.FindStringSubmatch(phrase)
	if m == nil {
		return nil, false
	}
	names := pattern.SubexpNames()
	get := func(name string) string {
		for i, n := range names {
			if n == name && i < len(m) {
				return m[i]
			}
		}
		return ""
	}

	rec := &Record{Mode: mode, Phrase: phrase, Match: matchedVerb}

	val := get("val")
	unit := get("unit")
	typ := get("type")

	switch mode {
	case Altitude:
		f, _ := strconv.ParseFloat(val, 64)
		switch unit {
		case "ft":
			rec.AltitudeM = f * 0.3048 * 0.01
		default:
			// "flightlevel" (the common case; flight-level noun patterns
			// need not capture literal unit text since "flight level" is
			// already the triggering phrase).
			rec.AltitudeM = f * 30.48 * 0.01
		}
	case Heading:
		f, _ := strconv.ParseFloat(val, 64)
		rec.HeadingDeg = int(f)
	case Position:
		if p, ok := v.positions[val]; ok {
			rec.Position = &p
		}
	case Land:
		if p, ok := v.positions[strings.TrimSpace(val+" "+unit)]; ok {
			rec.Position = &p
		}
	case Clearance:
		ci := &ClearanceInfo{Type: typ}
		if typ == "ils" || typ == "land" {
			ci.Description = strings.TrimSpace(val + " " + unit)
			if p, ok := v.positions[ci.Description]; ok {
				ci.Position = &p
			}
		}
		rec.Clearance = ci
	case Contact:
		rec.Contact = val
	case Condition:
		cond := &Condition{}
		if p, ok := v.positions[val]; ok {
			cond.Position = &p
		} else if f, err := strconv.ParseFloat(val, 64); err == nil {
			cond.IsAltitude = true
			cond.AltitudeM = f
		}
		rec.Condition = cond
	case Report:
		rec.Report = val
	}

	return rec, true
}
