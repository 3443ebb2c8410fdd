// pkg/parser/parser.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package parser

import (
	"fmt"
	"strings"

	"github.com/leonce-m/dronebot/pkg/log"
	"github.com/leonce-m/dronebot/pkg/vocab"
)

// Parser tokenizes an inbound text line, verifies the callsign, splits the
// remainder into verb-anchored phrases, and produces a sequence of
// structured command records.
type Parser struct {
	vocab    *vocab.Vocabulary
	callSign string
	lg       *log.Logger
}

func New(v *vocab.Vocabulary, callSign string, lg *log.Logger) *Parser {
	return &Parser{vocab: v, callSign: callSign, lg: lg}
}

// HandleCommand parses one input line into a list of command records. A
// nil entry in the returned slice is the "say again" sentinel, signalling
// that something in the line did not parse. HandleCommand never returns
// an error: every failure is captured into the result list or logged.
func (p *Parser) HandleCommand(line string) []*vocab.Record {
	norm := normalizeNumbers(line)

	tokens := strings.Fields(norm)
	if len(tokens) == 0 {
		return nil
	}

	consumed := 1
	if len(tokens) > 1 && isAllDigits(tokens[1]) {
		tokens[0] += tokens[1]
		consumed = 2
	}

	if tokens[0] != p.callSign {
		p.lg.Infof("%v: Call sign '%s' not recognized", ErrCommunication, tokens[0])
		return []*vocab.Record{nil}
	}

	remaining := strings.Join(tokens[consumed:], " ")
	return p.segment(remaining)
}

// segment recursively splits the remaining string at verb boundaries:
// find the first verb, find the next verb at or after it, the current
// phrase runs up to the next verb's start (or end of line), then recurse
// on the suffix beginning at the next verb. A line with no recognized
// verb at all yields a single nil ("say again") sentinel.
func (p *Parser) segment(line string) []*vocab.Record {
	if _, _, _, _, ok := p.vocab.FindVerb(line); !ok {
		p.lg.Infof("%v: no known verb in %q", ErrCommunication, line)
		return []*vocab.Record{nil}
	}

	var records []*vocab.Record

	offset := 0
	for offset < len(line) {
		i1, i2, pattern, mode, ok := p.vocab.FindVerb(line[offset:])
		if !ok {
			break
		}
		start := offset + i1
		end := offset + i2

		j1, _, _, _, ok2 := p.vocab.FindVerb(line[end:])

		var phraseEnd int
		if ok2 {
			phraseEnd = end + j1
		} else {
			phraseEnd = len(line)
		}

		phrase := line[start:phraseEnd]
		verbMatch := line[start:end]
		records = append(records, p.handlePhrase(phrase, mode, verbMatch)...)

		if !ok2 {
			break
		}
		offset = end + j1
	}

	return records
}

// handlePhrase decodes one verb-anchored phrase against every noun
// pattern declared for its mode. Every successful decode appends one
// record. If nothing matches and the mode expects parameters, a
// diagnostic is logged (not raised). Modes without parameters produce a
// bare mode-only record.
func (p *Parser) handlePhrase(phrase string, mode vocab.Mode, verbMatch string) []*vocab.Record {
	var records []*vocab.Record

	if !mode.HasParams() {
		records = append(records, &vocab.Record{Mode: mode, Phrase: phrase, Match: verbMatch})
		return records
	}

	matched := false
	for _, pat := range p.vocab.NounsFor(mode) {
		if rec, ok := p.vocab.Decode(pat, phrase, mode, verbMatch); ok {
			records = append(records, rec)
			matched = true
		}
	}

	if !matched {
		p.lg.Debugf("no noun pattern matched mode %v in phrase %q", mode, phrase)
	}

	return records
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormatRecord is a small diagnostic helper that renders a record (or
// the None sentinel) as a string.
func FormatRecord(r *vocab.Record) string {
	if r == nil {
		return "<none>"
	}
	return fmt.Sprintf("%v(%s)", r.Mode, r.Phrase)
}
