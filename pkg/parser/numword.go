// pkg/parser/numword.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package parser

import (
	"regexp"
	"strings"
)

// digitWords maps spoken number words to digits, mirroring the subset of
// text_to_num's English number vocabulary this grammar actually uses
// (callsign and altitude/heading digit groups are always spoken
// digit-by-digit in this phraseology, never as compound numbers like
// "twenty-one").
var digitWords = map[string]string{
	"zero":  "0",
	"one":   "1",
	"two":   "2",
	"three": "3",
	"four":  "4",
	"five":  "5",
	"six":   "6",
	"seven": "7",
	"eight": "8",
	"niner": "9",
	"nine":  "9",
}

var numberWordPattern = regexp.MustCompile(`(?i)\b(zero|one|two|three|four|five|six|seven|eight|niner|nine)\b`)
var digitGapPattern = regexp.MustCompile(`(\d)\s+(\d)`)

// normalizeNumbers converts alphabetic number-words to digits ("flight
// level five zero" -> "flight level 5 0"), then collapses whitespace
// between adjacent digit runs so multi-digit groups read as a single
// token ("5 0" -> "50"). Applying the digit-gap collapse repeatedly
// handles runs of more than two spoken digits.
func normalizeNumbers(s string) string {
	s = numberWordPattern.ReplaceAllStringFunc(s, func(w string) string {
		return digitWords[strings.ToLower(w)]
	})
	for {
		next := digitGapPattern.ReplaceAllString(s, "$1$2")
		if next == s {
			break
		}
		s = next
	}
	return s
}
