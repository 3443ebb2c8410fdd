// pkg/voice/voice.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package voice stages outgoing ATC phraseology and hands finished
// sentences to whatever renders them -- a TTS engine, a log line, a test
// spy. Rendering the audio itself is out of scope; this package only
// owns phrase accumulation, the station/callsign framing, and the
// outbound queue of finished sentences.
package voice

import (
	"fmt"
	"strings"
	"sync"
)

var phoneticAlphabet = map[rune]string{
	'a': "alpha", 'b': "bravo", 'c': "charlie", 'd': "delta", 'e': "echo",
	'f': "foxtrot", 'g': "golf", 'h': "hotel", 'i': "india", 'j': "juliet",
	'k': "kilo", 'l': "lima", 'm': "mike", 'n': "november", 'o': "oscar",
	'p': "papa", 'q': "quebec", 'r': "romeo", 's': "sierra", 't': "tango",
	'u': "uniform", 'v': "victor", 'w': "whiskey", 'x': "xray", 'y': "yankee",
	'z': "zulu",
}

var digitWords = map[rune]string{
	'0': "zero", '1': "one", '2': "two", '3': "three", '4': "four",
	'5': "five", '6': "six", '7': "seven", '8': "eight", '9': "nine",
}

// readback spells a call sign's trailing digit run via the digits'
// number words, keeping the leading word (the operator name) as plain
// text. The suffix comes from splitCallSign and holds digits only, so
// letters in a call sign are never spelled via the NATO alphabet.
func readback(callSign string) string {
	word, suffix := splitCallSign(callSign)

	var b strings.Builder
	if word != "" {
		b.WriteString(capitalize(word))
	}
	for _, c := range suffix {
		lc := unicodeToLower(c)
		if w, ok := digitWords[lc]; ok {
			b.WriteString(" " + w)
		} else if w, ok := phoneticAlphabet[lc]; ok {
			b.WriteString(" " + w)
		}
	}
	return b.String()
}

// splitCallSign separates a call sign into its leading pronounceable
// word and its trailing digit run, e.g. "cityairbus1234" -> ("cityairbus", "1234").
func splitCallSign(callSign string) (word, suffix string) {
	i := len(callSign)
	for i > 0 && callSign[i-1] >= '0' && callSign[i-1] <= '9' {
		i--
	}
	return callSign[:i], callSign[i:]
}

func unicodeToLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// Queue accumulates staged phrases and renders them into full sentences
// on Speak, one sentence per call, delivered to Out.
type Queue struct {
	mu       sync.Mutex
	station  string
	callSign string
	pending  []string
	out      chan string
}

func New(station, callSign string) *Queue {
	return &Queue{station: station, callSign: callSign, out: make(chan string, 64)}
}

// Out is the channel of finished sentences awaiting a renderer.
func (q *Queue) Out() <-chan string { return q.out }

// SetStation changes the ATC station addressed in future sentences, as
// when a Contact-mode record hands the drone to a new frequency.
func (q *Queue) SetStation(station string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.station = station
}

// Stage appends phrase to the pending sentence without rendering it.
func (q *Queue) Stage(phrase string) {
	if phrase == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, phrase)
}

// Speak renders all staged phrases (if any) plus the station/callsign
// framing into one sentence and delivers it to Out. A no-op if nothing
// is staged.
func (q *Queue) Speak() {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	sentence := strings.Join(q.pending, ", ")
	station, callSign := q.station, q.callSign
	q.pending = nil
	q.mu.Unlock()

	full := fmt.Sprintf("%s, %s, %s.", capitalize(station), sentence, readback(callSign))
	q.deliver(full)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SpeakNow stages phrase and immediately renders it, for acknowledgements
// that don't need to accumulate with anything else.
func (q *Queue) SpeakNow(phrase string) {
	q.Stage(phrase)
	q.Speak()
}

func (q *Queue) deliver(sentence string) {
	select {
	case q.out <- sentence:
	default:
		// Out is a bounded backstop; a stalled renderer must not block
		// the flight state machine.
	}
}
