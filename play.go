package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gitlab.com/gomidi/midi/v2"
)

func playTestNotes(tx *TX802, channel uint8) error {
	notes := []uint8{midi.C(4), midi.E(4), midi.G(4)}
	for _, n := range notes {
		if err := tx.SendMessage(midi.NoteOn(channel, n, 100)); err != nil {
			return fmt.Errorf("note on failed for %d: %w", n, err)
		}
		time.Sleep(200 * time.Millisecond)
		if err := tx.SendMessage(midi.NoteOff(channel, n)); err != nil {
			return fmt.Errorf("note off failed for %d: %w", n, err)
		}
	}
	return nil
}

func playNotesFromText(tx *TX802, channel uint8, notesText string) error {
	tokens := strings.FieldsFunc(notesText, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
	if len(tokens) == 0 {
		return fmt.Errorf("no notes provided")
	}

	for _, tok := range tokens {
		n, isRest, err := parseNoteToken(tok)
		if err != nil {
			return fmt.Errorf("invalid note %q: %w", tok, err)
		}

		if isRest {
			time.Sleep(360 * time.Millisecond)
			continue
		}

		if err := tx.SendMessage(midi.NoteOn(channel, n, 100)); err != nil {
			return fmt.Errorf("note on failed for %d: %w", n, err)
		}
		time.Sleep(300 * time.Millisecond)
		if err := tx.SendMessage(midi.NoteOff(channel, n)); err != nil {
			return fmt.Errorf("note off failed for %d: %w", n, err)
		}
		time.Sleep(60 * time.Millisecond)
	}

	return nil
}

func parseNoteToken(tok string) (uint8, bool, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, false, fmt.Errorf("empty token")
	}

	if strings.EqualFold(t, "r") || strings.EqualFold(t, "rest") {
		return 0, true, nil
	}

	semitone, octave, err := notePitch(t)
	if err != nil {
		return 0, false, err
	}

	// Playback octaves follow the C4 = middle C convention.
	n := 12*(octave+1) + semitone
	if n < 0 || n > 127 {
		return 0, false, fmt.Errorf("MIDI note out of range: %d", n)
	}

	return uint8(n), false, nil
}

// notePitch splits a note token like C4, F#3 or Bb-1 into semitone
// (relative to C, accidental applied) and octave. The octave numbering
// convention is the caller's: playback anchors C4 to middle C, the
// unit's note limit display anchors C3.
func notePitch(tok string) (int, int, error) {
	letter := tok[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}

	var semitone int
	switch letter {
	case 'C':
		semitone = 0
	case 'D':
		semitone = 2
	case 'E':
		semitone = 4
	case 'F':
		semitone = 5
	case 'G':
		semitone = 7
	case 'A':
		semitone = 9
	case 'B':
		semitone = 11
	default:
		return 0, 0, fmt.Errorf("invalid note letter %q", string(tok[0]))
	}

	rest := tok[1:]
	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			semitone++
			rest = rest[1:]
		case 'b', 'B':
			semitone--
			rest = rest[1:]
		}
	}
	if rest == "" {
		return 0, 0, fmt.Errorf("missing octave")
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid octave: %w", err)
	}
	return semitone, octave, nil
}
