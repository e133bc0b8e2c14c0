package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tx802mcp/tx802"
)

// applyEdits parses KEY=VALUE performance edits and applies them through
// the dispatcher. Keys carry the TG number as a suffix (OUTVOL3=80) and
// accept the unit's display nomenclature on top of the raw parameter
// names:
//
//	TG4=Off            switch a tone generator off (On to switch on)
//	PRESET2=I10        voice by bank and program, banks I/C/A/B 01-64
//	VNUM2=74           voice by 1-based number (1-256)
//	RXCH1=Omni         receive channel 1-16 or Omni
//	NOTELOW3=C2        note limits by name, C-2 to G8
//	DETUNE5=+3         signed values are relative to center
//	PAN6=Left          Off/I/Left/II/Right/I+II/Center, maps to OUTCH
//	NAME=MY PERFORM    performance name, up to 20 ASCII chars
func applyEdits(d *tx802.Dispatcher, args []string) error {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		if err := applyEdit(d, strings.ToUpper(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

var presetRe = regexp.MustCompile(`^([ICAB])(\d{2})$`)

func applyEdit(d *tx802.Dispatcher, key, value string) error {
	if key == "NAME" {
		return d.SetPerformanceName(value)
	}

	name, tg, err := splitParamKey(key)
	if err != nil {
		return err
	}

	switch name {
	case "TG":
		switch strings.ToUpper(value) {
		case "ON":
			return d.SetTGActive(tg, true)
		case "OFF":
			return d.SetTGActive(tg, false)
		}
		return fmt.Errorf("want On or Off, got %q", value)

	case "PRESET":
		m := presetRe.FindStringSubmatch(strings.ToUpper(value))
		if m == nil {
			return fmt.Errorf("want I01-I64, C01-C64, A01-A64 or B01-B64, got %q", value)
		}
		num, _ := strconv.Atoi(m[2])
		if num < 1 || num > 64 {
			return fmt.Errorf("preset number %02d out of range 01-64", num)
		}
		base := map[string]int{"I": 0, "C": 64, "A": 128, "B": 192}[m[1]]
		return d.AssignPreset(tg, base+num-1)

	case "VNUM":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid voice number %q", value)
		}
		return d.AssignPreset(tg, v-1)

	case "RXCH":
		if strings.EqualFold(value, "Omni") {
			return d.SetParameter(tg, "RXCH", 16)
		}
		ch, err := strconv.Atoi(value)
		if err != nil || ch < 1 || ch > 16 {
			return fmt.Errorf("want channel 1-16 or Omni, got %q", value)
		}
		if ch == 16 {
			// Channel 16 is addressable; Omni is the explicit keyword.
			return d.SetParameter(tg, "RXCH", 15)
		}
		return d.SetParameter(tg, "RXCH", ch-1)

	case "NOTELOW", "NOTEHIGH":
		n, err := noteNumber(value)
		if err != nil {
			return err
		}
		target := "NTMTL"
		if name == "NOTEHIGH" {
			target = "NTMTH"
		}
		return d.SetParameter(tg, target, n)

	case "PAN":
		v, ok := map[string]int{
			"OFF":    0,
			"I":      1,
			"LEFT":   1,
			"II":     2,
			"RIGHT":  2,
			"I+II":   3,
			"CENTER": 3,
		}[strings.ToUpper(value)]
		if !ok {
			return fmt.Errorf("want Off, I, II, I+II, Left, Right or Center, got %q", value)
		}
		return d.SetParameter(tg, "OUTCH", v)

	case "DETUNE":
		return setCentered(d, tg, "DETUNE", value, 7)

	case "NOTESHIFT", "NSHFT":
		return setCentered(d, tg, "NSHFT", value, 24)

	case "VCHOFS", "OUTVOL", "OUTCH", "NTMTL", "NTMTH", "FDAMP", "KASG", "MTTNUM":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value %q", value)
		}
		return d.SetParameter(tg, name, v)
	}
	return fmt.Errorf("unknown parameter %q", name)
}

// setCentered handles parameters displayed relative to a center value:
// an explicit sign makes the input relative, a bare number is absolute.
func setCentered(d *tx802.Dispatcher, tg int, name, value string, center int) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value %q", value)
	}
	if strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-") {
		v += center
	}
	return d.SetParameter(tg, name, v)
}

// splitParamKey splits OUTVOL3 into OUTVOL and TG 3.
func splitParamKey(key string) (string, int, error) {
	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	if i == len(key) {
		return "", 0, fmt.Errorf("missing TG number in %q", key)
	}
	tg, err := strconv.Atoi(key[i:])
	if err != nil || tg < 1 || tg > tx802.NumTG {
		return "", 0, fmt.Errorf("TG number in %q out of range 1-%d", key, tx802.NumTG)
	}
	return key[:i], tg, nil
}

// noteNumber converts a note name in the unit's display convention
// (C-2 to G8, note 0 = C-2) to a MIDI note number.
func noteNumber(name string) (int, error) {
	t := strings.TrimSpace(name)
	if t == "" {
		return 0, fmt.Errorf("empty note name")
	}
	semitone, octave, err := notePitch(t)
	if err != nil {
		return 0, err
	}
	n := (octave+2)*12 + semitone
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %q out of range C-2 to G8", name)
	}
	return n, nil
}
