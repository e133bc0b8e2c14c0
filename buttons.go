package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tx802mcp/tx802"
)

// Front panel button codes for the remote switch message. Several codes
// carry more than one label because the hardware reuses them per mode.
var buttonCodes = map[string]byte{
	"RESET":     64,
	"INT":       75,
	"CRT":       76,
	"LOWERCASE": 78,
	"UPPERCASE": 79,

	// Multi-press character buttons: 0 cycles 0 -> a -> b -> c and so on.
	"0":    65,
	"1":    66,
	"2":    67,
	"3":    68,
	"4":    69,
	"5":    70,
	"6":    71,
	"7":    72,
	"8":    73,
	"9":    74,
	"DASH": 80,

	"SPACE": 77,

	"CURSOR_LEFT":  75,
	"CURSOR_RIGHT": 76,
	"ENTER":        77,

	"MINUS_ONE": 78,
	"OFF":       78,
	"NO":        78,
	"PLUS_ONE":  79,
	"ON":        79,
	"YES":       79,
	"STORE":     88,
	"COMPARE":   88,

	"PERFORM_SELECT": 81,
	"VOICE_SELECT":   82,
	"SYSTEM_SETUP":   83,
	"UTILITY":        84,
	"PERFORM_EDIT":   85,
	"VOICE_EDIT_I":   86,
	"VOICE_EDIT_II":  87,

	"TG1": 89,
	"TG2": 90,
	"TG3": 91,
	"TG4": 92,
	"TG5": 93,
	"TG6": 94,
	"TG7": 95,
	"TG8": 96,
}

// pressButton sends one remote switch message, simulating a front panel
// button press.
func pressButton(tx *TX802, code byte) error {
	msg := []byte{0xF0, 0x43, 0x10 | tx.devID, tx802.GroupRemoteSwitch, code, 0x00, 0xF7}
	return tx.Send(msg)
}

// runButtonSequence processes a comma-separated button sequence, e.g.
// "SYSTEM_SETUP,TG8,NO" or "CURSOR_RIGHT=3,ENTER". Virtual commands
// expand to real presses: POS1 homes the cursor, PRTCT_OFF/PRTCT_ON
// toggle memory protect, CODE=n sends a raw switch code.
func runButtonSequence(tx *TX802, sequence string, delay time.Duration) error {
	for _, spec := range strings.Split(sequence, ",") {
		name, repeat, err := parseButtonSpec(spec)
		if err != nil {
			return err
		}

		var codes []byte
		switch {
		case name == "POS1":
			// The name field is 20 characters; 19 left presses reach
			// column one from anywhere.
			left := buttonCodes["CURSOR_LEFT"]
			for i := 0; i < 19; i++ {
				codes = append(codes, left)
			}
		case name == "PRTCT_OFF":
			codes = []byte{buttonCodes["SYSTEM_SETUP"], buttonCodes["TG8"], buttonCodes["NO"]}
		case name == "PRTCT_ON":
			codes = []byte{buttonCodes["SYSTEM_SETUP"], buttonCodes["TG8"], buttonCodes["YES"]}
		case strings.HasPrefix(name, "CODE="):
			n, err := strconv.Atoi(name[len("CODE="):])
			if err != nil || n < 0 || n > 127 {
				return fmt.Errorf("invalid raw switch code %q", spec)
			}
			codes = []byte{byte(n)}
		default:
			code, ok := buttonCodes[name]
			if !ok {
				return fmt.Errorf("unknown button %q", name)
			}
			for i := 0; i < repeat; i++ {
				codes = append(codes, code)
			}
		}

		for _, code := range codes {
			if err := pressButton(tx, code); err != nil {
				return fmt.Errorf("button %q: %w", name, err)
			}
			time.Sleep(delay)
		}
	}
	return nil
}

// parseButtonSpec splits "BUTTON" or "BUTTON=N" into name and repeat
// count. CODE=n keeps its argument in the name.
func parseButtonSpec(spec string) (string, int, error) {
	name := strings.ToUpper(strings.TrimSpace(spec))
	if name == "" {
		return "", 0, fmt.Errorf("empty button spec")
	}
	if strings.HasPrefix(name, "CODE=") {
		return name, 1, nil
	}

	repeat := 1
	if eq := strings.IndexByte(name, '='); eq >= 0 {
		n, err := strconv.Atoi(name[eq+1:])
		if err != nil || n < 1 {
			return "", 0, fmt.Errorf("invalid repeat count in %q", spec)
		}
		name, repeat = name[:eq], n
	}
	return name, repeat, nil
}

// startupSequence puts a freshly powered unit into a known mode:
// memory protect off, then performance select.
func startupSequence(tx *TX802, delay time.Duration) error {
	return runButtonSequence(tx, "PRTCT_OFF,PERFORM_SELECT", delay)
}
