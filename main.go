package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"tx802mcp/tx802"
)

func main() {
	const (
		// TG1 listens on channel 1 (0-based value 0) in the default
		// performance.
		tx802Channel  uint8 = 0
		tx802DeviceID byte  = 0x00
		nameHint            = "tx802"

		// Vintage MIDI interfaces drop rapid SysEx bursts.
		frameDelay = 30 * time.Millisecond
	)

	log.Println("Available MIDI outputs:")
	log.Print(midi.GetOutPorts().String())

	portIdx, err := findOutPort(nameHint)
	if err != nil {
		log.Fatalf("could not find TX802 MIDI out port: %v", err)
	}

	tx, closer, err := OpenTX802(tx802DeviceID, portIdx)
	if err != nil {
		log.Fatalf("failed to open TX802 output: %v", err)
	}
	defer closer()

	d, err := tx802.NewDispatcher(tx, tx802DeviceID, frameDelay)
	if err != nil {
		log.Fatalf("failed to create dispatcher: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "play":
			if err := playTestNotes(tx, tx802Channel); err != nil {
				log.Fatalf("failed to play test notes: %v", err)
			}
			return

		case "notes":
			if len(os.Args) < 3 {
				log.Fatal("usage: notes \"C4 E4 G4 r C5\"")
			}
			if err := playNotesFromText(tx, tx802Channel, strings.Join(os.Args[2:], " ")); err != nil {
				log.Fatalf("failed to play notes: %v", err)
			}
			return

		case "reset":
			if err := d.Reset(); err != nil {
				log.Fatalf("failed to reset performance: %v", err)
			}
			printSnapshot(d)
			return

		case "edit":
			if len(os.Args) < 3 {
				log.Fatal("usage: edit KEY=VALUE [KEY=VALUE ...]")
			}
			if err := applyEdits(d, os.Args[2:]); err != nil {
				log.Fatalf("failed to apply edits: %v", err)
			}
			printSnapshot(d)
			return

		case "bank":
			if len(os.Args) < 3 {
				log.Fatal("usage: bank FILE [INDEX]")
			}
			loadBank(d, os.Args[2], os.Args[3:])
			return

		case "buttons":
			if len(os.Args) < 3 {
				log.Fatal("usage: buttons SEQUENCE (e.g. \"PRTCT_OFF,PERFORM_SELECT\")")
			}
			if err := runButtonSequence(tx, strings.Join(os.Args[2:], ","), 100*time.Millisecond); err != nil {
				log.Fatalf("failed to run button sequence: %v", err)
			}
			return

		case "startup":
			if err := startupSequence(tx, 100*time.Millisecond); err != nil {
				log.Fatalf("failed to run startup sequence: %v", err)
			}
			return

		case "mcp":
			runMCP(tx, d, tx802Channel)
			return

		default:
			log.Fatalf("unknown command %q", os.Args[1])
		}
	}
	log.Println("exiting: no command specified")
}

func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

// loadBank reads a .syx bank file, lists its performances and, when an
// index is given, pushes that performance to the unit.
func loadBank(d *tx802.Dispatcher, file string, args []string) {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("failed to read bank file: %v", err)
	}

	perfs, err := tx802.DecodePerformances(data)
	if err != nil {
		log.Fatalf("failed to decode bank: %v", err)
	}

	if len(args) == 0 {
		for i, p := range perfs {
			fmt.Printf("%3d  %s\n", i+1, p.Name)
		}
		return
	}

	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 1 || idx > len(perfs) {
		log.Fatalf("performance index must be 1-%d", len(perfs))
	}
	if err := d.ApplyPerformance(perfs[idx-1]); err != nil {
		log.Fatalf("failed to apply performance: %v", err)
	}
	printSnapshot(d)
}

func printSnapshot(d *tx802.Dispatcher) {
	snap := d.Snapshot()
	asJson, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal performance to JSON: %v", err)
	}
	fmt.Println(string(asJson))
}
