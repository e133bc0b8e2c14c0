package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "embed"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tx802mcp/tx802"
)

func runMCP(tx *TX802, d *tx802.Dispatcher, channel uint8) {

	s := server.NewMCPServer(
		"TX802 MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	docTool := mcp.NewTool("tx802_describe-sysex",
		mcp.WithDescription("Returns the SysEx implementation description for the TX802 tone generator."),
	)

	s.AddTool(docTool, docToolHandler)

	getPerfTool := mcp.NewTool("tx802_get-performance",
		mcp.WithDescription("Returns the current performance state as tracked by the shadow model. The unit cannot be read back; this is the engine's committed view."),
	)
	s.AddTool(getPerfTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling get performance request.")
		return snapshotResult(d)
	})

	editTool := mcp.NewTool("tx802_edit-performance",
		mcp.WithDescription("Edits performance parameters via KEY=VALUE pairs, e.g. 'TG4=Off PRESET2=I10 OUTVOL3=80 RXCH1=Omni NOTELOW3=C2'. Only changed parameters are sent to the unit."),
		mcp.WithString("edits", mcp.Required(), mcp.Description("Space-separated KEY=VALUE pairs. Keys carry the TG number as a suffix (1-8).")),
	)
	s.AddTool(editTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		edits, err := request.RequireString("edits")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Handling edit performance request:", edits)

		if err := applyEdits(d, strings.Fields(edits)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d)
	})

	setTGTool := mcp.NewTool("tx802_set-tg",
		mcp.WithDescription("Switches a tone generator on or off. TG1 anchors the link chain and cannot be switched off."),
		mcp.WithNumber("tg", mcp.Required(), mcp.Description("The tone generator slot (1-8).")),
		mcp.WithBoolean("active", mcp.Required(), mcp.Description("true to switch the TG on, false to switch it off.")),
	)
	s.AddTool(setTGTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tg, err := request.RequireInt("tg")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		active, err := request.RequireBool("active")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Handling set TG request. TG:", tg, "Active:", active)

		if err := d.SetTGActive(tg, active); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d)
	})

	presetTool := mcp.NewTool("tx802_assign-preset",
		mcp.WithDescription("Assigns a voice preset to a tone generator, activating the TG if it was off."),
		mcp.WithNumber("tg", mcp.Required(), mcp.Description("The tone generator slot (1-8).")),
		mcp.WithString("preset", mcp.Required(), mcp.Description("The preset in bank notation (I01-I64, C01-C64, A01-A64, B01-B64).")),
	)
	s.AddTool(presetTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tg, err := request.RequireInt("tg")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		preset, err := request.RequireString("preset")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Handling assign preset request. TG:", tg, "Preset:", preset)

		if err := applyEdit(d, fmt.Sprintf("PRESET%d", tg), preset); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d)
	})

	setNameTool := mcp.NewTool("tx802_set-name",
		mcp.WithDescription("Renames the current performance. Up to 20 ASCII characters."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The new performance name.")),
	)
	s.AddTool(setNameTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Handling set name request:", name)

		if err := d.SetPerformanceName(name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d)
	})

	sendPerfTool := mcp.NewTool("tx802_send-performance",
		mcp.WithDescription("Sends a complete performance to the TX802. Only the parameters that differ from the current shadow state travel over the wire."),
		mcp.WithString("performance-json", mcp.Required(), mcp.Description("The performance data in JSON format. The JSON must conform to the Performance structure.")),
	)
	s.AddTool(sendPerfTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		perfJson, err := request.RequireString("performance-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Handling send performance request. JSON:", perfJson)

		var p tx802.Performance
		if err := json.Unmarshal([]byte(perfJson), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal performance JSON: %v", err)
		}

		if err := d.ApplyPerformance(p); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Performance sent successfully."), nil
	})

	resetTool := mcp.NewTool("tx802_reset-performance",
		mcp.WithDescription("Resets the edit buffer to the known default performance and re-synchronizes the unit."),
	)
	s.AddTool(resetTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling reset request.")

		if err := d.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset performance: %v", err)
		}
		return snapshotResult(d)
	})

	bankTool := mcp.NewTool("tx802_load-bank",
		mcp.WithDescription("Loads a SysEx bank file and lists its performances, or applies one of them to the unit."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path to the .syx bank file.")),
		mcp.WithNumber("index", mcp.Description("1-based performance index to apply. Omit to only list the bank contents.")),
	)
	s.AddTool(bankTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := request.RequireString("file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Handling load bank request:", file)

		data, err := os.ReadFile(file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		perfs, err := tx802.DecodePerformances(data)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		idx := request.GetInt("index", 0)
		if idx == 0 {
			var names []string
			for i, p := range perfs {
				names = append(names, fmt.Sprintf("%d: %s", i+1, p.Name))
			}
			return mcp.NewToolResultText(strings.Join(names, "\n")), nil
		}
		if idx < 1 || idx > len(perfs) {
			return mcp.NewToolResultError(fmt.Sprintf("performance index must be 1-%d", len(perfs))), nil
		}
		if err := d.ApplyPerformance(perfs[idx-1]); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d)
	})

	playNotesTool := mcp.NewTool("tx802_play-test-notes",
		mcp.WithDescription("Plays test notes on the TX802."),
	)
	s.AddTool(playNotesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := playTestNotes(tx, channel); err != nil {
			return nil, fmt.Errorf("failed to play test notes: %v", err)
		}
		return mcp.NewToolResultText("Test notes played successfully."), nil
	})

	notesTool := mcp.NewTool("tx802_play-notes",
		mcp.WithDescription("Plays a sequence of notes on the TX802, e.g. 'C4 E4 G4 r C5'. Use 'r' for a rest."),
		mcp.WithString("notes", mcp.Required(), mcp.Description("Whitespace or comma separated note names with octave.")),
	)
	s.AddTool(notesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		notes, err := request.RequireString("notes")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := playNotesFromText(tx, channel, notes); err != nil {
			return nil, fmt.Errorf("failed to play notes: %v", err)
		}
		return mcp.NewToolResultText("Notes played successfully."), nil
	})

	buttonsTool := mcp.NewTool("tx802_press-buttons",
		mcp.WithDescription("Presses front panel buttons via remote switch messages, e.g. 'PRTCT_OFF,PERFORM_SELECT' or 'CURSOR_RIGHT=3,ENTER'."),
		mcp.WithString("sequence", mcp.Required(), mcp.Description("Comma-separated button names, optionally with repeat counts (BUTTON=N).")),
	)
	s.AddTool(buttonsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sequence, err := request.RequireString("sequence")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Handling button sequence:", sequence)

		if err := runButtonSequence(tx, sequence, 100*time.Millisecond); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Button sequence sent successfully."), nil
	})

	log.Println("Starting TX802 MCP server...")

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}

}

func snapshotResult(d *tx802.Dispatcher) (*mcp.CallToolResult, error) {
	snap := d.Snapshot()
	asJson, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal performance to JSON: %v", err)
	}
	return mcp.NewToolResultText(string(asJson)), nil
}

//go:embed tx802_sysex_implementation_notes.txt
var sysexDoc string

func docToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling SysEx documentation request.")

	return mcp.NewToolResultText(string(sysexDoc)), nil
}
