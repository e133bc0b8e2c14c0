package main

import (
	"testing"

	"tx802mcp/tx802"
)

type nullTransport struct {
	frames int
}

func (n *nullTransport) Send(data []byte) error {
	n.frames++
	return nil
}

func testDispatcher(t *testing.T) (*tx802.Dispatcher, *nullTransport) {
	t.Helper()
	tx := &nullTransport{}
	d, err := tx802.NewDispatcher(tx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	return d, tx
}

func TestApplyEdits(t *testing.T) {
	d, tx := testDispatcher(t)

	edits := []string{
		"TG4=Off",
		"PRESET2=I10",
		"VNUM3=74",
		"RXCH1=Omni",
		"OUTVOL5=80",
		"NOTELOW3=C2",
		"NOTEHIGH3=G8",
		"DETUNE6=+3",
		"NOTESHIFT7=-12",
		"PAN8=Left",
		"NAME=STAGE RIG",
	}
	if err := applyEdits(d, edits); err != nil {
		t.Fatal(err)
	}
	if tx.frames == 0 {
		t.Fatal("no frames sent")
	}

	snap := d.Snapshot()
	if snap.Active(4) {
		t.Error("TG4 still active")
	}
	if got := snap.Slot(2).Voice; got != 9 {
		t.Errorf("PRESET2=I10: voice %d, want 9", got)
	}
	if got := snap.Slot(3).Voice; got != 73 {
		t.Errorf("VNUM3=74: voice %d, want 73", got)
	}
	if got := snap.Slot(1).ReceiveChannel; got != 16 {
		t.Errorf("RXCH1=Omni: channel %d, want 16", got)
	}
	if got := snap.Slot(5).OutputVolume; got != 80 {
		t.Errorf("OUTVOL5: %d, want 80", got)
	}
	if got := snap.Slot(3).NoteLow; got != 48 {
		t.Errorf("NOTELOW3=C2: %d, want 48", got)
	}
	if got := snap.Slot(3).NoteHigh; got != 127 {
		t.Errorf("NOTEHIGH3=G8: %d, want 127", got)
	}
	if got := snap.Slot(6).Detune; got != 10 {
		t.Errorf("DETUNE6=+3: %d, want 10", got)
	}
	if got := snap.Slot(7).NoteShift; got != 12 {
		t.Errorf("NOTESHIFT7=-12: %d, want 12", got)
	}
	if got := snap.Slot(8).OutputAssign; got != tx802.OutputI {
		t.Errorf("PAN8=Left: %v, want I", got)
	}
	if snap.Name != "STAGE RIG" {
		t.Errorf("name %q", snap.Name)
	}
}

func TestApplyEditsBankNotation(t *testing.T) {
	cases := []struct {
		preset string
		voice  int
	}{
		{"I01", 0},
		{"I64", 63},
		{"C01", 64},
		{"A33", 160},
		{"B64", 255},
	}
	for _, c := range cases {
		d, _ := testDispatcher(t)
		if err := applyEdits(d, []string{"PRESET1=" + c.preset}); err != nil {
			t.Fatalf("%s: %v", c.preset, err)
		}
		snap := d.Snapshot()
		if got := snap.Slot(1).Voice; got != c.voice {
			t.Errorf("%s: voice %d, want %d", c.preset, got, c.voice)
		}
	}
}

func TestApplyEditsRejectsBadInput(t *testing.T) {
	bad := []string{
		"OUTVOL3",
		"OUTVOL=80",
		"OUTVOL9=80",
		"OUTVOL3=150",
		"TG1=Off",
		"TG4=maybe",
		"PRESET2=X10",
		"PRESET2=I65",
		"NOTELOW3=H2",
		"CUTOFF3=64",
	}
	for _, arg := range bad {
		d, _ := testDispatcher(t)
		if err := applyEdits(d, []string{arg}); err == nil {
			t.Errorf("%q accepted", arg)
		}
	}
}

func TestNoteNumber(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"C-2", 0},
		{"C3", 60},
		{"A3", 69},
		{"C#2", 49},
		{"A#1", 46},
		{"Bb1", 46},
		{"G8", 127},
	}
	for _, c := range cases {
		got, err := noteNumber(c.name)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, got, c.want)
		}
	}

	for _, bad := range []string{"", "H2", "C", "G#8"} {
		if _, err := noteNumber(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestParseButtonSpec(t *testing.T) {
	name, repeat, err := parseButtonSpec(" cursor_right=3 ")
	if err != nil {
		t.Fatal(err)
	}
	if name != "CURSOR_RIGHT" || repeat != 3 {
		t.Errorf("got %s x%d", name, repeat)
	}

	name, repeat, err = parseButtonSpec("ENTER")
	if err != nil {
		t.Fatal(err)
	}
	if name != "ENTER" || repeat != 1 {
		t.Errorf("got %s x%d", name, repeat)
	}

	name, _, err = parseButtonSpec("code=96")
	if err != nil {
		t.Fatal(err)
	}
	if name != "CODE=96" {
		t.Errorf("got %s", name)
	}

	for _, bad := range []string{"", "ENTER=0", "ENTER=x"} {
		if _, _, err := parseButtonSpec(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestParseNoteToken(t *testing.T) {
	n, rest, err := parseNoteToken("C4")
	if err != nil || rest || n != 60 {
		t.Errorf("C4: n=%d rest=%v err=%v", n, rest, err)
	}

	n, rest, err = parseNoteToken("F#3")
	if err != nil || rest || n != 54 {
		t.Errorf("F#3: n=%d rest=%v err=%v", n, rest, err)
	}

	_, rest, err = parseNoteToken("r")
	if err != nil || !rest {
		t.Errorf("r: rest=%v err=%v", rest, err)
	}

	if _, _, err := parseNoteToken("X4"); err == nil {
		t.Error("X4 accepted")
	}
}
