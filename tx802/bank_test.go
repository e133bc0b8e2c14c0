package tx802

import (
	"errors"
	"testing"
)

func bankBytes(t *testing.T, perfs ...Performance) []byte {
	t.Helper()
	var data []byte
	for i := range perfs {
		frame, err := BuildFrame(KindPMEM, 0, EncodePMEM(&perfs[i]))
		if err != nil {
			t.Fatal(err)
		}
		data = append(data, frame...)
	}
	return data
}

func TestDecodePerformancesBank(t *testing.T) {
	a := DefaultPerformance()
	a.Name = "FIRST"
	b := samplePerformance()
	c := DefaultPerformance()
	c.Slot(2).Voice = 17

	perfs, err := DecodePerformances(bankBytes(t, a, b, c))
	if err != nil {
		t.Fatal(err)
	}
	if len(perfs) != 3 {
		t.Fatalf("decoded %d performances, want 3", len(perfs))
	}
	if perfs[0].Name != "FIRST" {
		t.Errorf("first name %q", perfs[0].Name)
	}
	if perfs[1] != b {
		t.Errorf("second performance mismatch:\n got %+v\nwant %+v", perfs[1], b)
	}
	if perfs[2].Slot(2).Voice != 17 {
		t.Errorf("third voice %d, want 17", perfs[2].Slot(2).Voice)
	}
}

func TestDecodePerformancesMixedKinds(t *testing.T) {
	p := samplePerformance()
	pced, err := BuildFrame(KindPCED, 0, EncodePCED(&p))
	if err != nil {
		t.Fatal(err)
	}
	data := append([]byte(nil), pced...)
	data = append(data, bankBytes(t, DefaultPerformance())...)

	perfs, err := DecodePerformances(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(perfs) != 2 {
		t.Fatalf("decoded %d performances, want 2", len(perfs))
	}
}

func TestDecodePerformancesCorruptByteDiscardsBatch(t *testing.T) {
	data := bankBytes(t, DefaultPerformance(), samplePerformance())

	// One flipped bit inside the second frame's checksummed region must
	// take the whole batch down, not just that frame.
	data[len(data)-20] ^= 0x01
	if _, err := DecodePerformances(data); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("got %v, want ErrChecksumMismatch", err)
	}
}

func TestDecodePerformancesRejectsForeignFrames(t *testing.T) {
	link, err := BuildFrame(KindLinkControl, 0, []byte{2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodePerformances(link); !errors.Is(err, ErrUnrecognizedFrame) {
		t.Fatalf("got %v, want ErrUnrecognizedFrame", err)
	}
}

func TestSplitFrames(t *testing.T) {
	data := bankBytes(t, DefaultPerformance(), DefaultPerformance())
	frames, err := SplitFrames(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("split into %d frames, want 2", len(frames))
	}

	if _, err := SplitFrames(data[:len(data)-1]); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("dangling F0: got %v, want ErrTruncatedFrame", err)
	}
	if _, err := SplitFrames([]byte{0x01, 0x02}); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("no SysEx: got %v, want ErrMalformedFrame", err)
	}
}
