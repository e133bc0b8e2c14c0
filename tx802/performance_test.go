package tx802

import (
	"errors"
	"testing"
)

func samplePerformance() Performance {
	p := DefaultPerformance()
	p.Name = "STAGE LEFT"
	p.Slot(1).Voice = 42
	p.Slot(2).ReceiveChannel = 16 // omni
	p.Slot(3).Detune = 11
	p.Slot(3).OutputAssign = OutputII
	p.Slot(3).ForcedDamp = true
	p.Slot(3).KeyAssignGroup = true
	p.Slot(4).NoteLow = 36
	p.Slot(4).NoteHigh = 96
	p.Slot(5).NoteShift = 12
	p.Slot(6).OutputVolume = 25
	p.Slot(7).Voice = 200
	p.Slot(8).Microtuning = 254
	return p
}

func TestDefaultPerformanceInvariant(t *testing.T) {
	p := DefaultPerformance()
	if err := validateLinks(&p); err != nil {
		t.Fatalf("default performance breaks the link invariant: %v", err)
	}
	for tg := 1; tg <= NumTG; tg++ {
		if !p.Active(tg) {
			t.Errorf("TG%d not active in default state", tg)
		}
	}
}

func TestPCEDImageRoundTrip(t *testing.T) {
	p := samplePerformance()
	img := EncodePCED(&p)
	if len(img) != PCEDSize {
		t.Fatalf("image is %d bytes, want %d", len(img), PCEDSize)
	}

	got, err := DecodePCED(img)
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}
}

func TestPMEMImageRoundTrip(t *testing.T) {
	p := samplePerformance()
	// Give the packed image a non-trivial link chain.
	a := activation(&p)
	a[2], a[3], a[6] = false, false, false
	relink(&p, a)

	got, err := DecodePMEM(EncodePMEM(&p))
	if err != nil {
		t.Fatal(err)
	}

	// VCHOFS has no memory image position and zero defaults; everything
	// else must survive, link targets included.
	if got != p {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}
}

func TestPMEMPacksSiblingsIntoOneByte(t *testing.T) {
	p := DefaultPerformance()
	p.Slot(1).Detune = 9
	p.Slot(1).OutputAssign = OutputI
	p.Slot(1).ForcedDamp = true
	p.Slot(1).KeyAssignGroup = true

	img := EncodePMEM(&p)
	packed := img[2] // TG1 slot, shared byte
	if got := DecodeField(packed, 0x0F, 0); got != 9 {
		t.Errorf("detune: got %d, want 9", got)
	}
	if got := DecodeField(packed, 0x30, 4); got != byte(OutputI) {
		t.Errorf("output assign: got %d, want %d", got, OutputI)
	}
	if got := DecodeField(packed, 0x40, 6); got != 1 {
		t.Errorf("forced damp: got %d, want 1", got)
	}
	if got := DecodeField(packed, 0x80, 7); got != 1 {
		t.Errorf("key assign group: got %d, want 1", got)
	}
}

func TestDecodePMEMRejectsBrokenChain(t *testing.T) {
	p := DefaultPerformance()
	img := EncodePMEM(&p)

	// Point TG3 at TG1 while TG2 stays active: the nearest active
	// slot below TG3 is TG2, so the stored chain skips an active hop.
	off := (3 - 1) * memSlotStride
	img[off+1] = EncodeField(img[off+1], 0, 0xE0, 5)
	if _, err := DecodePMEM(img); err == nil {
		t.Fatal("broken link chain decoded without error")
	}
}

func TestDecodePCEDRejectsOutOfRangeBytes(t *testing.T) {
	p := DefaultPerformance()
	img := EncodePCED(&p)
	img[32] = 150 // OUTVOL for TG1, range 0-99
	if _, err := DecodePCED(img); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}
}

func TestNamePadding(t *testing.T) {
	p := DefaultPerformance()
	p.Name = "AB"
	img := EncodePCED(&p)
	if got := string(img[nameEditOffset : nameEditOffset+nameLen]); got != "AB                  " {
		t.Fatalf("padded name %q", got)
	}

	got, err := DecodePCED(img)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "AB" {
		t.Fatalf("decoded name %q", got.Name)
	}
}
