package tx802

import (
	"bytes"
	"fmt"
	"strings"
)

// NumTG is the number of tone generator slots in the unit.
const NumTG = 8

// OutputAssign routes a TG to the unit's physical outputs.
type OutputAssign int

const (
	OutputOff OutputAssign = iota
	OutputI
	OutputII
	OutputBoth
)

func (o OutputAssign) String() string {
	switch o {
	case OutputOff:
		return "Off"
	case OutputI:
		return "I"
	case OutputII:
		return "II"
	case OutputBoth:
		return "I+II"
	}
	return fmt.Sprintf("OutputAssign(%d)", int(o))
}

// TGSlot is the state of one tone generator. LinkTarget is maintained
// exclusively by the link resolver: a slot is active iff it links to
// itself, otherwise it links to its nearest active left neighbor.
type TGSlot struct {
	Voice              int          `json:"voice"`
	VoiceChannelOffset int          `json:"voice_channel_offset"`
	ReceiveChannel     int          `json:"receive_channel"` // 0-15, 16 = omni
	NoteLow            int          `json:"note_low"`
	NoteHigh           int          `json:"note_high"`
	Detune             int          `json:"detune"`     // 0-14, 7 = center
	NoteShift          int          `json:"note_shift"` // 0-48, 24 = center
	OutputVolume       int          `json:"output_volume"`
	OutputAssign       OutputAssign `json:"output_assign"`
	ForcedDamp         bool         `json:"forced_damp"`
	KeyAssignGroup     bool         `json:"key_assign_group"`
	Microtuning        int          `json:"microtuning"`
	LinkTarget         int          `json:"link_target"`
}

// Performance mirrors the unit's single edit buffer: eight TG slots and
// a 20 character name.
type Performance struct {
	Name  string        `json:"name"`
	Slots [NumTG]TGSlot `json:"slots"`
}

// Slot returns a pointer to the 1-based TG slot.
func (p *Performance) Slot(tg int) *TGSlot {
	return &p.Slots[tg-1]
}

// Active reports whether the 1-based TG slot is active, which is
// derived state: a slot is active iff it is its own link target.
func (p *Performance) Active(tg int) bool {
	return p.Slots[tg-1].LinkTarget == tg
}

// DefaultPerformance is the fixed known-good state the engine assumes
// after a reset: every TG active with the unit's init values.
func DefaultPerformance() Performance {
	p := Performance{Name: "INIT PERFORM"}
	for i := range p.Slots {
		p.Slots[i] = TGSlot{
			NoteHigh:     127,
			Detune:       7,
			NoteShift:    24,
			OutputVolume: 90,
			OutputAssign: OutputBoth,
			LinkTarget:   i + 1,
		}
	}
	return p
}

// validateLinks checks the link chain invariant: TG1 anchors the chain,
// every active slot links to itself and every inactive slot links to
// the greatest active index strictly below it.
func validateLinks(p *Performance) error {
	if p.Slots[0].LinkTarget != 1 {
		return fmt.Errorf("%w: TG1 links to %d", ErrAnchorViolation, p.Slots[0].LinkTarget)
	}
	lastActive := 1
	for tg := 2; tg <= NumTG; tg++ {
		lt := p.Slots[tg-1].LinkTarget
		if lt == tg {
			lastActive = tg
			continue
		}
		if lt != lastActive {
			return fmt.Errorf("link chain broken: TG%d links to %d, nearest active is %d", tg, lt, lastActive)
		}
	}
	return nil
}

// relink recomputes every link target from the given activation set,
// enforcing the single-hop-to-active rule. TG1 is always active.
func relink(p *Performance, active [NumTG]bool) {
	active[0] = true
	lastActive := 1
	for tg := 1; tg <= NumTG; tg++ {
		if active[tg-1] {
			p.Slots[tg-1].LinkTarget = tg
			lastActive = tg
		} else {
			p.Slots[tg-1].LinkTarget = lastActive
		}
	}
}

// activation derives the current activation set from the link targets.
func activation(p *Performance) [NumTG]bool {
	var a [NumTG]bool
	for tg := 1; tg <= NumTG; tg++ {
		a[tg-1] = p.Active(tg)
	}
	return a
}

// normalizeName validates and canonicalizes a performance name: ASCII
// only, truncated to 20 characters. Trailing spaces are stripped since
// the wire format space-pads the name field and cannot tell them from
// padding.
func normalizeName(text string) (string, error) {
	for _, r := range text {
		if r < 0x20 || r > 0x7E {
			return "", fmt.Errorf("%w: rune %q", ErrInvalidName, r)
		}
	}
	if len(text) > nameLen {
		text = text[:nameLen]
	}
	return strings.TrimRight(text, " "), nil
}

// paddedName truncates or space-pads a name to the fixed 20 characters.
func paddedName(name string) []byte {
	b := make([]byte, nameLen)
	for i := range b {
		b[i] = ' '
	}
	copy(b, name)
	return b
}

func fieldValue(s *TGSlot, name string) int {
	switch name {
	case "VCHOFS":
		return s.VoiceChannelOffset
	case "RXCH":
		return s.ReceiveChannel
	case "VNUM":
		return s.Voice
	case "DETUNE":
		return s.Detune
	case "OUTVOL":
		return s.OutputVolume
	case "OUTCH":
		return int(s.OutputAssign)
	case "NTMTL":
		return s.NoteLow
	case "NTMTH":
		return s.NoteHigh
	case "NSHFT":
		return s.NoteShift
	case "FDAMP":
		return boolInt(s.ForcedDamp)
	case "KASG":
		return boolInt(s.KeyAssignGroup)
	case "MTTNUM":
		return s.Microtuning
	}
	return 0
}

func setFieldValue(s *TGSlot, name string, v int) {
	switch name {
	case "VCHOFS":
		s.VoiceChannelOffset = v
	case "RXCH":
		s.ReceiveChannel = v
	case "VNUM":
		s.Voice = v
	case "DETUNE":
		s.Detune = v
	case "OUTVOL":
		s.OutputVolume = v
	case "OUTCH":
		s.OutputAssign = OutputAssign(v)
	case "NTMTL":
		s.NoteLow = v
	case "NTMTH":
		s.NoteHigh = v
	case "NSHFT":
		s.NoteShift = v
	case "FDAMP":
		s.ForcedDamp = v != 0
	case "KASG":
		s.KeyAssignGroup = v != 0
	case "MTTNUM":
		s.Microtuning = v
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EncodePCED renders the performance as the 116 byte edit buffer image,
// one byte per parameter, name characters at the tail.
func EncodePCED(p *Performance) []byte {
	img := make([]byte, PCEDSize)
	for _, entry := range paramTable {
		if entry.Edit < 0 {
			continue
		}
		for tg := 1; tg <= NumTG; tg++ {
			img[entry.EditOffset(tg)] = byte(fieldValue(p.Slot(tg), entry.Name))
		}
	}
	copy(img[nameEditOffset:], paddedName(p.Name))
	return img
}

// DecodePCED rebuilds a performance from an edit buffer image. Link
// targets are not part of the edit buffer; the decoded performance has
// every TG active until a resolver normalizes it.
func DecodePCED(img []byte) (Performance, error) {
	var p Performance
	if len(img) != PCEDSize {
		return p, fmt.Errorf("%w: PCED image is %d bytes, want %d", ErrTruncatedFrame, len(img), PCEDSize)
	}
	for _, entry := range paramTable {
		if entry.Edit < 0 {
			continue
		}
		for tg := 1; tg <= NumTG; tg++ {
			v := int(img[entry.EditOffset(tg)])
			if err := RangeCheck(entry, v); err != nil {
				return Performance{}, fmt.Errorf("TG%d: %w", tg, err)
			}
			setFieldValue(p.Slot(tg), entry.Name, v)
		}
	}
	p.Name = string(bytes.TrimRight(img[nameEditOffset:nameEditOffset+nameLen], " \x00"))
	relink(&p, [NumTG]bool{true, true, true, true, true, true, true, true})
	return p, nil
}

// EncodePMEM renders the performance as the 84 byte packed memory
// image. Fields sharing a byte are merged with EncodeField so sibling
// bits survive each write.
func EncodePMEM(p *Performance) []byte {
	img := make([]byte, PMEMPerformanceSize)
	for _, entry := range paramTable {
		if entry.Mem < 0 {
			continue
		}
		for tg := 1; tg <= NumTG; tg++ {
			var v byte
			if entry.Name == "LINK" {
				v = byte(p.Slot(tg).LinkTarget - 1)
			} else {
				v = byte(fieldValue(p.Slot(tg), entry.Name))
			}
			off := entry.MemOffset(tg)
			img[off] = EncodeField(img[off], v, entry.Mask, entry.Shift)
		}
	}
	copy(img[nameMemOffset:], paddedName(p.Name))
	return img
}

// DecodePMEM rebuilds a performance from a packed memory image. A
// decoded link chain that breaks the invariant discards the whole
// performance rather than repairing it silently.
func DecodePMEM(img []byte) (Performance, error) {
	var p Performance
	if len(img) != PMEMPerformanceSize {
		return p, fmt.Errorf("%w: PMEM image is %d bytes, want %d", ErrTruncatedFrame, len(img), PMEMPerformanceSize)
	}
	for _, entry := range paramTable {
		if entry.Mem < 0 {
			continue
		}
		for tg := 1; tg <= NumTG; tg++ {
			v := int(DecodeField(img[entry.MemOffset(tg)], entry.Mask, entry.Shift))
			if entry.Name == "LINK" {
				p.Slot(tg).LinkTarget = v + 1
				continue
			}
			if err := RangeCheck(entry, v); err != nil {
				return Performance{}, fmt.Errorf("TG%d: %w", tg, err)
			}
			setFieldValue(p.Slot(tg), entry.Name, v)
		}
	}
	p.Name = string(bytes.TrimRight(img[nameMemOffset:nameMemOffset+nameLen], " \x00"))
	if err := validateLinks(&p); err != nil {
		return Performance{}, err
	}
	return p, nil
}
