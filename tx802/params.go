package tx802

import "fmt"

// Param is one static entry of the performance parameter table. Edit is
// the TG1 parameter number in the edit buffer (per-TG stride 1), Mem the
// slot-relative byte offset in the packed memory image (per-TG stride
// 8, -1 when the parameter has no memory image position). Mask/Shift
// locate the field inside its memory image byte; several parameters
// share a byte there.
type Param struct {
	Name     string
	Edit     int
	Mem      int
	Mask     byte
	Shift    uint
	Min, Max int
	Wide     bool // value exceeds 7 bits, sent as MSB/LSB on the wire
	Writable bool
}

const (
	// Edit buffer layout: 12 parameter families of 8 TGs each, then the
	// 20 performance name characters.
	nameEditOffset = 96
	nameLen        = 20

	// Memory image layout: 8 packed bytes per TG, then the name.
	memSlotStride = 8
	nameMemOffset = 64
)

// Parameter numbers recovered from the TX802 performance edit
// implementation. OUTATN exists on the front panel but has no confirmed
// wire encoding; LINK has an image position but is owned by the link
// resolver and never written through SetParameter.
var paramTable = []Param{
	{Name: "VCHOFS", Edit: 0, Mem: -1, Min: 0, Max: 7, Writable: true},
	{Name: "RXCH", Edit: 8, Mem: 1, Mask: 0x1F, Min: 0, Max: 16, Writable: true},
	{Name: "VNUM", Edit: 16, Mem: 0, Mask: 0xFF, Min: 0, Max: 255, Wide: true, Writable: true},
	{Name: "DETUNE", Edit: 24, Mem: 2, Mask: 0x0F, Min: 0, Max: 14, Writable: true},
	{Name: "OUTVOL", Edit: 32, Mem: 6, Mask: 0x7F, Min: 0, Max: 99, Writable: true},
	{Name: "OUTCH", Edit: 40, Mem: 2, Mask: 0x30, Shift: 4, Min: 0, Max: 3, Writable: true},
	{Name: "NTMTL", Edit: 48, Mem: 3, Mask: 0x7F, Min: 0, Max: 127, Writable: true},
	{Name: "NTMTH", Edit: 56, Mem: 4, Mask: 0x7F, Min: 0, Max: 127, Writable: true},
	{Name: "NSHFT", Edit: 64, Mem: 5, Mask: 0x3F, Min: 0, Max: 48, Writable: true},
	{Name: "FDAMP", Edit: 72, Mem: 2, Mask: 0x40, Shift: 6, Min: 0, Max: 1, Writable: true},
	{Name: "KASG", Edit: 80, Mem: 2, Mask: 0x80, Shift: 7, Min: 0, Max: 1, Writable: true},
	{Name: "MTTNUM", Edit: 88, Mem: 7, Mask: 0xFF, Min: 0, Max: 254, Wide: true, Writable: true},
	{Name: "LINK", Edit: -1, Mem: 1, Mask: 0xE0, Shift: 5, Min: 1, Max: 8, Writable: false},
	{Name: "OUTATN", Edit: -1, Mem: -1, Writable: false},
}

var paramsByName = func() map[string]Param {
	m := make(map[string]Param, len(paramTable))
	for _, p := range paramTable {
		m[p.Name] = p
	}
	return m
}()

// Resolve looks up a parameter family by name.
func Resolve(name string) (Param, error) {
	p, ok := paramsByName[name]
	if !ok {
		return Param{}, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return p, nil
}

// RangeCheck validates a value against the entry's documented range.
func RangeCheck(p Param, value int) error {
	if value < p.Min || value > p.Max {
		return fmt.Errorf("%w: %s=%d, allowed %d-%d", ErrOutOfRange, p.Name, value, p.Min, p.Max)
	}
	return nil
}

// EditOffset returns the edit buffer parameter number for a TG slot.
func (p Param) EditOffset(tg int) int {
	return p.Edit + tg - 1
}

// MemOffset returns the absolute memory image byte offset for a TG slot.
func (p Param) MemOffset(tg int) int {
	return (tg-1)*memSlotStride + p.Mem
}

func checkTG(tg int) error {
	if tg < 1 || tg > NumTG {
		return fmt.Errorf("%w: TG %d, allowed 1-%d", ErrOutOfRange, tg, NumTG)
	}
	return nil
}
