package tx802

import (
	"fmt"
	"sync"
	"time"
)

// Transport sends one complete SysEx message to the device. It is the
// engine's only outward dependency: no acknowledgment and no read path
// exist, so Send either delivers best-effort or reports an error.
type Transport interface {
	Send(data []byte) error
}

// Dispatcher owns the shadow store and turns high-level intents into
// ordered frame sequences. Intents run one at a time to completion: mu
// serializes concurrent callers (e.g. MCP tool handlers) across
// validate, diff, send and commit, so frame batches never interleave
// on the wire. The store is committed only after every frame of an
// intent has been handed to the transport, so a transport failure
// leaves the model at its last good snapshot. The device may then be
// partially updated -- with no read-back that divergence cannot be
// auto-corrected, and retry policy is deliberately left to the caller.
type Dispatcher struct {
	mu     sync.Mutex
	store  *ShadowStore
	tx     Transport
	device byte
	delay  time.Duration
}

// NewDispatcher wires a dispatcher to a transport. frameDelay is the
// minimum pause between frames of one batch; vintage MIDI interfaces
// drop rapid SysEx bursts, so throttling is worth a little latency.
func NewDispatcher(tx Transport, device byte, frameDelay time.Duration) (*Dispatcher, error) {
	if device > 15 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDeviceNumber, device)
	}
	return &Dispatcher{
		store:  NewShadowStore(),
		tx:     tx,
		device: device,
		delay:  frameDelay,
	}, nil
}

// Snapshot exposes the shadow state for display.
func (d *Dispatcher) Snapshot() Performance {
	return d.store.Snapshot()
}

// SetTGActive switches a tone generator on or off and recomputes the
// link chain. TG1 anchors the chain and can never be switched off.
func (d *Dispatcher) SetTGActive(tg int, active bool) error {
	if err := checkTG(tg); err != nil {
		return err
	}
	if tg == 1 && !active {
		return ErrAnchorViolation
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.store.Snapshot()
	a := activation(&next)
	a[tg-1] = active
	relink(&next, a)
	return d.dispatch(next)
}

// AssignPreset sets the voice of a TG slot. The hardware activates an
// inactive slot when a voice is assigned to it, so the resolver applies
// the activation first and propagates the link recomputation.
func (d *Dispatcher) AssignPreset(tg int, voice int) error {
	if err := checkTG(tg); err != nil {
		return err
	}
	entry, err := Resolve("VNUM")
	if err != nil {
		return err
	}
	if err := RangeCheck(entry, voice); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.store.Snapshot()
	a := activation(&next)
	a[tg-1] = true
	relink(&next, a)
	next.Slot(tg).Voice = voice
	return d.dispatch(next)
}

// SetParameter writes one named parameter on a TG slot. Validation runs
// before any frame is built: an invalid write leaves both the shadow
// state and the wire untouched.
func (d *Dispatcher) SetParameter(tg int, name string, value int) error {
	if err := checkTG(tg); err != nil {
		return err
	}
	entry, err := Resolve(name)
	if err != nil {
		return err
	}
	if !entry.Writable {
		return fmt.Errorf("%w: %s", ErrParameterNotWritable, name)
	}
	if err := RangeCheck(entry, value); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.store.Snapshot()
	setFieldValue(next.Slot(tg), name, value)
	return d.dispatch(next)
}

// SetPerformanceName renames the performance. Names are truncated or
// space-padded to 20 characters on the wire; non-ASCII input is
// rejected because the unit's character set is plain ASCII.
func (d *Dispatcher) SetPerformanceName(text string) error {
	name, err := normalizeName(text)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.store.Snapshot()
	next.Name = name
	return d.dispatch(next)
}

// ApplyPerformance replaces the whole edit buffer with a decoded
// performance, e.g. one loaded from a bank file. The link chain is
// renormalized from the performance's own activation set before
// diffing, so a foreign file cannot smuggle in a broken chain.
func (d *Dispatcher) ApplyPerformance(p Performance) error {
	for _, entry := range paramTable {
		if entry.Edit < 0 {
			continue
		}
		for tg := 1; tg <= NumTG; tg++ {
			if err := RangeCheck(entry, fieldValue(p.Slot(tg), entry.Name)); err != nil {
				return fmt.Errorf("TG%d: %w", tg, err)
			}
		}
	}
	name, err := normalizeName(p.Name)
	if err != nil {
		return err
	}
	p.Name = name
	relink(&p, activation(&p))

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatch(p)
}

// Reset re-initializes the shadow state to the fixed default and emits
// the full corresponding frame sequence: one PCED dump plus a link
// frame per TG. This substitutes for the read-back the hardware cannot
// provide -- after a reset the device provably matches the model.
func (d *Dispatcher) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := DefaultPerformance()

	frames := make([]Frame, 0, 1+NumTG)
	pced, err := BuildFrame(KindPCED, d.device, EncodePCED(&next))
	if err != nil {
		return err
	}
	frames = append(frames, pced)
	for tg := 1; tg <= NumTG; tg++ {
		f, err := BuildFrame(KindLinkControl, d.device, []byte{byte(tg - 1), byte(next.Slot(tg).LinkTarget - 1)})
		if err != nil {
			return err
		}
		frames = append(frames, f)
	}
	return d.send(frames, next)
}

// dispatch diffs the working copy against the committed snapshot and
// sends the resulting batch. An empty diff sends nothing.
func (d *Dispatcher) dispatch(next Performance) error {
	prev := d.store.Snapshot()
	frames, err := diffFrames(&prev, &next, d.device)
	if err != nil {
		return err
	}
	return d.send(frames, next)
}

func (d *Dispatcher) send(frames []Frame, next Performance) error {
	for i, f := range frames {
		if i > 0 && d.delay > 0 {
			time.Sleep(d.delay)
		}
		if err := d.tx.Send(f); err != nil {
			return fmt.Errorf("transport failed on frame %d of %d, shadow state not committed: %w", i+1, len(frames), err)
		}
	}
	return d.store.apply(func(p *Performance) error {
		*p = next
		return nil
	})
}

// diffFrames computes the minimal ordered frame sequence that moves the
// device from prev to next. Link frames go first, left to right, since
// a slot's resolved target can depend on its neighbor's transition
// having logically preceded it; parameter frames follow in ascending
// edit buffer order. Each frame is independently idempotent.
func diffFrames(prev, next *Performance, device byte) ([]Frame, error) {
	var frames []Frame

	for tg := 1; tg <= NumTG; tg++ {
		pl, nl := prev.Slot(tg).LinkTarget, next.Slot(tg).LinkTarget
		if pl == nl {
			continue
		}
		f, err := BuildFrame(KindLinkControl, device, []byte{byte(tg - 1), byte(nl - 1)})
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}

	prevImg := EncodePCED(prev)
	nextImg := EncodePCED(next)
	for off := 0; off < PCEDSize; off++ {
		if prevImg[off] == nextImg[off] {
			continue
		}
		v := nextImg[off]
		body := []byte{byte(off), v}
		if wideEditOffset(off) {
			body = []byte{byte(off), v >> 7, v & 0x7F}
		}
		f, err := BuildFrame(KindParameterChange, device, body)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}

	return frames, nil
}

// wideEditOffset reports whether the edit buffer offset belongs to a
// parameter whose value exceeds 7 bits and travels as MSB/LSB.
func wideEditOffset(off int) bool {
	for _, entry := range paramTable {
		if entry.Wide && off >= entry.Edit && off < entry.Edit+NumTG {
			return true
		}
	}
	return false
}
