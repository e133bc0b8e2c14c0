package main

import (
	"fmt"
	"log"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"tx802mcp/tx802"
)

// TX802 wraps an opened MIDI output port. It satisfies tx802.Transport,
// so a Dispatcher can push SysEx straight into it, and it also carries
// channel messages for note playback.
type TX802 struct {
	devID byte
	out   drivers.Out
}

func OpenTX802(devID byte, portIndex int) (*TX802, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}

	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	log.Println("Opened TX802 MIDI output port", devID, out.String())
	return &TX802{
		devID: devID,
		out:   out,
	}, closer, nil
}

// Send transmits a raw SysEx frame. This is the tx802.Transport method;
// the TX802 never answers, so delivery is best effort.
func (t *TX802) Send(data []byte) error {
	if !t.out.IsOpen() {
		if err := t.out.Open(); err != nil {
			return err
		}
	}
	return t.out.Send(data)
}

// SendMessage transmits a channel message (notes, controllers).
func (t *TX802) SendMessage(msg midi.Message) error {
	return t.Send(msg.Bytes())
}

var _ tx802.Transport = (*TX802)(nil)
