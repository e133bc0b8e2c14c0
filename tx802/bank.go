package tx802

import (
	"bytes"
	"fmt"
)

// SplitFrames slices a byte stream (typically a .syx file) into its
// individual F0..F7 messages. Performance banks ship as several bulk
// frames back to back.
func SplitFrames(data []byte) ([][]byte, error) {
	var frames [][]byte
	rest := data
	for {
		start := bytes.IndexByte(rest, sysexStart)
		if start < 0 {
			break
		}
		end := bytes.IndexByte(rest[start:], sysexEnd)
		if end < 0 {
			return nil, fmt.Errorf("%w: F0 without matching F7", ErrTruncatedFrame)
		}
		frames = append(frames, rest[start:start+end+1])
		rest = rest[start+end+1:]
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no SysEx messages found", ErrMalformedFrame)
	}
	return frames, nil
}

// DecodePerformances parses every PCED/PMEM frame in a byte stream into
// performances. Any decode error discards the whole batch: a partially
// decoded bank never reaches the shadow state.
func DecodePerformances(data []byte) ([]Performance, error) {
	raw, err := SplitFrames(data)
	if err != nil {
		return nil, err
	}

	perfs := make([]Performance, 0, len(raw))
	for i, fr := range raw {
		fields, err := ParseFrame(fr)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i+1, err)
		}

		var p Performance
		switch fields.Kind {
		case KindPCED:
			p, err = DecodePCED(fields.Payload)
		case KindPMEM:
			p, err = DecodePMEM(fields.Payload)
		default:
			return nil, fmt.Errorf("frame %d: %w: %v is not performance data", i+1, ErrUnrecognizedFrame, fields.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i+1, err)
		}
		perfs = append(perfs, p)
	}
	return perfs, nil
}
