// Package tx802 implements the device state synchronization engine for
// the Yamaha TX802 tone generator: a SysEx frame codec, the performance
// parameter table, a shadow model of the eight TG slots, and the link
// resolver / diff dispatcher that keeps the model and the device
// consistent over a one-way MIDI connection.
package tx802

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange           = errors.New("value out of range")
	ErrUnknownParameter     = errors.New("unknown parameter")
	ErrParameterNotWritable = errors.New("parameter not writable")
	ErrAnchorViolation      = errors.New("TG1 is the link anchor and cannot be switched off")
	ErrInvalidName          = errors.New("performance name must be printable ASCII")
	ErrInvalidDeviceNumber  = errors.New("device number must be in range 0-15")
	ErrMalformedFrame       = errors.New("malformed SysEx frame")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrTruncatedFrame       = errors.New("truncated SysEx frame")
	ErrUnrecognizedFrame    = errors.New("unrecognized SysEx frame")
)

const (
	sysexStart = 0xF0
	sysexEnd   = 0xF7
	yamahaID   = 0x43

	bulkFormat = 0x7E // universal bulk dump, ASCII-hex encoded

	// Group 6, subgroup 2: performance edit buffer parameter change.
	groupPerformance = 0x1A
	// Group 6, subgroup 3: front panel remote switch.
	GroupRemoteSwitch = 0x1B

	// Undocumented selector for TG link control, reverse engineered.
	linkParam = 0x07

	pcedIdent = "LM  8952PE"
	pmemIdent = "LM--8952PM"

	// PCEDSize is the raw edit buffer size: parameters 0-95 plus the
	// 20 performance name characters at 96-115.
	PCEDSize = 116
	// PMEMPerformanceSize is the packed size of one performance in a
	// memory image.
	PMEMPerformanceSize = 84

	identLen      = 10
	pcedRegionLen = identLen + 2*PCEDSize            // 242, the checksummed region
	pmemRegionLen = identLen + 2*PMEMPerformanceSize // 178
	pcedFrameLen  = 6 + pcedRegionLen + 2            // 250 bytes on the wire
	pmemFrameLen  = 6 + pmemRegionLen + 2            // 186 bytes on the wire
)

// FrameKind identifies one of the four wire frame shapes the engine
// produces or consumes.
type FrameKind int

const (
	KindPCED FrameKind = iota
	KindPMEM
	KindParameterChange
	KindLinkControl
)

func (k FrameKind) String() string {
	switch k {
	case KindPCED:
		return "PCED"
	case KindPMEM:
		return "PMEM"
	case KindParameterChange:
		return "ParameterChange"
	case KindLinkControl:
		return "LinkControl"
	}
	return fmt.Sprintf("FrameKind(%d)", int(k))
}

// Frame is one complete immutable SysEx message, ready for a transport.
type Frame []byte

// PayloadFields is the result of parsing a frame back into its parts.
// For bulk kinds Payload holds the decoded raw bytes, for the 7-bit
// kinds it holds the body between the group byte and the terminator.
type PayloadFields struct {
	Kind    FrameKind
	Device  byte
	Payload []byte
}

// EncodeField merges value into the bits of current reserved by mask,
// leaving sibling bits untouched. Callers pass the full current byte so
// packed neighbors survive (read-modify-write).
func EncodeField(current, value, mask byte, shift uint) byte {
	return (current &^ mask) | ((value << shift) & mask)
}

// DecodeField extracts the field selected by mask/shift from a packed
// byte. Exact inverse of EncodeField.
func DecodeField(packed, mask byte, shift uint) byte {
	return (packed & mask) >> shift
}

const hexDigits = "0123456789ABCDEF"

// ToASCIIHexPair renders a byte as two ASCII characters '0'-'9','A'-'F',
// high nibble first, the encoding Yamaha bulk dumps use.
func ToASCIIHexPair(b byte) (hi, lo byte) {
	return hexDigits[b>>4], hexDigits[b&0x0F]
}

// FromASCIIHexPair is the inverse of ToASCIIHexPair.
func FromASCIIHexPair(hi, lo byte) (byte, error) {
	h, err := hexNibble(hi)
	if err != nil {
		return 0, err
	}
	l, err := hexNibble(lo)
	if err != nil {
		return 0, err
	}
	return h<<4 | l, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("%w: byte 0x%02X is not an ASCII hex digit", ErrMalformedFrame, c)
}

func asciiHexEncode(dst, src []byte) []byte {
	for _, b := range src {
		hi, lo := ToASCIIHexPair(b)
		dst = append(dst, hi, lo)
	}
	return dst
}

func asciiHexDecode(src []byte) ([]byte, error) {
	if len(src)%2 != 0 {
		return nil, fmt.Errorf("%w: odd ASCII hex length %d", ErrMalformedFrame, len(src))
	}
	out := make([]byte, 0, len(src)/2)
	for i := 0; i < len(src); i += 2 {
		b, err := FromASCIIHexPair(src[i], src[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Checksum computes the single checksum byte for a bulk dump region:
// the two's complement of the region sum, truncated to 7 bits, so that
// region bytes plus checksum sum to zero modulo 128.
func Checksum(region []byte) byte {
	var sum byte
	for _, b := range region {
		sum = (sum + b) & 0x7F
	}
	return (0x80 - sum) & 0x7F
}

// VerifyChecksum recomputes the checksum over region and compares.
func VerifyChecksum(region []byte, sum byte) error {
	if got := Checksum(region); got != sum {
		return fmt.Errorf("%w: computed 0x%02X, frame carries 0x%02X", ErrChecksumMismatch, got, sum)
	}
	return nil
}

// BuildFrame assembles one complete SysEx message of the given kind.
// For KindPCED/KindPMEM the payload is the raw buffer image and gets
// ASCII-hex encoded; for KindParameterChange/KindLinkControl the
// payload bytes go on the wire as 7-bit values.
func BuildFrame(kind FrameKind, device byte, payload []byte) (Frame, error) {
	if device > 15 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDeviceNumber, device)
	}

	switch kind {
	case KindPCED:
		return buildBulk(device, pcedIdent, PCEDSize, payload)
	case KindPMEM:
		return buildBulk(device, pmemIdent, PMEMPerformanceSize, payload)
	case KindParameterChange:
		if len(payload) < 2 || len(payload) > 3 {
			return nil, fmt.Errorf("%w: parameter change wants param plus 1-2 data bytes, got %d", ErrMalformedFrame, len(payload))
		}
		return buildSevenBit(device, payload)
	case KindLinkControl:
		if len(payload) != 2 {
			return nil, fmt.Errorf("%w: link control wants TG and target bytes, got %d", ErrMalformedFrame, len(payload))
		}
		body := append([]byte{linkParam}, payload...)
		return buildSevenBit(device, body)
	}
	return nil, fmt.Errorf("%w: kind %v", ErrUnrecognizedFrame, kind)
}

func buildBulk(device byte, ident string, rawSize int, payload []byte) (Frame, error) {
	if len(payload) != rawSize {
		return nil, fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrTruncatedFrame, ident, len(payload), rawSize)
	}

	hexLen := 2 * rawSize
	f := make(Frame, 0, 6+identLen+hexLen+2)
	f = append(f, sysexStart, yamahaID, device, bulkFormat)
	f = append(f, byte(hexLen>>7)&0x7F, byte(hexLen)&0x7F)

	regionStart := len(f)
	f = append(f, ident...)
	f = asciiHexEncode(f, payload)
	f = append(f, Checksum(f[regionStart:]), sysexEnd)
	return f, nil
}

func buildSevenBit(device byte, body []byte) (Frame, error) {
	for _, b := range body {
		if b > 0x7F {
			return nil, fmt.Errorf("%w: data byte 0x%02X exceeds 7 bits", ErrMalformedFrame, b)
		}
	}
	f := make(Frame, 0, 5+len(body))
	f = append(f, sysexStart, yamahaID, 0x10|device, groupPerformance)
	f = append(f, body...)
	f = append(f, sysexEnd)
	return f, nil
}

// ParseFrame is the inverse of BuildFrame. It recognizes the four frame
// kinds, validates length and checksum, and returns the decoded payload.
func ParseFrame(data []byte) (PayloadFields, error) {
	var out PayloadFields

	if len(data) < 7 {
		return out, fmt.Errorf("%w: %d bytes", ErrTruncatedFrame, len(data))
	}
	if data[0] != sysexStart || data[len(data)-1] != sysexEnd {
		return out, fmt.Errorf("%w: missing F0/F7 framing", ErrMalformedFrame)
	}
	if data[1] != yamahaID {
		return out, fmt.Errorf("%w: manufacturer 0x%02X is not Yamaha", ErrUnrecognizedFrame, data[1])
	}

	status := data[2]
	out.Device = status & 0x0F

	switch status & 0xF0 {
	case 0x00:
		return parseBulk(out, data)
	case 0x10:
		return parseSevenBit(out, data)
	}
	return out, fmt.Errorf("%w: sub-status 0x%02X", ErrUnrecognizedFrame, status)
}

func parseBulk(out PayloadFields, data []byte) (PayloadFields, error) {
	if data[3] != bulkFormat {
		return out, fmt.Errorf("%w: bulk format 0x%02X", ErrUnrecognizedFrame, data[3])
	}
	if len(data) < 6+identLen+2 {
		return out, fmt.Errorf("%w: %d bytes", ErrTruncatedFrame, len(data))
	}

	var wantLen int
	switch string(data[6 : 6+identLen]) {
	case pcedIdent:
		out.Kind = KindPCED
		wantLen = pcedFrameLen
	case pmemIdent:
		out.Kind = KindPMEM
		wantLen = pmemFrameLen
	default:
		return out, fmt.Errorf("%w: classification %q", ErrUnrecognizedFrame, data[6:6+identLen])
	}
	if len(data) != wantLen {
		return out, fmt.Errorf("%w: %v frame is %d bytes, want %d", ErrTruncatedFrame, out.Kind, len(data), wantLen)
	}

	region := data[6 : len(data)-2]
	if err := VerifyChecksum(region, data[len(data)-2]); err != nil {
		return out, err
	}

	raw, err := asciiHexDecode(region[identLen:])
	if err != nil {
		return out, err
	}
	out.Payload = raw
	return out, nil
}

func parseSevenBit(out PayloadFields, data []byte) (PayloadFields, error) {
	if data[3] != groupPerformance {
		return out, fmt.Errorf("%w: group byte 0x%02X", ErrUnrecognizedFrame, data[3])
	}
	body := data[4 : len(data)-1]
	switch {
	case len(body) == 3 && body[0] == linkParam:
		out.Kind = KindLinkControl
		out.Payload = append([]byte(nil), body[1:]...)
	case len(body) == 2 || len(body) == 3:
		out.Kind = KindParameterChange
		out.Payload = append([]byte(nil), body...)
	default:
		return out, fmt.Errorf("%w: parameter change body is %d bytes", ErrTruncatedFrame, len(body))
	}
	return out, nil
}
