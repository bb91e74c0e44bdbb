package dnswire

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed wire size of a DNS header (RFC 1035 §4.1.1).
const HeaderSize = 12

// Header flag bits and masks.
const (
	FlagQR     uint16 = 0x8000
	MaskOpcode uint16 = 0x7800
	FlagAA     uint16 = 0x0400
	FlagTC     uint16 = 0x0200
	FlagRD     uint16 = 0x0100
	FlagRA     uint16 = 0x0080
	MaskRCode  uint16 = 0x000F
)

// Synthesized flag values used by the cache and pipeline (§3 Answer,
// §4.B answer emission).
const (
	FlagsServerFailure uint16 = 0x8182
	FlagsNoSuchName    uint16 = 0x8183
	FlagsPositive      uint16 = 0x8180
)

// Header is the fixed 12-byte preamble of a DNS message.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Marshal serializes the header to its 12-byte big-endian wire form.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(b[0:2], h.ID)
	binary.BigEndian.PutUint16(b[2:4], h.Flags)
	binary.BigEndian.PutUint16(b[4:6], h.QDCount)
	binary.BigEndian.PutUint16(b[6:8], h.ANCount)
	binary.BigEndian.PutUint16(b[8:10], h.NSCount)
	binary.BigEndian.PutUint16(b[10:12], h.ARCount)
	return b
}

// ParseHeader reads a header from the cursor's current position.
func ParseHeader(c *Cursor) (Header, error) {
	if c.Remaining() < HeaderSize {
		return Header{}, fmt.Errorf("%w: unexpected EOF in header", ErrWire)
	}
	b := c.TakeSlice(HeaderSize)
	return Header{
		ID:      binary.BigEndian.Uint16(b[0:2]),
		Flags:   binary.BigEndian.Uint16(b[2:4]),
		QDCount: binary.BigEndian.Uint16(b[4:6]),
		ANCount: binary.BigEndian.Uint16(b[6:8]),
		NSCount: binary.BigEndian.Uint16(b[8:10]),
		ARCount: binary.BigEndian.Uint16(b[10:12]),
	}, nil
}

// IsResponse reports whether the QR bit marks this message a response.
func IsResponse(flags uint16) bool { return flags&FlagQR != 0 }

// Opcode extracts the 4-bit opcode from the flags field.
func Opcode(flags uint16) uint16 { return (flags & MaskOpcode) >> 11 }

// RCode extracts the 4-bit response code from the flags field.
func RCode(flags uint16) uint16 { return flags & MaskRCode }
