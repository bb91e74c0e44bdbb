package dnswire

import (
	"encoding/binary"
	"fmt"
)

// Record types and classes this codec recognizes (§4.B rdata
// interpretation). Other types are rejected as unsupported rather than
// modeled, per the spec's restricted scope.
const (
	TypeA     uint16 = 1
	TypeCNAME uint16 = 5
	TypeSOA   uint16 = 6
	ClassIN   uint16 = 1
)

// Question is a DNS question section entry (RFC 1035 §4.1.2).
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// Marshal serializes the question to wire format.
func (q Question) Marshal() ([]byte, error) {
	name, err := EncodeName(q.Name)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(name)+4)
	b = append(b, name...)
	tail := make([]byte, 4)
	binary.BigEndian.PutUint16(tail[0:2], q.Type)
	binary.BigEndian.PutUint16(tail[2:4], q.Class)
	return append(b, tail...), nil
}

// ParseQuestion reads a question from the cursor's current position. The
// decoded name is normalized to lowercase without a trailing dot.
func ParseQuestion(c *Cursor) (Question, error) {
	name, err := DecodeName(c)
	if err != nil {
		return Question{}, err
	}
	if c.Remaining() < 4 {
		return Question{}, fmt.Errorf("%w: unexpected EOF in question", ErrWire)
	}
	b := c.TakeSlice(4)
	return Question{
		Name:  NormalizeName(name),
		Type:  binary.BigEndian.Uint16(b[0:2]),
		Class: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}
