package dnswire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// maxCompressionDepth bounds pointer-chasing during decompression. The
// spec leaves this unlimited; this implementation caps it to reject
// crafted cycles rather than loop forever.
const maxCompressionDepth = 20

// NormalizeName lowercases a name and strips a trailing root dot, giving
// the canonical dotted-string form used as cache and query keys.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// EncodeName encodes a dotted name as a sequence of length-prefixed
// labels terminated by a zero-length label (RFC 1035 §3.1). An empty
// name or a bare "." encodes as the root label. Emission never produces
// compression pointers (§4.B emits names in full).
func EncodeName(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return []byte{0}, nil
	}

	out := make([]byte, 0, len(name)+2)
	labelStart := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			if i == labelStart {
				return nil, fmt.Errorf("%w: empty label in %q", ErrWire, name)
			}
			label := name[labelStart:i]
			if len(label) > 63 {
				return nil, fmt.Errorf("%w: label too long (%d > 63): %q", ErrWire, len(label), label)
			}
			out = append(out, byte(len(label)))
			out = append(out, label...)
			labelStart = i + 1
		}
	}
	out = append(out, 0)
	if len(out) > 255 {
		return nil, fmt.Errorf("%w: encoded name too long (%d > 255)", ErrWire, len(out))
	}
	return out, nil
}

// DecodeName reads a possibly-compressed name starting at the cursor's
// current position and returns its dotted-string form (RFC 1035 §4.1.4).
func DecodeName(c *Cursor) (string, error) {
	return decodeName(c, 0, map[int]struct{}{})
}

func decodeName(c *Cursor, depth int, visited map[int]struct{}) (string, error) {
	if depth > maxCompressionDepth {
		return "", fmt.Errorf("%w: too many compression pointer indirections", ErrWire)
	}

	var labels []string
	for {
		if c.Remaining() < 1 {
			return "", fmt.Errorf("%w: unexpected EOF while decoding name", ErrWire)
		}
		length := c.Take()
		if length == 0 {
			break
		}

		if length&0xC0 == 0xC0 {
			if c.Remaining() < 1 {
				return "", fmt.Errorf("%w: unexpected EOF in compression pointer", ErrWire)
			}
			lo := c.Take()
			ptr := int(binary.BigEndian.Uint16([]byte{length & 0x3F, lo}))
			if ptr >= c.Len() {
				return "", fmt.Errorf("%w: compression pointer out of bounds", ErrWire)
			}
			if _, seen := visited[ptr]; seen {
				return "", fmt.Errorf("%w: compression pointer loop detected", ErrWire)
			}
			visited[ptr] = struct{}{}

			var rest string
			var innerErr error
			if err := c.WithTemporaryPosition(ptr, func() error {
				rest, innerErr = decodeName(c, depth+1, visited)
				return innerErr
			}); err != nil {
				return "", err
			}
			if rest != "" {
				labels = append(labels, rest)
			}
			break
		}

		if length&0xC0 != 0 {
			return "", fmt.Errorf("%w: reserved label length bits set", ErrWire)
		}
		if c.Remaining() < int(length) {
			return "", fmt.Errorf("%w: unexpected EOF in label", ErrWire)
		}
		labels = append(labels, string(c.TakeSlice(int(length))))
	}

	return strings.Join(labels, "."), nil
}
