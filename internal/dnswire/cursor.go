package dnswire

// Cursor is a position-tracked sequential reader over an immutable byte
// buffer. Out-of-bounds reads are a programming error: callers validate
// Remaining() (or the length implied by a prior field) before calling
// Take/TakeSlice/TakeArray4/TakeArray16. The codec never intentionally
// reads past the buffer end on well-formed input.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for sequential reading starting at position 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read position.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Peek returns the byte at the current position without advancing.
func (c *Cursor) Peek() byte { return c.buf[c.pos] }

// Take reads one byte and advances the position.
func (c *Cursor) Take() byte {
	b := c.buf[c.pos]
	c.pos++
	return b
}

// TakeSlice reads n bytes and advances the position. The returned slice
// aliases the underlying buffer.
func (c *Cursor) TakeSlice(n int) []byte {
	s := c.buf[c.pos : c.pos+n]
	c.pos += n
	return s
}

// TakeArray4 reads a fixed 4-byte array (an IPv4 address).
func (c *Cursor) TakeArray4() [4]byte {
	var a [4]byte
	copy(a[:], c.TakeSlice(4))
	return a
}

// TakeArray16 reads a fixed 16-byte array (a u128 creation timestamp in
// the cache persistence format).
func (c *Cursor) TakeArray16() [16]byte {
	var a [16]byte
	copy(a[:], c.TakeSlice(16))
	return a
}

// Seek moves the cursor to an absolute position.
func (c *Cursor) Seek(i int) { c.pos = i }

// WithTemporaryPosition saves the current position, seeks to i, runs f,
// then restores the saved position regardless of f's outcome. DNS name
// decompression needs exactly this: following a back-pointer must not
// disturb the caller's place in the message. Safe to re-enter — nested
// calls save and restore their own positions independently.
func (c *Cursor) WithTemporaryPosition(i int, f func() error) error {
	saved := c.pos
	c.pos = i
	err := f()
	c.pos = saved
	return err
}
