package vgm

import "encoding/binary"

// Cursor is a forward-only read head over an in-memory command stream. Reads past
// the end never fail: ReadU8 yields the end-of-stream opcode and wider reads yield 0.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor positions a cursor at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset is the current read position.
func (c *Cursor) Offset() int {
	return c.off
}

// Len is the total length of the underlying stream.
func (c *Cursor) Len() int {
	return len(c.buf)
}

// Remaining is the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// ReadU8 returns the next byte, or cmdEnd without advancing at end of stream.
func (c *Cursor) ReadU8() byte {
	if c.off >= len(c.buf) {
		return cmdEnd
	}
	b := c.buf[c.off]
	c.off++
	return b
}

// PeekU8 is ReadU8 without advancing.
func (c *Cursor) PeekU8() byte {
	if c.off >= len(c.buf) {
		return cmdEnd
	}
	return c.buf[c.off]
}

// ReadU16 returns the next little-endian uint16.
func (c *Cursor) ReadU16() uint16 {
	if c.Remaining() < 2 {
		c.off = len(c.buf)
		return 0
	}
	v := binary.LittleEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v
}

// ReadU32 returns the next little-endian uint32.
func (c *Cursor) ReadU32() uint32 {
	if c.Remaining() < 4 {
		c.off = len(c.buf)
		return 0
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v
}

// Skip advances by n bytes, stopping at the end of the stream.
func (c *Cursor) Skip(n uint32) {
	if uint64(n) >= uint64(c.Remaining()) {
		c.off = len(c.buf)
		return
	}
	c.off += int(n)
}
