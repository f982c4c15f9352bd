package vgm

import (
	"errors"
	"fmt"
)

var (
	// ErrIdent is matched by *IdentError.
	ErrIdent = errors.New("vgm: header identifier mismatch")
	// ErrVersion reports a header older than MinVersion.
	ErrVersion = errors.New("vgm: header version too old")
	// ErrTooLarge reports a command stream that does not fit in MaxStreamSize bytes.
	ErrTooLarge = errors.New("vgm: command stream too large")
	// ErrTruncated reports a file too short to hold its header or command stream.
	ErrTruncated = errors.New("vgm: file truncated")
	// ErrCompressed reports a VGZ image that could not be decompressed.
	ErrCompressed = errors.New("vgm: bad gzip data")
	// ErrMarker reports a data block or PCM write without the 0x66 marker byte.
	ErrMarker = errors.New("vgm: bad block marker")
	// ErrOpcode reports an opcode missing from the command table.
	ErrOpcode = errors.New("vgm: unknown opcode")
)

// IdentError carries the identifier bytes found at the start of a rejected file.
type IdentError struct {
	Found [4]byte
}

func (e *IdentError) Error() string {
	msg := fmt.Sprintf("vgm: expected identifier %q, found %q", Ident, e.Found[:])
	if e.Gzip() {
		msg += " (gzip data)"
	}
	return msg
}

// Gzip reports whether the bytes look like the start of a gzip stream.
func (e *IdentError) Gzip() bool {
	return e.Found[0] == 0x1f && e.Found[1] == 0x8b
}

func (e *IdentError) Is(target error) bool {
	return target == ErrIdent
}

// OpcodeError stops playback of a stream. Err is ErrOpcode or ErrMarker.
type OpcodeError struct {
	Opcode byte
	Offset int
	Err    error
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("%v: opcode 0x%02x at stream offset 0x%04x", e.Err, e.Opcode, e.Offset)
}

func (e *OpcodeError) Unwrap() error {
	return e.Err
}
