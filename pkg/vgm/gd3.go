package vgm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

const (
	gd3Ident      = "Gd3 "
	gd3Version    = 0x100
	gd3HeaderSize = 12
	gd3Fields     = 11
)

// ErrNoGD3 is returned by File.GD3 when the header has no metadata offset.
var ErrNoGD3 = errors.New("vgm: no GD3 block")

// GD3 holds the track metadata block. Japanese fields are kept apart from the
// English ones and are often empty.
type GD3 struct {
	Version    uint32
	Track      string
	TrackJP    string
	Game       string
	GameJP     string
	System     string
	SystemJP   string
	Author     string
	AuthorJP   string
	Date       string
	RippedBy   string
	Notes      string
	Unexpected bool // version was not 1.00
}

// GD3 decodes the metadata block referenced by the header.
func (f *File) GD3() (*GD3, error) {
	start := f.Header.GD3Start()
	if start == 0 {
		return nil, ErrNoGD3
	}
	if uint64(start) > uint64(len(f.data)) {
		return nil, fmt.Errorf("%w: GD3 offset 0x%x past end 0x%x", ErrTruncated, start, len(f.data))
	}
	return ParseGD3(f.data[start:])
}

// ParseGD3 decodes a GD3 block starting at the front of data.
func ParseGD3(data []byte) (*GD3, error) {
	if len(data) < gd3HeaderSize {
		return nil, fmt.Errorf("%w: GD3 header", ErrTruncated)
	}
	if !bytes.Equal(data[0:4], []byte(gd3Ident)) {
		return nil, fmt.Errorf("vgm: GD3 identifier %q", data[0:4])
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	length := binary.LittleEndian.Uint32(data[8:12])
	body := data[gd3HeaderSize:]
	if uint64(length) > uint64(len(body)) {
		return nil, fmt.Errorf("%w: GD3 wants %d bytes, %d present", ErrTruncated, length, len(body))
	}
	body = body[:length]

	fields := make([]string, gd3Fields)
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	for i := range fields {
		end := utf16Terminator(body)
		if end < 0 {
			end = len(body) &^ 1
		}
		s, err := dec.Bytes(body[:end])
		if err != nil {
			return nil, fmt.Errorf("vgm: GD3 field %d: %w", i, err)
		}
		fields[i] = string(s)
		if end+2 > len(body) {
			body = nil
			continue
		}
		body = body[end+2:]
	}

	return &GD3{
		Version:    version,
		Track:      fields[0],
		TrackJP:    fields[1],
		Game:       fields[2],
		GameJP:     fields[3],
		System:     fields[4],
		SystemJP:   fields[5],
		Author:     fields[6],
		AuthorJP:   fields[7],
		Date:       fields[8],
		RippedBy:   fields[9],
		Notes:      fields[10],
		Unexpected: version != gd3Version,
	}, nil
}

// utf16Terminator finds the byte index of the first 16-bit NUL, or -1.
func utf16Terminator(b []byte) int {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}
