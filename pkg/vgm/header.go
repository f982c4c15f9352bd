package vgm

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

const (
	// Ident opens every VGM file.
	Ident = "Vgm "
	// HeaderSize is the size of the fixed header layout.
	HeaderSize = 0x100
	// MinVersion is the oldest header version the player accepts.
	MinVersion = 0x150
	// MaxStreamSize bounds the command stream.
	MaxStreamSize = 0xffff
	// SampleRate is the rate of the logical playback clock.
	SampleRate = 44100

	dataOffsetBase  = 0x34
	gd3OffsetBase   = 0x14
	eofOffsetBase   = 0x04
	ayClockMask     = 0x3fffffff
	defaultDataBase = 0x40
)

// Header is the 256 byte VGM header. Fields beyond the file's version are zero.
type Header struct {
	Ident             [4]byte
	EOFOffset         uint32
	Version           uint32
	SN76489Clock      uint32
	YM2413Clock       uint32
	GD3Offset         uint32
	TotalSamples      uint32
	LoopOffset        uint32
	LoopSamples       uint32
	Rate              uint32
	SN76489Feedback   uint16
	SN76489ShiftWidth uint8
	SN76489Flags      uint8
	YM2612Clock       uint32
	YM2151Clock       uint32
	DataOffset        uint32
	SegaPCMClock      uint32
	SegaPCMInterface  uint32
	RF5C68Clock       uint32
	YM2203Clock       uint32
	YM2608Clock       uint32
	YM2610Clock       uint32
	YM3812Clock       uint32
	YM3526Clock       uint32
	Y8950Clock        uint32
	YMF262Clock       uint32
	YMF278BClock      uint32
	YMF271Clock       uint32
	YMZ280BClock      uint32
	RF5C164Clock      uint32
	PWMClock          uint32
	AY8910Clock       uint32
	AY8910Type        uint8
	AY8910Flags       [3]uint8
	VolumeModifier    uint8
	_                 uint8
	LoopBase          uint8
	LoopModifier      uint8
	GBDMGClock        uint32
	NESAPUClock       uint32
	MultiPCMClock     uint32
	UPD7759Clock      uint32
	OKIM6258Clock     uint32
	OKIM6258Flags     uint8
	K054539Flags      uint8
	C140Type          uint8
	_                 uint8
	OKIM6295Clock     uint32
	K051649Clock      uint32
	K054539Clock      uint32
	HuC6280Clock      uint32
	C140Clock         uint32
	K053260Clock      uint32
	PokeyClock        uint32
	QSoundClock       uint32
	SCSPClock         uint32
	ExtraHeaderOffset uint32
	WonderSwanClock   uint32
	VSUClock          uint32
	SAA1099Clock      uint32
	ES5503Clock       uint32
	ES5506Clock       uint32
	ES5503Channels    uint8
	ES5506Channels    uint8
	C352Divider       uint8
	_                 uint8
	X1010Clock        uint32
	C352Clock         uint32
	GA20Clock         uint32
	MikeyClock        uint32
	_                 [24]uint8
}

// DataStart is the absolute file offset of the command stream.
func (h *Header) DataStart() uint32 {
	if h.DataOffset == 0 {
		return defaultDataBase
	}
	return h.DataOffset + dataOffsetBase
}

// GD3Start is the absolute file offset of the metadata block, or 0 when absent.
func (h *Header) GD3Start() uint32 {
	if h.GD3Offset == 0 {
		return 0
	}
	return h.GD3Offset + gd3OffsetBase
}

// AuxClock is the AY-8910 clock with the dual-chip flag bits removed.
func (h *Header) AuxClock() uint32 {
	return h.AY8910Clock & ayClockMask
}

// Duration is the play time the header claims for the whole track.
func (h *Header) Duration() time.Duration {
	return time.Duration(h.TotalSamples) * time.Second / SampleRate
}

type chipClock struct {
	name    string
	version uint32
	clock   func(h *Header) uint32
}

// Chips the player cannot drive, grouped by the header version that added them.
var unsupportedChips = []chipClock{
	{"YM2413", 0, func(h *Header) uint32 { return h.YM2413Clock }},
	{"YM2612", 0, func(h *Header) uint32 { return h.YM2612Clock }},
	{"YM2151", 0, func(h *Header) uint32 { return h.YM2151Clock }},
	{"Sega PCM", 0x151, func(h *Header) uint32 { return h.SegaPCMClock }},
	{"RF5C68", 0x151, func(h *Header) uint32 { return h.RF5C68Clock }},
	{"YM2203", 0x151, func(h *Header) uint32 { return h.YM2203Clock }},
	{"YM2608", 0x151, func(h *Header) uint32 { return h.YM2608Clock }},
	{"YM2610", 0x151, func(h *Header) uint32 { return h.YM2610Clock }},
	{"YM3812", 0x151, func(h *Header) uint32 { return h.YM3812Clock }},
	{"YM3526", 0x151, func(h *Header) uint32 { return h.YM3526Clock }},
	{"Y8950", 0x151, func(h *Header) uint32 { return h.Y8950Clock }},
	{"YMF262", 0x151, func(h *Header) uint32 { return h.YMF262Clock }},
	{"YMF278b", 0x151, func(h *Header) uint32 { return h.YMF278BClock }},
	{"YMF271", 0x151, func(h *Header) uint32 { return h.YMF271Clock }},
	{"YMZ280b", 0x151, func(h *Header) uint32 { return h.YMZ280BClock }},
	{"RF5C164", 0x151, func(h *Header) uint32 { return h.RF5C164Clock }},
	{"PWM", 0x151, func(h *Header) uint32 { return h.PWMClock }},
	{"Gameboy DMG", 0x161, func(h *Header) uint32 { return h.GBDMGClock }},
	{"NES APU", 0x161, func(h *Header) uint32 { return h.NESAPUClock }},
	{"Multi PCM", 0x161, func(h *Header) uint32 { return h.MultiPCMClock }},
	{"uPD7759", 0x161, func(h *Header) uint32 { return h.UPD7759Clock }},
	{"OKIM6258", 0x161, func(h *Header) uint32 { return h.OKIM6258Clock }},
	{"OKIM6295", 0x161, func(h *Header) uint32 { return h.OKIM6295Clock }},
	{"K051649", 0x161, func(h *Header) uint32 { return h.K051649Clock }},
	{"K054539", 0x161, func(h *Header) uint32 { return h.K054539Clock }},
	{"HuC6280", 0x161, func(h *Header) uint32 { return h.HuC6280Clock }},
	{"C140", 0x161, func(h *Header) uint32 { return h.C140Clock }},
	{"K053260", 0x161, func(h *Header) uint32 { return h.K053260Clock }},
	{"Pokey", 0x161, func(h *Header) uint32 { return h.PokeyClock }},
	{"QSound", 0x161, func(h *Header) uint32 { return h.QSoundClock }},
	{"SCSP", 0x171, func(h *Header) uint32 { return h.SCSPClock }},
	{"WonderSwan", 0x171, func(h *Header) uint32 { return h.WonderSwanClock }},
	{"VSU", 0x171, func(h *Header) uint32 { return h.VSUClock }},
	{"SAA1099", 0x171, func(h *Header) uint32 { return h.SAA1099Clock }},
	{"ES5503", 0x171, func(h *Header) uint32 { return h.ES5503Clock }},
	{"ES5506", 0x171, func(h *Header) uint32 { return h.ES5506Clock }},
	{"X1-010", 0x171, func(h *Header) uint32 { return h.X1010Clock }},
	{"C352", 0x171, func(h *Header) uint32 { return h.C352Clock }},
	{"GA20", 0x171, func(h *Header) uint32 { return h.GA20Clock }},
	{"Mikey", 0x172, func(h *Header) uint32 { return h.MikeyClock }},
}

// UnsupportedChips lists the chips with a clock set that this player ignores.
func (h *Header) UnsupportedChips() []string {
	var names []string
	for _, c := range unsupportedChips {
		if h.Version >= c.version && c.clock(h) != 0 {
			names = append(names, c.name)
		}
	}
	return names
}

// File is a validated VGM image with its command stream split out.
type File struct {
	Header     Header
	Stream     []byte
	Compressed bool

	data []byte
}

// Load reads a whole VGM or VGZ image and validates it.
func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates a VGM image held in memory. A gzip image is inflated first.
func Parse(data []byte) (*File, error) {
	compressed := false
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressed, err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressed, err)
		}
		compressed = true
	}

	if len(data) < len(Ident) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if !bytes.Equal(data[0:4], []byte(Ident)) {
		e := &IdentError{}
		copy(e.Found[:], data[0:4])
		return nil, e
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
	}

	f := &File{Compressed: compressed, data: data}
	if err := decodeHeader(&f.Header, data); err != nil {
		return nil, err
	}
	if f.Header.Version < MinVersion {
		return nil, fmt.Errorf("%w: %x, at least %x is required", ErrVersion, f.Header.Version, MinVersion)
	}

	start := f.Header.DataStart()
	if uint64(start) >= uint64(len(data)) {
		return nil, fmt.Errorf("%w: command stream starts at 0x%x past end 0x%x", ErrTruncated, start, len(data))
	}
	end := uint64(len(data))
	if eof := uint64(f.Header.EOFOffset) + eofOffsetBase; f.Header.EOFOffset != 0 && eof > uint64(start) && eof < end {
		end = eof
	}
	if gd3 := uint64(f.Header.GD3Offset) + gd3OffsetBase; f.Header.GD3Offset != 0 && gd3 > uint64(start) && gd3 < end {
		end = gd3
	}
	if end-uint64(start) > MaxStreamSize {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, end-uint64(start), MaxStreamSize)
	}
	f.Stream = data[start:end]
	return f, nil
}

// decodeHeader fills h from the front of data. Bytes at or past the command stream
// belong to the stream, not the header, and read as zero.
func decodeHeader(h *Header, data []byte) error {
	var raw [HeaderSize]byte
	n := copy(raw[:], data)

	dataOffset := binary.LittleEndian.Uint32(raw[dataOffsetBase:])
	start := uint32(defaultDataBase)
	if dataOffset != 0 {
		start = dataOffset + dataOffsetBase
	}
	if start < uint32(n) {
		n = int(start)
	}
	for i := n; i < HeaderSize; i++ {
		raw[i] = 0
	}

	if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, h); err != nil {
		return fmt.Errorf("vgm: decode header: %w", err)
	}
	if h.Version < 0x151 {
		h.SN76489Flags = 0
		h.AY8910Clock = 0
	}
	return nil
}
