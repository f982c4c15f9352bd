package vgm

import (
	"log/slog"

	"github.com/benwiggins/vgmplay/pkg/hw"
)

// State of an Interpreter. Done and ParseError are terminal.
type State int

const (
	Running State = iota
	Done
	ParseError
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case ParseError:
		return "parse error"
	}
	return "unknown"
}

// Waiter blocks for a number of 44.1kHz samples.
type Waiter interface {
	WaitSamples(count uint16)
}

// AY-8910 registers the speaker is driven from.
const (
	auxPeriodLo = 0
	auxPeriodHi = 1
	auxMixer    = 7
	auxLevelA   = 8
	auxToneBit  = 0x01
)

// ChipState is the auxiliary chip state kept between writes.
type ChipState struct {
	Period uint16 // 12-bit tone period from registers 0 and 1
}

// Interpreter plays a command stream through an Output, pacing it with a Waiter.
type Interpreter struct {
	Logger *slog.Logger

	cur      *Cursor
	out      hw.Output
	waiter   Waiter
	auxClock uint32
	chip     ChipState
	state    State
	err      error
	samples  uint64
}

// NewInterpreter prepares to play stream. auxClock is the AY-8910 clock from the
// header and scales the speaker frequency.
func NewInterpreter(stream []byte, auxClock uint32, out hw.Output, w Waiter) *Interpreter {
	return &Interpreter{
		cur:      NewCursor(stream),
		out:      out,
		waiter:   w,
		auxClock: auxClock,
	}
}

// State is the current state.
func (in *Interpreter) State() State {
	return in.state
}

// Err is the *OpcodeError that stopped the stream, if any.
func (in *Interpreter) Err() error {
	return in.err
}

// Offset is the cursor position in the stream.
func (in *Interpreter) Offset() int {
	return in.cur.Offset()
}

// Chip is the auxiliary chip state.
func (in *Interpreter) Chip() ChipState {
	return in.chip
}

// Samples is the total wait issued so far.
func (in *Interpreter) Samples() uint64 {
	return in.samples
}

// Run steps until the stream ends or fails. The tone generator is silenced and
// the speaker stopped on every way out, panics included.
func (in *Interpreter) Run() error {
	defer func() {
		in.out.Silence()
		in.out.SpeakerStop()
	}()

	for in.state == Running {
		in.Step()
	}
	return in.err
}

// Step executes one command and returns the resulting state.
func (in *Interpreter) Step() State {
	if in.state != Running {
		return in.state
	}

	off := in.cur.Offset()
	if in.cur.PeekU8() == cmdEnd {
		in.state = Done
		return in.state
	}
	op := in.cur.ReadU8()
	c := commands[op]
	if in.cur.Remaining() < int(c.payload) {
		in.log().Debug("truncated command ends stream", slog.Int("opcode", int(op)), slog.Int("offset", off))
		in.state = Done
		return in.state
	}

	switch c.h {
	case opToneWrite:
		in.out.ToneWrite(in.cur.ReadU8())
	case opAuxWrite:
		reg := in.cur.ReadU8()
		val := in.cur.ReadU8()
		in.auxWrite(reg, val)
	case opWait:
		in.wait(in.cur.ReadU16())
	case opWaitNTSC:
		in.wait(samplesNTSC)
	case opWaitPAL:
		in.wait(samplesPAL)
	case opShortWait:
		in.wait(uint16(op&0x0f) + 1)
	case opDACWait:
		if n := uint16(op & 0x0f); n > 0 {
			in.wait(n)
		}
	case opDataBlock:
		if !in.marker(op, off) {
			break
		}
		in.cur.ReadU8() // block type
		in.cur.Skip(in.cur.ReadU32())
	case opPCMWrite:
		if !in.marker(op, off) {
			break
		}
		in.cur.Skip(pcmWritePayload)
	case opReserved:
		in.cur.Skip(uint32(c.payload))
	default:
		in.fail(op, off, ErrOpcode)
	}
	return in.state
}

func (in *Interpreter) wait(n uint16) {
	in.samples += uint64(n)
	in.waiter.WaitSamples(n)
}

func (in *Interpreter) marker(op byte, off int) bool {
	if in.cur.ReadU8() != blockMarker {
		in.fail(op, off, ErrMarker)
		return false
	}
	return true
}

func (in *Interpreter) fail(op byte, off int, err error) {
	in.state = ParseError
	in.err = &OpcodeError{Opcode: op, Offset: off, Err: err}
}

// auxWrite maps AY-8910 writes onto the PC speaker: registers 0 and 1 build the
// tone period, the mixer starts the tone and the channel A level stops it.
func (in *Interpreter) auxWrite(reg, val byte) {
	switch {
	case reg == auxPeriodLo:
		in.chip.Period = in.chip.Period&0xf00 | uint16(val)
	case reg == auxPeriodHi:
		in.chip.Period = in.chip.Period&0x0ff | uint16(val&0x0f)<<8
	case reg == auxMixer && val&auxToneBit != 0 && in.chip.Period != 0:
		hz := in.auxClock / (16 * uint32(in.chip.Period))
		if _, ok := hw.SpeakerDivisor(hz); !ok {
			in.log().Debug("speaker frequency out of range", slog.Any("hz", hz), slog.Any("period", in.chip.Period))
			return
		}
		in.out.SpeakerStart(hz)
	case reg == auxLevelA && val&auxToneBit == 0:
		in.out.SpeakerStop()
	default:
		in.log().Debug("ignored aux write", slog.Int("reg", int(reg)), slog.Int("value", int(val)))
	}
}

func (in *Interpreter) log() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}
