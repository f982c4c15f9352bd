// Package hw drives the Tandy 1000 style sound hardware: an SN76496 compatible
// tone generator on one write-only port and the PC speaker fed by PIT channel 2.
package hw

// I/O ports.
const (
	TonePort    = 0xc0 // SN76496 write port
	PITChannel2 = 0x42 // PIT channel 2 counter
	PITCommand  = 0x43 // PIT mode/command register
	SpeakerPort = 0x61 // PPI port B: bit 0 gates PIT channel 2, bit 1 enables the speaker

	// PITClock is the input clock of the 8253/8254 timer in Hz.
	PITClock = 1193182

	speakerBits   = 0x03
	pitCh2Square  = 0xb6 // channel 2, lobyte/hibyte, mode 3, binary
	maxPITDivisor = 0xffff
)

// silenceCodes set the attenuation of tone 0, 1, 2 and noise to off.
var silenceCodes = [...]byte{0x9f, 0xbf, 0xdf, 0xff}

// Output is what the command interpreter plays through. Calls take effect in the
// order they are made.
type Output interface {
	ToneWrite(b byte)
	Silence()
	SpeakerStart(hz uint32)
	SpeakerStop()
}

// PortIO is raw x86 port access.
type PortIO interface {
	Out(port uint16, v byte)
	In(port uint16) byte
}

// Ports implements Output on top of raw port writes.
type Ports struct {
	io PortIO
}

// NewPorts wraps a port backend.
func NewPorts(io PortIO) *Ports {
	return &Ports{io: io}
}

// ToneWrite sends one byte to the tone generator.
func (p *Ports) ToneWrite(b byte) {
	p.io.Out(TonePort, b)
}

// Silence turns every tone generator voice off.
func (p *Ports) Silence() {
	for _, b := range silenceCodes {
		p.io.Out(TonePort, b)
	}
}

// SpeakerStart programs PIT channel 2 for a square wave at hz and gates it to the
// speaker. Frequencies rejected by SpeakerDivisor are ignored.
func (p *Ports) SpeakerStart(hz uint32) {
	div, ok := SpeakerDivisor(hz)
	if !ok {
		return
	}
	p.io.Out(PITCommand, pitCh2Square)
	p.io.Out(PITChannel2, byte(div))
	p.io.Out(PITChannel2, byte(div>>8))
	p.io.Out(SpeakerPort, p.io.In(SpeakerPort)|speakerBits)
}

// SpeakerStop ungates the speaker and leaves the timer running.
func (p *Ports) SpeakerStop() {
	p.io.Out(SpeakerPort, p.io.In(SpeakerPort)&^speakerBits)
}

// SpeakerDivisor is the PIT reload value for hz, and whether hz can be produced.
func SpeakerDivisor(hz uint32) (uint16, bool) {
	if hz == 0 {
		return 0, false
	}
	div := PITClock / hz
	if div == 0 || div > maxPITDivisor {
		return 0, false
	}
	return uint16(div), true
}
