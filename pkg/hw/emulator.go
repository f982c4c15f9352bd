package hw

import (
	"math"
	"sync"
)

// DefaultToneClock is the Tandy 1000 tone generator clock.
const DefaultToneClock = 3579545

const (
	lfsrBits     = 15
	lfsrInitial  = 1 << (lfsrBits - 1)
	whiteTaps    = 0x0003
	toneZero     = 1024
	voiceGain    = 0.2
	speakerLevel = 0.25
)

// 2dB per attenuation step, 15 is off.
var attenuation [16]float32

func init() {
	for i := 0; i < 15; i++ {
		attenuation[i] = float32(math.Pow(10, -2.0*float64(i)/20.0))
	}
	attenuation[15] = 0
}

// Emulator stands in for the real ports. It decodes tone generator and speaker
// writes and renders them as stereo frames for pkg/speaker.
type Emulator struct {
	mu sync.Mutex

	// tone generator
	tone       [3]uint16
	volume     [4]uint8
	counter    [4]float64
	output     [4]bool
	noise      uint8
	lfsr       uint16
	latchCh    uint8
	latchVol   bool
	clockStep  float64 // chip clocks (input/16) per output sample
	sampleRate float64

	// PIT channel 2 and port 0x61
	divisor   uint16
	loByte    byte
	hiPending bool
	portB     byte
	phase     float64

	finished bool
}

// NewEmulator models a tone generator clocked at toneClock, rendered at sampleRate.
func NewEmulator(toneClock uint32, sampleRate int) *Emulator {
	if toneClock == 0 {
		toneClock = DefaultToneClock
	}
	e := &Emulator{
		clockStep:  float64(toneClock) / 16 / float64(sampleRate),
		sampleRate: float64(sampleRate),
		lfsr:       lfsrInitial,
	}
	for i := range e.volume {
		e.volume[i] = 0x0f
	}
	return e
}

func (e *Emulator) Out(port uint16, v byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch port {
	case TonePort:
		e.writeTone(v)
	case PITCommand:
		if v&0xc0 == 0x80 {
			e.hiPending = false
		}
	case PITChannel2:
		if !e.hiPending {
			e.loByte = v
			e.hiPending = true
			return
		}
		e.divisor = uint16(v)<<8 | uint16(e.loByte)
		e.hiPending = false
	case SpeakerPort:
		e.portB = v
	}
}

func (e *Emulator) In(port uint16) byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	if port == SpeakerPort {
		return e.portB
	}
	return 0xff
}

// writeTone applies the latch/data byte protocol.
func (e *Emulator) writeTone(v byte) {
	if v&0x80 != 0 {
		e.latchCh = (v >> 5) & 0x03
		e.latchVol = v&0x10 != 0
		data := v & 0x0f
		switch {
		case e.latchVol:
			e.volume[e.latchCh] = data
		case e.latchCh == 3:
			e.noise = data & 0x07
			e.lfsr = lfsrInitial
		default:
			e.tone[e.latchCh] = e.tone[e.latchCh]&0x3f0 | uint16(data)
		}
		return
	}

	switch {
	case e.latchVol:
		e.volume[e.latchCh] = v & 0x0f
	case e.latchCh == 3:
		// data bytes do not reach the noise register
	default:
		e.tone[e.latchCh] = e.tone[e.latchCh]&0x00f | uint16(v&0x3f)<<4
	}
}

// Volume returns the 4-bit attenuation of a voice, 0 loudest, 15 off.
func (e *Emulator) Volume(ch int) uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume[ch]
}

// ToneReg returns the 10-bit divider of a tone voice.
func (e *Emulator) ToneReg(ch int) uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tone[ch]
}

// SpeakerHz is the audible speaker frequency, 0 when the speaker is gated off.
func (e *Emulator) SpeakerHz() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speakerHz()
}

func (e *Emulator) speakerHz() uint32 {
	if e.portB&speakerBits != speakerBits || e.divisor == 0 {
		return 0
	}
	return PITClock / uint32(e.divisor)
}

// Finish makes the next Stream call report the end of playback.
func (e *Emulator) Finish() {
	e.mu.Lock()
	e.finished = true
	e.mu.Unlock()
}

// Stream renders frames for pkg/speaker.
func (e *Emulator) Stream(samples [][2]float32) (n int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return 0, false
	}
	for i := range samples {
		v := e.next()
		samples[i][0] = v
		samples[i][1] = v
	}
	return len(samples), true
}

// Err is part of the streamer contract; rendering cannot fail.
func (e *Emulator) Err() error {
	return nil
}

func (e *Emulator) next() float32 {
	var mix float32
	for ch := 0; ch < 3; ch++ {
		period := float64(e.tone[ch])
		if period == 0 {
			period = toneZero
		}
		e.counter[ch] -= e.clockStep
		for e.counter[ch] <= 0 {
			e.counter[ch] += period
			e.output[ch] = !e.output[ch]
		}
		// dividers of 0 and 1 hold the output high on real chips
		if e.tone[ch] <= 1 || e.output[ch] {
			mix += attenuation[e.volume[ch]]
		} else {
			mix -= attenuation[e.volume[ch]]
		}
	}

	var period float64
	switch e.noise & 0x03 {
	case 0:
		period = 0x10
	case 1:
		period = 0x20
	case 2:
		period = 0x40
	default:
		period = float64(e.tone[2])
		if period == 0 {
			period = toneZero
		}
	}
	e.counter[3] -= e.clockStep
	for e.counter[3] <= 0 {
		e.counter[3] += period
		e.output[3] = !e.output[3]
		if e.output[3] {
			e.shiftNoise()
		}
	}
	if e.lfsr&1 != 0 {
		mix += attenuation[e.volume[3]]
	} else {
		mix -= attenuation[e.volume[3]]
	}
	mix *= voiceGain

	if hz := e.speakerHz(); hz != 0 {
		e.phase += float64(hz) / e.sampleRate
		e.phase -= math.Floor(e.phase)
		if e.phase < 0.5 {
			mix += speakerLevel
		} else {
			mix -= speakerLevel
		}
	}
	return mix
}

func (e *Emulator) shiftNoise() {
	var in uint16
	if e.noise&0x04 != 0 {
		in = uint16(parity(e.lfsr & whiteTaps))
	} else {
		in = e.lfsr & 1
	}
	e.lfsr = e.lfsr>>1 | in<<(lfsrBits-1)
}

func parity(v uint16) uint16 {
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v & 1
}
