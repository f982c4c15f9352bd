// Package delay turns counts of 44.1kHz samples into busy-wait time. The only
// reference clock is the PC system tick (PIT input clock / 65536, about 18.2Hz),
// so the waiter is calibrated against it once and then runs open loop using
// integer addition and subtraction only.
package delay

import (
	"errors"
	"fmt"
)

const (
	// SampleRate is the logical playback clock.
	SampleRate = 44100
	// PITClock is the input clock of the 8253/8254 timer in Hz.
	PITClock = 1193182
	// TickDivisor is the PIT channel 0 reload used for the system tick.
	TickDivisor = 65536
	// SamplesPerTick is the number of samples in one system tick, rounded. It is the
	// numerator of every measured Ratio.
	SamplesPerTick = (SampleRate*TickDivisor + PITClock/2) / PITClock
	// CalibrationTicks is the length of one measurement window in ticks.
	CalibrationTicks = 4
	// MaxRatio bounds both halves of a Ratio.
	MaxRatio = 32767
)

var (
	// ErrRange reports a ratio term outside [1, MaxRatio].
	ErrRange = errors.New("delay: ratio out of range")
	// ErrUncalibrated reports a wait issued before calibration.
	ErrUncalibrated = errors.New("delay: waiter used before calibration")
)

// Ratio says that N samples elapse every D waiter iterations.
type Ratio struct {
	N int
	D int
}

// NewRatio validates a user supplied ratio.
func NewRatio(n, d int) (Ratio, error) {
	if n < 1 || n > MaxRatio {
		return Ratio{}, fmt.Errorf("%w: n=%d", ErrRange, n)
	}
	if d < 1 || d > MaxRatio {
		return Ratio{}, fmt.Errorf("%w: d=%d", ErrRange, d)
	}
	return Ratio{N: n, D: d}, nil
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.N, r.D)
}

// Params are the precomputed Bresenham terms for a Ratio.
type Params struct {
	AdjUp   int32 // fractional samples per iteration, in units of 1/D
	AdjDn   int32 // 2*D
	Initial int32 // accumulator seed, rounds to the nearest sample
	Step    int32 // whole samples per iteration
}

// Params derives the waiter terms. A zero Ratio yields zero Params.
func (r Ratio) Params() Params {
	if r.D == 0 {
		return Params{}
	}
	dn := int32(2 * r.D)
	up := int32(r.N % r.D)
	return Params{
		AdjUp:   up,
		AdjDn:   dn,
		Initial: dn - up,
		Step:    int32(r.N / r.D),
	}
}
