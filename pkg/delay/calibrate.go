package delay

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrCalibration is matched by *CalibrationError.
var ErrCalibration = errors.New("delay: calibration failed")

// TickSource reads the coarse system tick counter. It may wrap.
type TickSource interface {
	Ticks() uint32
}

// HostTicks emulates the BIOS tick counter from the monotonic clock.
type HostTicks struct {
	start time.Time
}

// NewHostTicks starts a tick counter at zero.
func NewHostTicks() *HostTicks {
	return &HostTicks{start: time.Now()}
}

func (h *HostTicks) Ticks() uint32 {
	ns := uint64(time.Since(h.start))
	return uint32(ns / TickDivisor * PITClock / uint64(time.Second))
}

// CalibrationError reports a host whose iteration speed cannot be expressed by a
// ratio with D in [1, MaxRatio].
type CalibrationError struct {
	TooFast bool
	D       int    // last ratio denominator tried
	Ticks   uint32 // ticks measured for it
}

func (e *CalibrationError) Error() string {
	if e.TooFast {
		return fmt.Sprintf("delay: host too fast, %d iterations per tick spanned only %d of %d ticks", e.D, e.Ticks, CalibrationTicks)
	}
	return fmt.Sprintf("delay: host too slow, %d iteration per tick spanned %d of %d ticks", e.D, e.Ticks, CalibrationTicks)
}

func (e *CalibrationError) Is(target error) bool {
	return target == ErrCalibration
}

// Calibrator measures how many waiter iterations fit in one system tick.
type Calibrator struct {
	Ticks  TickSource
	Spin   func()
	Logger *slog.Logger
}

// Calibrate searches for the smallest D such that waiting CalibrationTicks ticks
// worth of samples really takes CalibrationTicks ticks. D doubles until a trial is
// long enough, then a binary search narrows the last interval.
func (c *Calibrator) Calibrate() (Ratio, error) {
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}

	lo, hi := 0, 1
	for {
		elapsed := c.measure(hi)
		log.Debug("calibration probe", slog.Int("d", hi), slog.Any("ticks", elapsed))
		if elapsed >= CalibrationTicks {
			if hi == 1 && elapsed >= 2*CalibrationTicks {
				return Ratio{}, &CalibrationError{D: hi, Ticks: elapsed}
			}
			break
		}
		if hi == MaxRatio {
			return Ratio{}, &CalibrationError{TooFast: true, D: hi, Ticks: elapsed}
		}
		lo = hi
		hi *= 2
		if hi > MaxRatio {
			hi = MaxRatio
		}
	}

	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		elapsed := c.measure(mid)
		log.Debug("calibration bisect", slog.Int("d", mid), slog.Any("ticks", elapsed))
		if elapsed >= CalibrationTicks {
			hi = mid
		} else {
			lo = mid
		}
	}

	r := Ratio{N: SamplesPerTick, D: hi}
	log.Debug("calibrated", slog.String("ratio", r.String()))
	return r, nil
}

// measure runs one trial wait for ratio SamplesPerTick/d, starting on a tick edge,
// and returns the ticks it took.
func (c *Calibrator) measure(d int) uint32 {
	spin := c.Spin
	if spin == nil {
		spin = Spin(DefaultBurn)
	}
	w := &Waiter{p: Ratio{N: SamplesPerTick, D: d}.Params(), spin: spin}

	t0 := c.Ticks.Ticks()
	start := t0
	for start == t0 {
		start = c.Ticks.Ticks()
	}
	w.WaitSamples(SamplesPerTick * CalibrationTicks)
	return c.Ticks.Ticks() - start
}
