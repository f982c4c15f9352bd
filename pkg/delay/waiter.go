package delay

// DefaultBurn is the busy-work per waiter iteration on the host. It keeps one
// iteration in the low microseconds so that a tick holds fewer than MaxRatio of them.
const DefaultBurn = 16384

var sink uint32

// Spin returns a busy-work function doing burn units of work per call.
func Spin(burn int) func() {
	return func() {
		x := sink
		for i := 0; i < burn; i++ {
			x += uint32(i) ^ x>>3
		}
		sink = x
	}
}

// Waiter blocks the calling goroutine for a number of samples. The zero value is
// unusable and panics with ErrUncalibrated.
type Waiter struct {
	p    Params
	spin func()
}

// NewWaiter builds a waiter from calibrated params. A nil spin uses Spin(DefaultBurn).
func NewWaiter(p Params, spin func()) (*Waiter, error) {
	if p.AdjDn == 0 {
		return nil, ErrUncalibrated
	}
	if spin == nil {
		spin = Spin(DefaultBurn)
	}
	return &Waiter{p: p, spin: spin}, nil
}

// Params returns the terms the waiter runs with.
func (w *Waiter) Params() Params {
	return w.p
}

// WaitSamples spins for count samples. Every iteration consumes Step samples plus
// one more whenever the error accumulator crosses zero, so the fractional part of
// N/D is spread evenly instead of drifting.
func (w *Waiter) WaitSamples(count uint16) {
	if w.p.AdjDn == 0 {
		panic(ErrUncalibrated)
	}
	twoUp := w.p.AdjUp + w.p.AdjUp
	acc := -w.p.Initial
	remaining := int32(count)
	for remaining > 0 {
		w.spin()
		remaining -= w.p.Step
		acc += twoUp
		if acc > 0 {
			acc -= w.p.AdjDn
			remaining--
		}
	}
}
