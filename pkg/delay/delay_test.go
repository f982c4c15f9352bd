package delay

import (
	"errors"
	"math"
	"testing"
)

// simHost is a fake CPU: every waiter iteration and every tick poll costs cycles,
// and the tick counter is derived from the cycle count.
type simHost struct {
	now      uint64
	iterCost uint64
	pollCost uint64
	tickLen  uint64
}

func (s *simHost) spin() {
	s.now += s.iterCost
}

func (s *simHost) Ticks() uint32 {
	s.now += s.pollCost
	return uint32(s.now / s.tickLen)
}

func countingWaiter(t *testing.T, r Ratio) (*Waiter, *int) {
	t.Helper()
	iterations := 0
	w, err := NewWaiter(r.Params(), func() { iterations++ })
	if err != nil {
		t.Fatalf("NewWaiter(%v): %v", r, err)
	}
	return w, &iterations
}

func TestSamplesPerTick(t *testing.T) {
	exact := float64(SampleRate) * TickDivisor / PITClock
	if math.Abs(float64(SamplesPerTick)-exact) > 0.5 {
		t.Errorf("SamplesPerTick = %d, exact value %.3f", SamplesPerTick, exact)
	}
}

func TestNewRatio(t *testing.T) {
	testCases := []struct {
		n, d int
		ok   bool
	}{
		{1, 1, true},
		{32767, 32767, true},
		{2422, 9000, true},
		{0, 1, false},
		{1, 0, false},
		{32768, 1, false},
		{1, 32768, false},
		{-5, 10, false},
	}

	for _, tc := range testCases {
		_, err := NewRatio(tc.n, tc.d)
		if tc.ok && err != nil {
			t.Errorf("NewRatio(%d, %d): unexpected error %v", tc.n, tc.d, err)
		}
		if !tc.ok && !errors.Is(err, ErrRange) {
			t.Errorf("NewRatio(%d, %d): expected ErrRange, got %v", tc.n, tc.d, err)
		}
	}
}

func TestRatioParams(t *testing.T) {
	p := Ratio{N: 2422, D: 9000}.Params()
	want := Params{AdjUp: 2422, AdjDn: 18000, Initial: 18000 - 2422, Step: 0}
	if p != want {
		t.Errorf("params for 2422/9000: got %+v, want %+v", p, want)
	}

	p = Ratio{N: 2422, D: 200}.Params()
	want = Params{AdjUp: 22, AdjDn: 400, Initial: 378, Step: 12}
	if p != want {
		t.Errorf("params for 2422/200: got %+v, want %+v", p, want)
	}

	if (Ratio{}).Params() != (Params{}) {
		t.Error("zero ratio should give zero params")
	}
}

func TestWaiterRequiresCalibration(t *testing.T) {
	if _, err := NewWaiter(Params{}, nil); !errors.Is(err, ErrUncalibrated) {
		t.Fatalf("expected ErrUncalibrated, got %v", err)
	}

	defer func() {
		if r := recover(); r != ErrUncalibrated {
			t.Errorf("expected panic with ErrUncalibrated, got %v", r)
		}
	}()
	var w Waiter
	w.WaitSamples(1)
}

func TestWaitSamplesRate(t *testing.T) {
	ratios := []Ratio{
		{N: 2422, D: 200},
		{N: 2422, D: 9000},
		{N: 2422, D: 2422},
		{N: 7, D: 3},
		{N: 1, D: 300},
	}

	for _, r := range ratios {
		w, iterations := countingWaiter(t, r)
		const count = 44100
		w.WaitSamples(count)

		want := float64(count) * float64(r.D) / float64(r.N)
		if diff := math.Abs(float64(*iterations) - want); diff > float64(r.D)/float64(r.N)+1 {
			t.Errorf("ratio %v: %d iterations for %d samples, expected about %.1f", r, *iterations, count, want)
		}
	}
}

func TestWaitSamplesZero(t *testing.T) {
	w, iterations := countingWaiter(t, Ratio{N: 2422, D: 200})
	w.WaitSamples(0)
	if *iterations != 0 {
		t.Errorf("waiting 0 samples ran %d iterations", *iterations)
	}
}

func TestWaitSamplesSplitMatchesWhole(t *testing.T) {
	ratios := []Ratio{
		{N: 2422, D: 200},
		{N: 2422, D: 9000},
		{N: 32767, D: 3},
		{N: 100, D: 32767},
		{N: 1, D: 1},
	}
	pairs := [][2]uint16{{1, 1}, {735, 735}, {882, 15}, {100, 30000}, {0, 512}, {32767, 32767}}

	for _, r := range ratios {
		tolerance := 3*float64(r.D)/float64(r.N) + 3
		for _, pair := range pairs {
			split, splitCount := countingWaiter(t, r)
			split.WaitSamples(pair[0])
			split.WaitSamples(pair[1])

			whole, wholeCount := countingWaiter(t, r)
			whole.WaitSamples(pair[0] + pair[1])

			if diff := math.Abs(float64(*splitCount - *wholeCount)); diff > tolerance {
				t.Errorf("ratio %v: wait(%d)+wait(%d) took %d iterations, wait(%d) took %d",
					r, pair[0], pair[1], *splitCount, pair[0]+pair[1], *wholeCount)
			}
		}
	}
}

func TestCalibrateConverges(t *testing.T) {
	testCases := []struct {
		name     string
		iterCost uint64
	}{
		{"fast", 37},
		{"medium", 100},
		{"slow", 997},
		{"very slow", 5000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			host := &simHost{iterCost: tc.iterCost, pollCost: 3, tickLen: 1000000}
			cal := &Calibrator{Ticks: host, Spin: host.spin}

			r, err := cal.Calibrate()
			if err != nil {
				t.Fatalf("Calibrate: %v", err)
			}
			if r.N != SamplesPerTick {
				t.Errorf("numerator %d, expected %d", r.N, SamplesPerTick)
			}

			w, err := NewWaiter(r.Params(), host.spin)
			if err != nil {
				t.Fatalf("NewWaiter: %v", err)
			}
			start := host.now
			w.WaitSamples(SampleRate)
			elapsed := float64(host.now - start)

			target := float64(host.tickLen) * PITClock / TickDivisor
			if math.Abs(elapsed-target)/target > 0.02 {
				t.Errorf("ratio %v: one second of samples took %.0f cycles, expected %.0f", r, elapsed, target)
			}
		})
	}
}

func TestCalibrateTooFast(t *testing.T) {
	host := &simHost{iterCost: 1, pollCost: 1, tickLen: 1000000}
	cal := &Calibrator{Ticks: host, Spin: host.spin}

	_, err := cal.Calibrate()
	var ce *CalibrationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CalibrationError, got %v", err)
	}
	if !ce.TooFast || ce.D != MaxRatio {
		t.Errorf("unexpected calibration error %+v", ce)
	}
	if !errors.Is(err, ErrCalibration) {
		t.Error("CalibrationError should match ErrCalibration")
	}
}

func TestCalibrateTooSlow(t *testing.T) {
	host := &simHost{iterCost: 3000000, pollCost: 1, tickLen: 1000000}
	cal := &Calibrator{Ticks: host, Spin: host.spin}

	_, err := cal.Calibrate()
	var ce *CalibrationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CalibrationError, got %v", err)
	}
	if ce.TooFast || ce.D != 1 {
		t.Errorf("unexpected calibration error %+v", ce)
	}
}
