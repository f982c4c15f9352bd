package speaker

// Adapted from https://github.com/faiface/beep

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/oto"
)

// Streamer provides the interface to stream samples
type Streamer interface {
	Stream(samples [][2]float32) (n int, ok bool)
	Err() error
}

var (
	mu       sync.Mutex
	samples  [][2]float32
	buf      []byte
	context  *oto.Context
	player   *oto.Player
	done     chan struct{}
	wg       sync.WaitGroup
	streamer Streamer
	callback func()
	lastErr  error
)

// Init initializes audio playback through speaker. Must be called before using this package.
//
// The bufferSize argument specifies the number of samples of the speaker's buffer. Bigger
// bufferSize means lower CPU usage and more reliable playback. Lower bufferSize means better
// responsiveness and less delay.
func Init(sampleRate uint32, bufferSize uint32) error {
	Close()

	mu.Lock()
	defer mu.Unlock()

	numBytes := int(bufferSize * 4)
	samples = make([][2]float32, bufferSize)
	buf = make([]byte, numBytes)

	var err error
	context, err = oto.NewContext(int(sampleRate), 2, 2, numBytes)
	if err != nil {
		return fmt.Errorf("speaker: could not initialise: %w", err)
	}
	player = context.NewPlayer()

	done = make(chan struct{})
	wg.Add(1)
	go func(done chan struct{}) {
		defer wg.Done()
		for {
			select {
			default:
				update()
			case <-done:
				return
			}
		}
	}(done)

	return nil
}

// Close stops the output goroutine and releases the sound card. It is safe to
// call from a Play callback's receiver and when Init was never called.
func Close() {
	mu.Lock()
	if player == nil {
		mu.Unlock()
		return
	}
	close(done)
	p, c := player, context
	player, context, done = nil, nil, nil
	streamer, callback = nil, nil
	mu.Unlock()

	wg.Wait()
	p.Close()
	c.Close()
}

// Play starts streaming s. callback runs once, from the output goroutine, when
// s reports the end of its stream. It must not call Close itself.
func Play(s Streamer, cb func()) {
	mu.Lock()
	streamer = s
	callback = cb
	lastErr = nil
	mu.Unlock()
}

// Err is the error reported by the last streamer to finish.
func Err() error {
	mu.Lock()
	defer mu.Unlock()
	return lastErr
}

func update() {
	mu.Lock()
	s, p := streamer, player
	numSamples := len(samples)
	ok := true
	if s != nil {
		numSamples, ok = s.Stream(samples)
	} else {
		clear(samples)
	}
	var cb func()
	if !ok {
		lastErr = s.Err()
		cb = callback
		streamer, callback = nil, nil
		numSamples = 0
	}
	encode(buf, samples[:numSamples])
	out := buf[:numSamples*4]
	mu.Unlock()

	if cb != nil {
		cb()
		return
	}
	if p != nil && len(out) > 0 {
		p.Write(out)
	}
}

// encode converts frames to interleaved signed 16-bit little-endian PCM.
func encode(dst []byte, frames [][2]float32) {
	for i := range frames {
		for c := range frames[i] {
			val := frames[i][c]
			if val < -1 {
				val = -1
			}
			if val > +1 {
				val = +1
			}
			valInt16 := int16(val * (1<<15 - 1))
			dst[i*4+c*2+0] = byte(valInt16)
			dst[i*4+c*2+1] = byte(valInt16 >> 8)
		}
	}
}
