//go:build linux

package hw

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const devPortPath = "/dev/port"

// DevPort reaches the real ports through /dev/port. It needs CAP_SYS_RAWIO.
// The first failed access is kept and reported by Err; later ones are dropped.
type DevPort struct {
	fd int

	mu  sync.Mutex
	err error
}

// OpenDevPort opens /dev/port for reading and writing.
func OpenDevPort() (*DevPort, error) {
	fd, err := unix.Open(devPortPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("hw: open %s: %w", devPortPath, err)
	}
	return &DevPort{fd: fd}, nil
}

func (d *DevPort) Out(port uint16, v byte) {
	if _, err := unix.Pwrite(d.fd, []byte{v}, int64(port)); err != nil {
		d.fail(fmt.Errorf("hw: out 0x%02x: %w", port, err))
	}
}

func (d *DevPort) In(port uint16) byte {
	var b [1]byte
	if _, err := unix.Pread(d.fd, b[:], int64(port)); err != nil {
		d.fail(fmt.Errorf("hw: in 0x%02x: %w", port, err))
		return 0
	}
	return b[0]
}

func (d *DevPort) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first port access error.
func (d *DevPort) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Close releases /dev/port.
func (d *DevPort) Close() error {
	return unix.Close(d.fd)
}
