//go:build !linux

package hw

import "errors"

// DevPort is only available on Linux.
type DevPort struct{}

// OpenDevPort always fails off Linux.
func OpenDevPort() (*DevPort, error) {
	return nil, errors.New("hw: raw port access needs /dev/port (linux only)")
}

func (d *DevPort) Out(port uint16, v byte) {}

func (d *DevPort) In(port uint16) byte { return 0 }

func (d *DevPort) Err() error { return nil }

func (d *DevPort) Close() error { return nil }
