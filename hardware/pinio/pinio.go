// Package pinio is the minimal GPIO capability set a bit-banged device driver needs:
// configure pin as output, write digital level, sleep.
// Backends: gpio-cdev-go character device, periph.io host drivers, recording Mock.
package pinio

import (
	"io"
	"strconv"
	"time"
)

// Pin is a GPIO line number as understood by the backend.
type Pin int

// NoPin marks optional pin as not connected.
const NoPin Pin = -1

func (p Pin) Valid() bool { return p >= 0 }

func (p Pin) String() string {
	if p == NoPin {
		return "none"
	}
	return strconv.Itoa(int(p))
}

type Level byte

const (
	Low  Level = 0
	High Level = 1
)

func LevelOf(b bool) Level {
	if b {
		return High
	}
	return Low
}

func (l Level) String() string {
	if l == Low {
		return "low"
	}
	return "high"
}

type Driver interface {
	io.Closer
	Output(pin Pin) error
	Set(pin Pin, level Level) error
	// Blocks for at least d.
	Sleep(d time.Duration)
}
