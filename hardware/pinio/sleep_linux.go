//go:build linux
// +build linux

package pinio

import (
	"time"

	"golang.org/x/sys/unix"
)

// Sleep blocks for at least d using nanosleep(2), resumed with remaining time on EINTR.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		err := unix.Nanosleep(&ts, &ts)
		if err != unix.EINTR {
			return
		}
	}
}
