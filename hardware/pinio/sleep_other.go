//go:build !linux
// +build !linux

package pinio

import "time"

func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}
