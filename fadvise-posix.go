//go:build linux
// +build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel that f is read front to back twice.
func adviseSequential(f *os.File) {
	err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	if err != nil {
		log.Debugf("fadvise %q: %s", f.Name(), err)
	}
}

// vim: ai:ts=8:sw=8:noet:syntax=go
