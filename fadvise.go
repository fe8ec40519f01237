//go:build !linux
// +build !linux

package main

import (
	"os"
)

func adviseSequential(f *os.File) {}

// vim: ai:ts=8:sw=8:noet:syntax=go
