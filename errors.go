package main

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrUnopenableFile      = errors.New("file couldn't be opened")
	ErrContainerOpen       = errors.New("cannot open container")
	ErrInternalConsistency = errors.New("internal consistency error")
	ErrTruncated           = errors.New("payload ended before the declared length")
	ErrSamePath            = errors.New("input and output are the same file")
)

// FormatError reports a malformed header or container framing.
type FormatError struct {
	Reason string
	Offset int
	Err    error
}

func (e *FormatError) Error() string {
	b := &bytes.Buffer{}
	b.WriteString("format error")
	if e.Offset >= 0 {
		fmt.Fprintf(b, " at offset %d", e.Offset)
	}
	fmt.Fprintf(b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(b, ": %s", e.Err)
	}

	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(offset int, format string, args ...interface{}) *FormatError {
	return &FormatError{
		Reason: fmt.Sprintf(format, args...),
		Offset: offset,
	}
}

func inconsistent(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternalConsistency, fmt.Sprintf(format, args...))
}

// vim: ai:ts=8:sw=8:noet:syntax=go
