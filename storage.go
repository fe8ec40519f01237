/**
 * Copyright 2022 kmeaw
 *
 * Licensed under the GNU Affero General Public License (AGPL).
 *
 * This program is free software: you can redistribute it and/or modify it
 * under the terms of the GNU Affero General Public License as published by the
 * Free Software Foundation, version 3 of the License.
 *
 * This program is distributed in the hope that it will be useful, but WITHOUT
 * ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
 * FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
 * for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/icza/bitio"
)

type Mode int

const (
	MODE_WRITE Mode = iota
	MODE_READ
)

var STORAGE_MAGIC = [4]byte{'H', 'U', 'F', '1'}

// MAX_HEADER_LEN bounds the header: 20 digits of length plus 256 entries
// of one symbol, at most 255 code bits and a separator.
const MAX_HEADER_LEN = 21 + 256*257

// Storage is the bit-level container: a header string followed by packed
// bits. Bits are stored MSB-first and the last byte is zero-padded.
type Storage struct {
	mode   Mode
	header string
	wrote  bool
	err    error

	bw *bitio.Writer
	br *bitio.Reader

	buf    *bufio.Writer
	file   *os.File
	target string
}

// OpenStorage opens path as a container. In MODE_WRITE the data goes to a
// temporary file next to path which replaces path on a successful Close.
func OpenStorage(path string, mode Mode) (*Storage, error) {
	switch mode {
	case MODE_WRITE:
		dir, name := filepath.Split(path)
		if dir == "" {
			dir = "."
		}
		f, err := os.CreateTemp(dir, "."+name+".*.tmp")
		if err != nil {
			return nil, fmt.Errorf("%w %q: %s", ErrContainerOpen, path, err)
		}
		f.Chmod(0644)
		s := NewStorageWriter(f)
		s.file = f
		s.target = path
		return s, nil
	case MODE_READ:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %s", ErrContainerOpen, path, err)
		}
		s, err := NewStorageReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		s.file = f
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrContainerOpen, mode)
	}
}

func NewStorageWriter(w io.Writer) *Storage {
	buf := bufio.NewWriter(w)
	return &Storage{
		mode: MODE_WRITE,
		buf:  buf,
		bw:   bitio.NewWriter(buf),
	}
}

// NewStorageReader reads the framing and the header from r immediately.
func NewStorageReader(r io.Reader) (*Storage, error) {
	br := bufio.NewReader(r)

	var prefix [8]byte
	if _, err := io.ReadFull(br, prefix[:]); err != nil {
		return nil, &FormatError{Reason: "short container prefix", Offset: 0, Err: err}
	}
	if [4]byte{prefix[0], prefix[1], prefix[2], prefix[3]} != STORAGE_MAGIC {
		return nil, formatErrorf(0, "bad magic %q", prefix[:4])
	}

	n := binary.BigEndian.Uint32(prefix[4:])
	if n > MAX_HEADER_LEN {
		return nil, formatErrorf(4, "header length %d exceeds %d", n, MAX_HEADER_LEN)
	}

	header := make([]byte, n)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, &FormatError{Reason: "short header", Offset: 8, Err: err}
	}

	return &Storage{
		mode:   MODE_READ,
		header: string(header),
		br:     bitio.NewReader(br),
	}, nil
}

// SetHeader must be called before the first Insert.
func (s *Storage) SetHeader(text string) error {
	if s.mode != MODE_WRITE {
		return errors.New("storage is not open for writing")
	}
	if s.wrote {
		return errors.New("header is already written")
	}
	if len(text) > MAX_HEADER_LEN {
		return fmt.Errorf("header length %d exceeds %d", len(text), MAX_HEADER_LEN)
	}
	s.header = text
	return s.writeHeader()
}

func (s *Storage) writeHeader() error {
	if s.wrote {
		return nil
	}
	s.wrote = true

	var prefix [8]byte
	copy(prefix[:], STORAGE_MAGIC[:])
	binary.BigEndian.PutUint32(prefix[4:], uint32(len(s.header)))
	for _, chunk := range [][]byte{prefix[:], []byte(s.header)} {
		if _, err := s.bw.Write(chunk); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

func (s *Storage) Header() string {
	return s.header
}

// Insert appends a string of '0' and '1' characters to the payload.
func (s *Storage) Insert(bits string) error {
	if s.err != nil {
		return s.err
	}
	if s.mode != MODE_WRITE {
		return errors.New("storage is not open for writing")
	}
	if err := s.writeHeader(); err != nil {
		return err
	}

	for i := 0; i < len(bits); i++ {
		var err error
		switch bits[i] {
		case '0':
			err = s.bw.WriteBool(false)
		case '1':
			err = s.bw.WriteBool(true)
		default:
			err = inconsistent("bad bit %q at %d", bits[i], i)
		}
		if err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

// Extract reads the next packed byte of the payload into out.
func (s *Storage) Extract(out *byte) bool {
	if s.err != nil || s.mode != MODE_READ {
		return false
	}

	b, err := s.br.ReadByte()
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		return false
	}
	*out = b
	return true
}

// Err returns the first I/O error seen by Insert or Extract.
func (s *Storage) Err() error {
	return s.err
}

// Close flushes pending bits. For a container opened with OpenStorage in
// MODE_WRITE the temporary file is renamed over the target.
func (s *Storage) Close() error {
	if s.mode == MODE_READ {
		if s.file != nil {
			return s.file.Close()
		}
		return nil
	}

	err := s.writeHeader()
	if err == nil {
		err = s.bw.Close()
	}
	if err == nil {
		err = s.buf.Flush()
	}
	if err == nil && s.err != nil {
		err = s.err
	}

	if s.file == nil {
		return err
	}

	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(s.file.Name())
		return err
	}

	if err := os.Rename(s.file.Name(), s.target); err != nil {
		os.Remove(s.file.Name())
		return err
	}
	return nil
}

// Abort drops everything written so far.
func (s *Storage) Abort() {
	if s.file == nil {
		return
	}
	s.file.Close()
	if s.mode == MODE_WRITE {
		os.Remove(s.file.Name())
	}
}

// vim: ai:ts=8:sw=8:noet:syntax=go
