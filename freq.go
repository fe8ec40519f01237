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
	"fmt"
	"io"
)

const DEFAULT_CHUNK_SIZE = 1024

// Frequencies holds occurrence counts for every byte value.
type Frequencies struct {
	Counts [256]int64
	Total  int64
}

// CountFrequencies reads r until EOF. The caller owns r.
func CountFrequencies(r io.Reader, chunk_size int) (*Frequencies, error) {
	if chunk_size <= 0 {
		chunk_size = DEFAULT_CHUNK_SIZE
	}

	f := &Frequencies{}
	buf := make([]byte, chunk_size)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			f.Counts[b]++
		}
		f.Total += int64(n)

		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, fmt.Errorf("cannot count frequencies: %w", err)
		}
	}
}

// Symbols returns the number of distinct byte values seen.
func (f *Frequencies) Symbols() int {
	n := 0
	for _, c := range f.Counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// vim: ai:ts=8:sw=8:noet:syntax=go
