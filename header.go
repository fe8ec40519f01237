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
	"strconv"
	"strings"
)

// HEADER_SEP terminates every header field. Codes only ever contain '0' and
// '1', and symbols are read positionally, so a symbol equal to HEADER_SEP is
// still unambiguous.
const HEADER_SEP = '\x18'

type Header struct {
	Total int64
	Codes CodeTable
}

// String serializes the header as "<total>SEP" followed by "<byte><code>SEP"
// for every present byte in ascending order.
func (h *Header) String() string {
	sb := &strings.Builder{}
	sb.WriteString(strconv.FormatInt(h.Total, 10))
	sb.WriteByte(HEADER_SEP)
	for sym, code := range h.Codes {
		if code == "" {
			continue
		}
		sb.WriteByte(byte(sym))
		sb.WriteString(code)
		sb.WriteByte(HEADER_SEP)
	}
	return sb.String()
}

func ParseHeader(text string) (*Header, error) {
	h := &Header{}

	idx := strings.IndexByte(text, HEADER_SEP)
	if idx == -1 {
		return nil, formatErrorf(0, "missing length terminator")
	}

	// only plain digits, as String writes them; ParseInt alone takes a sign
	for i := 0; i < idx; i++ {
		if text[i] < '0' || text[i] > '9' {
			return nil, formatErrorf(i, "bad character %q in total length", text[i])
		}
	}
	total, err := strconv.ParseInt(text[:idx], 10, 64)
	if err != nil {
		return nil, &FormatError{
			Reason: "bad total length " + strconv.Quote(text[:idx]),
			Offset: 0,
			Err:    err,
		}
	}
	h.Total = total

	pos := idx + 1
	for pos < len(text) {
		start := pos
		sym := text[pos]
		pos++

		end := pos
		for end < len(text) && (text[end] == '0' || text[end] == '1') {
			end++
		}
		if end == len(text) {
			return nil, formatErrorf(start, "unterminated code for %q", sym)
		}
		if text[end] != HEADER_SEP {
			return nil, formatErrorf(end, "bad character %q in code for %q", text[end], sym)
		}
		if end == pos {
			return nil, formatErrorf(start, "empty code for %q", sym)
		}
		if h.Codes[sym] != "" {
			return nil, formatErrorf(start, "duplicate code for %q", sym)
		}

		h.Codes[sym] = text[pos:end]
		pos = end + 1
	}

	symbols := h.Codes.Symbols()
	if symbols == 0 && h.Total != 0 {
		return nil, formatErrorf(idx+1, "no codes for %d bytes", h.Total)
	}
	if symbols > 0 && h.Total == 0 {
		return nil, formatErrorf(idx+1, "%d codes for an empty payload", symbols)
	}

	return h, nil
}

// vim: ai:ts=8:sw=8:noet:syntax=go
