package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderString(t *testing.T) {
	h := &Header{Total: 4}
	h.Codes['c'] = "0"
	h.Codes['a'] = "10"
	h.Codes['b'] = "11"
	require.Equal(t, "4\x18a10\x18b11\x18c0\x18", h.String())
}

func TestHeaderEmpty(t *testing.T) {
	h := &Header{}
	require.Equal(t, "0\x18", h.String())

	parsed, err := ParseHeader(h.String())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}

func TestHeaderFidelity(t *testing.T) {
	for _, input := range []string{
		"go go gophers for the win!",
		strings.Repeat("A", 5000),
		"0101\x18\x18\x00\xff11",
	} {
		f := freqsOf(input)
		h := &Header{Total: f.Total, Codes: BuildTree(f).Codes()}

		parsed, err := ParseHeader(h.String())
		require.NoError(t, err)
		require.Equal(t, h.Total, parsed.Total)
		require.Equal(t, h.Codes, parsed.Codes)
	}
}

func TestHeaderAllBytes(t *testing.T) {
	f := &Frequencies{}
	for i := range f.Counts {
		f.Counts[i] = int64(i + 1)
		f.Total += f.Counts[i]
	}
	h := &Header{Total: f.Total, Codes: BuildTree(f).Codes()}

	parsed, err := ParseHeader(h.String())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}

func TestParseHeaderErrors(t *testing.T) {
	for name, text := range map[string]string{
		"no separator":      "12",
		"non-numeric":       "abc\x18a0\x18",
		"empty length":      "\x18a0\x18",
		"negative":          "-3\x18a0\x18",
		"plus sign":         "+3\x18a0\x18",
		"inner space":       "3 \x18a0\x18",
		"overflow":          "99999999999999999999\x18a0\x18",
		"unterminated":      "3\x18a01",
		"bad code char":     "3\x18a0x\x18",
		"empty code":        "3\x18a\x18",
		"duplicate":         "3\x18a0\x18a1\x18",
		"codes without len": "0\x18a0\x18",
		"len without codes": "5\x18",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHeader(text)
			var ferr *FormatError
			require.ErrorAs(t, err, &ferr)
		})
	}
}

func TestParseHeaderSeparatorSymbol(t *testing.T) {
	h, err := ParseHeader("3\x18\x180\x18010\x18111\x18")
	require.NoError(t, err)
	require.Equal(t, int64(3), h.Total)
	require.Equal(t, "0", h.Codes[HEADER_SEP])
	require.Equal(t, "10", h.Codes['0'])
	require.Equal(t, "11", h.Codes['1'])
}
