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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yookoala/realpath"
	"golang.org/x/net/context/ctxhttp"
)

const FETCH_TIMEOUT = 5 * time.Minute

type Options struct {
	ChunkSize int
	Reporter  *Reporter
	Client    *http.Client
}

func (o *Options) chunkSize() int {
	if o == nil || o.ChunkSize <= 0 {
		return DEFAULT_CHUNK_SIZE
	}
	return o.ChunkSize
}

// Stats describes one pass of Encode or Decode.
type Stats struct {
	Total   int64
	Symbols int
	Digest  string
}

// Report is what Compress and Decompress log and broadcast.
type Report struct {
	Op         string        `json:"op"`
	Input      string        `json:"input"`
	Output     string        `json:"output"`
	InputSize  int64         `json:"input_size"`
	OutputSize int64         `json:"output_size"`
	Symbols    int           `json:"symbols"`
	Digest     string        `json:"digest"`
	Elapsed    time.Duration `json:"elapsed"`
	Error      string        `json:"error,omitempty"`
}

func (r *Report) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%s %s -> %s failed after %.3fs: %s", r.Op, r.Input, r.Output, r.Elapsed.Seconds(), r.Error)
	}
	return fmt.Sprintf(
		"%s %s -> %s: %d -> %d bytes, %d symbols in %.3fs",
		r.Op, r.Input, r.Output, r.InputSize, r.OutputSize, r.Symbols, r.Elapsed.Seconds(),
	)
}

// Encode counts the bytes of in, rewinds it and packs the codes into s.
// s must be fresh; the caller closes it.
func Encode(ctx context.Context, in io.ReadSeeker, s *Storage, opts *Options) (*Stats, error) {
	chunk_size := opts.chunkSize()

	freqs, err := CountFrequencies(in, chunk_size)
	if err != nil {
		return nil, err
	}

	tree := BuildTree(freqs)
	h := &Header{
		Total: freqs.Total,
		Codes: tree.Codes(),
	}
	if err := s.SetHeader(h.String()); err != nil {
		return nil, err
	}
	log.Debugf("header: %d bytes, %d symbols", freqs.Total, h.Codes.Symbols())

	digest := sha256.New()
	stats := &Stats{
		Total:   freqs.Total,
		Symbols: h.Codes.Symbols(),
	}
	if freqs.Total == 0 {
		stats.Digest = hex.EncodeToString(digest.Sum(nil))
		return stats, nil
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("cannot rewind input: %w", err)
	}

	buf := make([]byte, chunk_size)
	sb := &strings.Builder{}
	var encoded int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := io.ReadFull(in, buf)
		if n > 0 {
			sb.Reset()
			if err := h.Codes.Encode(sb, buf[:n]); err != nil {
				return nil, err
			}
			if err := s.Insert(sb.String()); err != nil {
				return nil, err
			}
			digest.Write(buf[:n])
			encoded += int64(n)
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read input: %w", err)
		}
	}

	if encoded != freqs.Total {
		return nil, inconsistent("counted %d bytes but encoded %d", freqs.Total, encoded)
	}

	stats.Digest = hex.EncodeToString(digest.Sum(nil))
	return stats, nil
}

type walker struct {
	tree    *Tree
	cur     int
	total   int64
	decoded int64
	out     *bufio.Writer
	digest  hash.Hash
}

func (w *walker) done() bool {
	return w.decoded == w.total
}

// feed walks the bits of b from the most significant one.
func (w *walker) feed(b byte) error {
	for i := 7; i >= 0; i-- {
		if w.done() {
			return nil
		}

		n := &w.tree.nodes[w.cur]
		next := n.zero
		if b&(1<<uint(i)) != 0 {
			next = n.one
		}
		if next == NO_NODE {
			return inconsistent("bitstream leaves the code tree after %d bytes", w.decoded)
		}

		leaf := &w.tree.nodes[next]
		if !leaf.isLeaf() {
			w.cur = next
			continue
		}

		if err := w.out.WriteByte(leaf.val); err != nil {
			return err
		}
		w.digest.Write([]byte{leaf.val})
		w.cur = w.tree.root
		w.decoded++
	}
	return nil
}

// Decode parses the header of s and writes the decoded bytes to out.
func Decode(ctx context.Context, s *Storage, out io.Writer) (*Stats, error) {
	h, err := ParseHeader(s.Header())
	if err != nil {
		return nil, err
	}

	tree, err := TreeFromCodes(&h.Codes)
	if err != nil {
		return nil, err
	}

	w := &walker{
		tree:   tree,
		cur:    tree.Root(),
		total:  h.Total,
		out:    bufio.NewWriter(out),
		digest: sha256.New(),
	}

	var b byte
	for !w.done() {
		if w.decoded%(64*1024) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if !s.Extract(&b) {
			if err := s.Err(); err != nil {
				return nil, fmt.Errorf("cannot read payload: %w", err)
			}
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, w.decoded, w.total)
		}
		if err := w.feed(b); err != nil {
			return nil, err
		}
	}

	if err := w.out.Flush(); err != nil {
		return nil, err
	}

	return &Stats{
		Total:   w.total,
		Symbols: h.Codes.Symbols(),
		Digest:  hex.EncodeToString(w.digest.Sum(nil)),
	}, nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// fetchRemote downloads url into a temporary file and returns its name.
func fetchRemote(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, FETCH_TIMEOUT)
	defer cancel()

	resp, err := ctxhttp.Get(ctx, client, url)
	if err != nil {
		return "", fmt.Errorf("%w %q: %s", ErrUnopenableFile, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w %q: got status %d", ErrUnopenableFile, url, resp.StatusCode)
	}

	f, err := os.CreateTemp("", "huffzip-fetch-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("cannot download %q: %w", url, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}

func resolvePath(path string) string {
	real, err := realpath.Realpath(path)
	if err == nil {
		return real
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func checkPaths(in, out string) error {
	if resolvePath(in) == resolvePath(out) {
		return fmt.Errorf("%w: %q", ErrSamePath, in)
	}
	return nil
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return fi.Size()
}

func finish(r *Report, t0 time.Time, opts *Options, err error) {
	r.Elapsed = time.Since(t0)
	if err != nil {
		r.Error = err.Error()
		log.Errorf("%s", r)
	} else {
		log.Infof("%s", r)
	}

	if opts != nil && opts.Reporter != nil {
		opts.Reporter.Broadcast(*r)
	}
}

// Compress writes the compressed form of in to out. in may be an http(s)
// URL, which is downloaded first.
func Compress(ctx context.Context, in, out string, opts *Options) (report *Report, err error) {
	t0 := time.Now()
	report = &Report{Op: "compress", Input: in, Output: out}
	defer func() {
		finish(report, t0, opts, err)
	}()

	src := in
	if isRemote(in) {
		var client *http.Client
		if opts != nil {
			client = opts.Client
		}
		src, err = fetchRemote(ctx, client, in)
		if err != nil {
			return report, err
		}
		defer os.Remove(src)
	} else if err = checkPaths(in, out); err != nil {
		return report, err
	}

	f, err := os.Open(src)
	if err != nil {
		return report, fmt.Errorf("%w %q: %s", ErrUnopenableFile, in, err)
	}
	defer f.Close()
	adviseSequential(f)

	s, err := OpenStorage(out, MODE_WRITE)
	if err != nil {
		return report, err
	}

	stats, err := Encode(ctx, f, s, opts)
	if err != nil {
		s.Abort()
		return report, err
	}
	if err = s.Close(); err != nil {
		return report, fmt.Errorf("cannot write %q: %w", out, err)
	}

	report.InputSize = stats.Total
	report.OutputSize = fileSize(out)
	report.Symbols = stats.Symbols
	report.Digest = stats.Digest
	return report, nil
}

// Decompress restores the original bytes of the container in into out.
// out only appears once every byte has been decoded.
func Decompress(ctx context.Context, in, out string, opts *Options) (report *Report, err error) {
	t0 := time.Now()
	report = &Report{Op: "decompress", Input: in, Output: out}
	defer func() {
		finish(report, t0, opts, err)
	}()

	if err = checkPaths(in, out); err != nil {
		return report, err
	}

	s, err := OpenStorage(in, MODE_READ)
	if err != nil {
		return report, err
	}
	defer s.Close()

	dir, name := filepath.Split(out)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return report, fmt.Errorf("%w %q: %s", ErrUnopenableFile, out, err)
	}
	f.Chmod(0644)

	stats, err := Decode(ctx, s, f)
	if err == nil {
		err = f.Close()
	} else {
		f.Close()
	}
	if err == nil {
		err = os.Rename(f.Name(), out)
	}
	if err != nil {
		os.Remove(f.Name())
		return report, err
	}

	report.InputSize = fileSize(in)
	report.OutputSize = stats.Total
	report.Symbols = stats.Symbols
	report.Digest = stats.Digest
	return report, nil
}

// Verify compresses path into a scratch directory, decompresses the result
// and compares the digests of both sides.
func Verify(ctx context.Context, path string, opts *Options) (report *Report, err error) {
	t0 := time.Now()
	report = &Report{Op: "verify", Input: path}
	defer func() {
		finish(report, t0, opts, err)
	}()

	dir, err := os.MkdirTemp("", "huffzip-verify-*")
	if err != nil {
		return report, err
	}
	defer os.RemoveAll(dir)

	packed := filepath.Join(dir, "packed.huf")
	unpacked := filepath.Join(dir, "unpacked")

	cr, err := Compress(ctx, path, packed, opts)
	if err != nil {
		return report, err
	}
	dr, err := Decompress(ctx, packed, unpacked, opts)
	if err != nil {
		return report, err
	}

	report.InputSize = cr.InputSize
	report.OutputSize = cr.OutputSize
	report.Symbols = cr.Symbols
	report.Digest = cr.Digest
	if cr.Digest != dr.Digest || cr.InputSize != dr.OutputSize {
		return report, inconsistent("round trip of %q changed the data: %s != %s", path, cr.Digest, dr.Digest)
	}

	return report, nil
}

// vim: ai:ts=8:sw=8:noet:syntax=go
