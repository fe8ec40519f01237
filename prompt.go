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
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrBadChoice = errors.New("that is not a valid choice")

type Prompt struct {
	in   *bufio.Scanner
	out  io.Writer
	opts *Options
}

func NewPrompt(in io.Reader, out io.Writer, opts *Options) *Prompt {
	sc := bufio.NewScanner(in)
	sc.Split(bufio.ScanWords)
	return &Prompt{
		in:   sc,
		out:  out,
		opts: opts,
	}
}

func (p *Prompt) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Run asks for one operation and its two paths, then runs it.
func (p *Prompt) Run(ctx context.Context) error {
	fmt.Fprintln(p.out, "Would you like to:")
	fmt.Fprintln(p.out, "1) Compress a file")
	fmt.Fprintln(p.out, "2) Decompress a file")

	choice, err := p.ask("")
	if err != nil {
		return err
	}

	var op func(context.Context, string, string, *Options) (*Report, error)
	var verb string
	var in_q, out_q string
	switch choice {
	case "1":
		op, verb = Compress, "compress"
		in_q = "Enter the path of the file to be compressed: "
		out_q = "Enter the path where you'd like the compressed file to be saved: "
	case "2":
		op, verb = Decompress, "decompress"
		in_q = "Enter the path of the file to be decompressed: "
		out_q = "Enter the path where you'd like the uncompressed file to be saved: "
	default:
		fmt.Fprintln(p.out, "That is not a valid choice.")
		return fmt.Errorf("%w: %q", ErrBadChoice, choice)
	}

	in, err := p.ask(in_q)
	if err != nil {
		return err
	}
	out, err := p.ask(out_q)
	if err != nil {
		return err
	}

	report, err := op(ctx, in, out, p.opts)
	if err != nil {
		fmt.Fprintln(p.out, err)
		return err
	}

	fmt.Fprintf(p.out, "Time taken to %s this file: %f seconds\n", verb, report.Elapsed.Seconds())
	return nil
}

// vim: ai:ts=8:sw=8:noet:syntax=go
