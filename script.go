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
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/anko/env"
	"github.com/mattn/anko/vm"
)

// ScriptRunner evaluates anko batch scripts against the codec.
type ScriptRunner struct {
	Opts *Options
	Out  io.Writer

	failed []error
	mu     sync.Mutex
}

func NewScriptRunner(opts *Options, out io.Writer) *ScriptRunner {
	return &ScriptRunner{Opts: opts, Out: out}
}

func (sr *ScriptRunner) fail(err error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.failed = append(sr.failed, err)
}

func (sr *ScriptRunner) newEnv(ctx context.Context) (*env.Env, error) {
	e := env.NewEnv()

	var errors []error
	errors = append(errors, e.DefineType("Report", Report{}))
	errors = append(errors, e.Define("compress", func(in, out string) *Report {
		report, err := Compress(ctx, in, out, sr.Opts)
		if err != nil {
			sr.fail(err)
			return nil
		}
		return report
	}))
	errors = append(errors, e.Define("decompress", func(in, out string) *Report {
		report, err := Decompress(ctx, in, out, sr.Opts)
		if err != nil {
			sr.fail(err)
			return nil
		}
		return report
	}))
	errors = append(errors, e.Define("verify", func(path string) bool {
		_, err := Verify(ctx, path, sr.Opts)
		if err != nil {
			sr.fail(err)
			return false
		}
		return true
	}))
	errors = append(errors, e.Define("glob", func(pattern string) []string {
		names, err := filepath.Glob(pattern)
		if err != nil {
			log.Warningf("bad pattern %q: %s", pattern, err)
			return nil
		}
		return names
	}))
	errors = append(errors, e.Define("println", func(args ...interface{}) {
		fmt.Fprintln(sr.Out, args...)
	}))
	errors = append(errors, e.Define("sprintf", fmt.Sprintf))
	errors = append(errors, e.Define("join", strings.Join))
	for _, err := range errors {
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Run executes script. Failed codec calls do not stop the script but make
// Run return an error describing the first one.
func (sr *ScriptRunner) Run(ctx context.Context, script string) (interface{}, error) {
	e, err := sr.newEnv(ctx)
	if err != nil {
		return nil, err
	}

	result, err := vm.ExecuteContext(ctx, e, nil, script)
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	if len(sr.failed) > 0 {
		return result, fmt.Errorf("%d operations failed, first: %w", len(sr.failed), sr.failed[0])
	}

	return result, nil
}

// vim: ai:ts=8:sw=8:noet:syntax=go
