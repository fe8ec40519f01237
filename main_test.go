package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, stdin string) (*app, *bytes.Buffer) {
	t.Helper()

	config := &Config{}
	require.NoError(t, config.Init(t.TempDir()))
	require.NoError(t, config.Load())

	stdout := &bytes.Buffer{}
	return &app{
		config:   config,
		reporter: NewReporter(),
		stdin:    strings.NewReader(stdin),
		stdout:   stdout,
	}, stdout
}

func TestAppUsage(t *testing.T) {
	a, _ := newTestApp(t, "")
	ctx := context.Background()

	for _, tc := range []struct {
		command string
		args    []string
	}{
		{"compress", []string{"only-one"}},
		{"decompress", nil},
		{"verify", []string{"a", "b"}},
		{"script", []string{"a", "b"}},
		{"explode", nil},
	} {
		err := a.run(ctx, tc.command, tc.args)
		var uerr usageError
		require.True(t, errors.As(err, &uerr), "%s %v: %v", tc.command, tc.args, err)
	}
}

func TestAppCommands(t *testing.T) {
	a, stdout := newTestApp(t, "")
	ctx := context.Background()
	dir := t.TempDir()

	in := writeFile(t, dir, "in.txt", []byte("she sells sea shells by the sea shore"))
	packed := filepath.Join(dir, "in.huf")
	out := filepath.Join(dir, "out.txt")

	require.NoError(t, a.run(ctx, "compress", []string{in, packed}))
	require.Contains(t, stdout.String(), "Time taken to compress this file:")
	require.NoError(t, a.run(ctx, "decompress", []string{packed, out}))
	require.Contains(t, stdout.String(), "Time taken to decompress this file:")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "she sells sea shells by the sea shore", string(got))

	require.NoError(t, a.run(ctx, "verify", []string{in}))
	require.Contains(t, stdout.String(), in+": ok, 37 -> ")

	last, ok := a.reporter.Last()
	require.True(t, ok)
	require.Equal(t, "verify", last.Op)
}

func TestAppScriptFile(t *testing.T) {
	a, stdout := newTestApp(t, "")
	dir := t.TempDir()
	script := writeFile(t, dir, "job.anko", []byte(`println(sprintf("%s+%s", "a", "b"))`))

	require.NoError(t, a.run(context.Background(), "script", []string{script}))
	require.Equal(t, "a+b\n", stdout.String())

	err := a.run(context.Background(), "script", []string{filepath.Join(dir, "missing.anko")})
	require.ErrorIs(t, err, ErrUnopenableFile)
}

func TestAppPrompt(t *testing.T) {
	a, stdout := newTestApp(t, "9\n")
	err := a.run(context.Background(), "prompt", nil)
	require.ErrorIs(t, err, ErrBadChoice)
	require.Contains(t, stdout.String(), "1) Compress a file")
}

func TestAppInit(t *testing.T) {
	a, stdout := newTestApp(t, "")
	a.config.ChunkSize = 2048

	require.NoError(t, a.run(context.Background(), "init", nil))
	require.Contains(t, stdout.String(), a.config.Dir())

	loaded := &Config{}
	require.NoError(t, loaded.Init(a.config.Dir()))
	require.NoError(t, loaded.Load())
	require.Equal(t, 2048, loaded.ChunkSize)
	require.Equal(t, a.config.Script, loaded.Script)

	_, err := os.Stat(filepath.Join(a.config.Dir(), "script.anko"))
	require.NoError(t, err)

	var uerr usageError
	require.True(t, errors.As(a.run(context.Background(), "init", []string{"extra"}), &uerr))
}
