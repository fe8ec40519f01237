package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScriptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "a.txt", []byte(strings.Repeat("abracadabra ", 30)))
	packed := filepath.Join(dir, "a.huf")
	out := filepath.Join(dir, "a.out")

	stdout := &bytes.Buffer{}
	sr := NewScriptRunner(nil, stdout)
	script := fmt.Sprintf(`
r = compress(%q, %q)
println(sprintf("%%d", r.InputSize))
d = decompress(%q, %q)
verify(%q)
d.OutputSize
`, in, packed, packed, out, in)

	result, err := sr.Run(context.Background(), script)
	require.NoError(t, err)
	require.Equal(t, int64(360), result)
	require.Equal(t, "360\n", stdout.String())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("abracadabra ", 30), string(got))
}

func TestScriptGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", []byte("one"))
	writeFile(t, dir, "two.txt", []byte("two two"))

	stdout := &bytes.Buffer{}
	sr := NewScriptRunner(nil, stdout)
	_, err := sr.Run(context.Background(), `
for name in glob("`+filepath.Join(dir, "*.txt")+`") {
  compress(name, name + ".huf")
}
println(len(glob("`+filepath.Join(dir, "*.huf")+`")))
`)
	require.NoError(t, err)
	require.Equal(t, "2\n", stdout.String())
}

func TestScriptFailures(t *testing.T) {
	dir := t.TempDir()
	sr := NewScriptRunner(nil, &bytes.Buffer{})

	script := fmt.Sprintf(`compress(%q, %q)
compress(%q, %q)`, filepath.Join(dir, "missing"), filepath.Join(dir, "x.huf"), filepath.Join(dir, "gone"), filepath.Join(dir, "y.huf"))
	_, err := sr.Run(context.Background(), script)
	require.ErrorIs(t, err, ErrUnopenableFile)
	require.Contains(t, err.Error(), "2 operations failed")

	_, err = NewScriptRunner(nil, &bytes.Buffer{}).Run(context.Background(), `this is not anko (`)
	require.Error(t, err)
}

func TestDefaultScriptParses(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	writeFile(t, dir, "sample.txt", []byte("go go gophers for the win!"))

	c := &Config{}
	c.SetDefaultScript()

	stdout := &bytes.Buffer{}
	_, err = NewScriptRunner(nil, stdout).Run(context.Background(), c.Script)
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "sample.txt: 26 -> ")
}
