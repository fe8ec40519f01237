package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "huffzip")

	c := &Config{}
	require.NoError(t, c.Init(dir))
	require.Equal(t, dir, c.Dir())
	require.NoError(t, c.Load())

	require.Equal(t, DEFAULT_CHUNK_SIZE, c.ChunkSize)
	require.Equal(t, "localhost:8667", c.ListenAddress)
	require.Contains(t, c.Script, `glob("*.txt")`)
	require.Equal(t, DEFAULT_CHUNK_SIZE, c.Options(nil).chunkSize())
}

func TestConfigSaveLoad(t *testing.T) {
	dir := t.TempDir()

	c := &Config{}
	require.NoError(t, c.Init(dir))
	c.SetDefaults()
	c.ChunkSize = 4096
	c.IRCAddress = "irc.example.org:6697"
	c.Script = `println("hi")`
	require.NoError(t, c.Save())

	loaded := &Config{}
	require.NoError(t, loaded.Init(dir))
	require.NoError(t, loaded.Load())
	require.Equal(t, 4096, loaded.ChunkSize)
	require.Equal(t, "irc.example.org:6697", loaded.IRCAddress)
	require.Equal(t, `println("hi")`, loaded.Script)

	b, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.NotContains(t, string(b), "println")
}

func TestConfigBadChunkSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"chunk_size": -5}`), 0644))

	c := &Config{}
	require.NoError(t, c.Init(dir))
	require.NoError(t, c.LoadConfig())
	require.Equal(t, DEFAULT_CHUNK_SIZE, c.ChunkSize)
	require.Equal(t, "localhost:8667", c.ListenAddress)
}

func TestConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{`), 0644))

	c := &Config{}
	require.NoError(t, c.Init(dir))
	require.Error(t, c.LoadConfig())
}
