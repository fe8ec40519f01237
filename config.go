package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

type Config struct {
	ChunkSize     int    `json:"chunk_size"`
	ListenAddress string `json:"listen_address"`
	IRCAddress    string `json:"irc_address,omitempty"`
	IRCNick       string `json:"irc_nick,omitempty"`
	IRCPassword   string `json:"irc_password,omitempty"`
	IRCChannel    string `json:"irc_channel,omitempty"`
	IRCTLS        bool   `json:"irc_tls,omitempty"`
	Script        string `json:"-"`

	huffzipConfigDir string
}

func (c *Config) SetDefaultScript() {
	c.Script = `
# Compress every .txt file in the current directory and check the result.
for name in glob("*.txt") {
  report = compress(name, name + ".huf")
  println(sprintf("%s: %d -> %d bytes", name, report.InputSize, report.OutputSize))
  verify(name)
}
`
}

func (c *Config) SetDefaults() {
	c.ChunkSize = DEFAULT_CHUNK_SIZE
	c.ListenAddress = "localhost:8667"

	c.IRCAddress = ""
	c.IRCNick = "huffzip"
	c.IRCPassword = ""
	c.IRCChannel = "huffzip"
	c.IRCTLS = true
}

// Init picks the config directory. An empty dir means the user config dir.
func (c *Config) Init(dir string) error {
	if dir == "" {
		cfgdir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(cfgdir, "huffzip")
	}

	c.huffzipConfigDir = dir

	err := os.MkdirAll(c.huffzipConfigDir, 0777)
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}

	return nil
}

func (c *Config) Dir() string {
	return c.huffzipConfigDir
}

func (c *Config) Load() error {
	for _, fn := range []func() error{c.LoadConfig, c.LoadScript} {
		err := fn()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) LoadConfig() error {
	c.SetDefaults()

	f, err := os.Open(filepath.Join(c.huffzipConfigDir, "config.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	err = dec.Decode(c)
	if err != nil {
		return err
	}

	if c.ChunkSize <= 0 {
		c.ChunkSize = DEFAULT_CHUNK_SIZE
	}

	return nil
}

func (c *Config) LoadScript() error {
	b, err := os.ReadFile(filepath.Join(c.huffzipConfigDir, "script.anko"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.SetDefaultScript()
			return nil
		}

		return err
	}

	c.Script = string(b)
	return nil
}

func (c Config) Save() error {
	for _, fn := range []func() error{c.SaveConfig, c.SaveScript} {
		err := fn()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c Config) SaveConfig() error {
	f, err := os.OpenFile(filepath.Join(c.huffzipConfigDir, "config.json"), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	err = enc.Encode(c)
	if err != nil {
		return err
	}

	return nil
}

func (c Config) SaveScript() error {
	f, err := os.OpenFile(filepath.Join(c.huffzipConfigDir, "script.anko"), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write([]byte(c.Script))
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) Options(reporter *Reporter) *Options {
	return &Options{
		ChunkSize: c.ChunkSize,
		Reporter:  reporter,
	}
}

// vim: ai:ts=8:sw=8:noet:syntax=go
