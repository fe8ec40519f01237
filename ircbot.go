package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"gopkg.in/irc.v3"
)

const IRC_RECONNECT_DELAY = 30 * time.Second

// IRCBot announces finished jobs in a channel.
type IRCBot struct {
	Address     string
	UserName    string
	Password    string
	ChannelName string
	UseTLS      bool
	Reporter    *Reporter

	// dial is replaced in tests
	dial func(ctx context.Context) (io.ReadWriteCloser, error)

	online bool
	joined bool
	client *irc.Client
	conn   io.ReadWriteCloser
	mu     *sync.Mutex
}

func NewIRCBot(c *Config, reporter *Reporter) *IRCBot {
	b := &IRCBot{
		Address:     c.IRCAddress,
		UserName:    c.IRCNick,
		Password:    c.IRCPassword,
		ChannelName: strings.TrimPrefix(c.IRCChannel, "#"),
		UseTLS:      c.IRCTLS,
		Reporter:    reporter,
		mu:          new(sync.Mutex),
	}
	b.dial = b.dialNetwork
	return b
}

func (b *IRCBot) dialNetwork(ctx context.Context) (io.ReadWriteCloser, error) {
	d := &net.Dialer{Timeout: 10 * time.Second}
	if b.UseTLS {
		return tls.DialWithDialer(d, "tcp", b.Address, nil)
	}
	return d.DialContext(ctx, "tcp", b.Address)
}

// FormatReport renders a report as a single IRC line.
func FormatReport(r Report) string {
	line := r.String()
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(line)
}

func (b *IRCBot) Say(format string, rest ...interface{}) error {
	b.mu.Lock()
	client := b.client
	joined := b.joined
	b.mu.Unlock()

	if client == nil || !joined {
		return fmt.Errorf("not in #%s", b.ChannelName)
	}

	return client.WriteMessage(&irc.Message{
		Command: "PRIVMSG",
		Params: []string{
			"#" + b.ChannelName,
			fmt.Sprintf(format, rest...),
		},
	})
}

func (b *IRCBot) Handle(c *irc.Client, m *irc.Message) {
	b.mu.Lock()
	ch := b.ChannelName
	b.mu.Unlock()

	switch m.Command {
	case "001":
		// 001 is a welcome event, so we join channels there
		c.Write("JOIN #" + ch)
	case "JOIN":
		if c.FromChannel(m) && m.Prefix != nil && m.Prefix.Name == c.CurrentNick() {
			b.mu.Lock()
			b.joined = true
			b.mu.Unlock()
			log.Infof("joined #%s", ch)
		}
	case "PRIVMSG":
		if !c.FromChannel(m) || m.Prefix == nil {
			return
		}
		if strings.TrimSpace(m.Trailing()) != "!last" {
			return
		}
		if last, ok := b.Reporter.Last(); ok {
			b.Say("%s", FormatReport(last))
		} else {
			b.Say("no jobs yet")
		}
	}
}

func (b *IRCBot) IsOnline() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.online
}

func (b *IRCBot) connect(ctx context.Context) error {
	conn, err := b.dial(ctx)
	if err != nil {
		return err
	}

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick:    b.UserName,
		Pass:    b.Password,
		User:    b.UserName,
		Name:    b.UserName,
		Handler: b,
	})

	b.mu.Lock()
	b.client = client
	b.conn = conn
	b.online = true
	b.joined = false
	b.mu.Unlock()

	return nil
}

func (b *IRCBot) disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = nil
	b.client = nil
	b.online = false
	b.joined = false
}

func (b *IRCBot) announce(ctx context.Context) {
	for report := range b.Reporter.Subscribe(ctx) {
		if err := b.Say("%s", FormatReport(report)); err != nil {
			log.Debugf("cannot announce job: %s", err)
		}
	}
}

// Run keeps the bot connected until ctx is done.
func (b *IRCBot) Run(ctx context.Context) {
	go func() {
		for ctx.Err() == nil {
			b.announce(ctx)
		}
	}()

	for {
		err := b.connect(ctx)
		if err == nil {
			b.mu.Lock()
			client := b.client
			b.mu.Unlock()

			err = client.RunContext(ctx)
			b.disconnect()
		}
		if ctx.Err() != nil {
			return
		}

		log.Warningf("IRC error: %s", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(IRC_RECONNECT_DELAY):
		}
	}
}

// vim: ai:ts=8:sw=8:noet:syntax=go
