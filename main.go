package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"
)

const usageText = `usage: huffzip [-d] [-config DIR] COMMAND [ARGS]

commands:
  compress IN OUT     compress IN (a path or an http(s) URL) into OUT
  decompress IN OUT   restore the original bytes of IN into OUT
  verify IN           compress and decompress IN and compare the results
  prompt              ask for the operation and paths interactively
  script [FILE]       run an anko script (default: script.anko in the config dir)
  serve               run the HTTP front end
  init                write config.json and script.anko into the config dir
`

type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...interface{}) error {
	return usageError{fmt.Sprintf(format, args...)}
}

type app struct {
	config   *Config
	reporter *Reporter
	stdin    io.Reader
	stdout   io.Writer
}

func needArgs(args []string, n int, names string) error {
	if len(args) != n {
		return usageErrorf("expected %s", names)
	}
	return nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	opts := a.config.Options(a.reporter)

	switch command {
	case "compress":
		if err := needArgs(args, 2, "IN OUT"); err != nil {
			return err
		}
		report, err := Compress(ctx, args[0], args[1], opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Time taken to compress this file: %f seconds\n", report.Elapsed.Seconds())
	case "decompress":
		if err := needArgs(args, 2, "IN OUT"); err != nil {
			return err
		}
		report, err := Decompress(ctx, args[0], args[1], opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Time taken to decompress this file: %f seconds\n", report.Elapsed.Seconds())
	case "verify":
		if err := needArgs(args, 1, "IN"); err != nil {
			return err
		}
		report, err := Verify(ctx, args[0], opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s: ok, %d -> %d bytes, sha256 %s\n", args[0], report.InputSize, report.OutputSize, report.Digest)
	case "prompt":
		return NewPrompt(a.stdin, a.stdout, opts).Run(ctx)
	case "script":
		script := a.config.Script
		if len(args) > 1 {
			return usageErrorf("expected at most one FILE")
		}
		if len(args) == 1 {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("%w %q: %s", ErrUnopenableFile, args[0], err)
			}
			script = string(b)
		}
		_, err := NewScriptRunner(opts, a.stdout).Run(ctx, script)
		return err
	case "serve":
		return a.serve(ctx)
	case "init":
		if err := needArgs(args, 0, "no arguments"); err != nil {
			return err
		}
		if err := a.config.Save(); err != nil {
			return fmt.Errorf("cannot save config: %w", err)
		}
		fmt.Fprintf(a.stdout, "wrote config.json and script.anko to %s\n", a.config.Dir())
	default:
		return usageErrorf("unknown command %q", command)
	}

	return nil
}

func (a *app) serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	var bot *IRCBot
	if a.config.IRCAddress != "" {
		bot = NewIRCBot(a.config, a.reporter)
	}

	r, err := NewServer(a.config, a.reporter, bot)
	if err != nil {
		return err
	}

	if bot != nil {
		go bot.Run(ctx)
	}

	l, err := net.Listen("tcp", a.config.ListenAddress)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	log.Infof("Starting up a server on http://%s/", l.Addr())
	err = r.RunListener(l)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func main() {
	fs := flag.NewFlagSet("huffzip", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var debugLogging bool
	var configDir string
	fs.BoolVar(&debugLogging, "debug", false, "")
	fs.BoolVar(&debugLogging, "d", false, "")
	fs.StringVar(&configDir, "config", "", "")

	err := fs.Parse(os.Args[1:])
	if err == flag.ErrHelp {
		io.WriteString(os.Stdout, usageText)
		os.Exit(0)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "huffzip: %s\n%s", err, usageText)
		os.Exit(2)
	}

	startLogging(os.Stderr, debugLogging)

	if fs.NArg() == 0 {
		io.WriteString(os.Stderr, usageText)
		os.Exit(2)
	}

	config := &Config{}
	if err := config.Init(configDir); err != nil {
		log.Fatalf("cannot init config system: %s", err)
	}
	if err := config.Load(); err != nil {
		log.Fatalf("error loading config file: %s", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a := &app{
		config:   config,
		reporter: NewReporter(),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
	}

	err = a.run(ctx, fs.Arg(0), fs.Args()[1:])
	if err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(os.Stderr, "huffzip: %s\n%s", err, usageText)
			cancel()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "huffzip: %s\n", err)
		cancel()
		os.Exit(1)
	}
}

// vim: ai:ts=8:sw=8:noet:syntax=go
