// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// wamprtc joins a WAMP realm over a WebRTC data channel. It signals
// through a WAMP router: the offer goes to the router's offer
// procedure and ICE candidates trickle over its topics. Once the data
// channel is open, the session handshake runs over it and wamprtc
// prints the resulting session. With --call it invokes one procedure
// over the channel, prints the result as JSON and exits; otherwise it
// stays connected until interrupted or the channel closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/wamprtc/lib/config"
	"github.com/bureau-foundation/wamprtc/lib/secret"
	"github.com/bureau-foundation/wamprtc/lib/version"
	"github.com/bureau-foundation/wamprtc/session"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the command line. String fields left empty keep the
// configured value.
type flags struct {
	configPath string
	url        string
	realm      string
	serializer string
	authID     string
	ticket     string
	ticketFile string
	ticketBuf  *secret.Buffer
	askTicket  bool
	timeout    time.Duration
	call       string
	verbose    bool
	version    bool
	help       bool
}

func parseFlags(args []string) (*flags, []string, *pflag.FlagSet, error) {
	var f flags
	flagSet := pflag.NewFlagSet("wamprtc", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&f.configPath, "config", "", "client config file, YAML or JSONC (default: $WAMPRTC_CONFIG)")
	flagSet.StringVar(&f.url, "url", "", "signaling router WebSocket URL")
	flagSet.StringVar(&f.realm, "realm", "", "realm to join over the data channel (and for signaling, if the config sets none)")
	flagSet.StringVar(&f.serializer, "serializer", "", "data channel serializer: json, cbor or msgpack")
	flagSet.StringVar(&f.authID, "authid", "", "authid to join the realm as")
	flagSet.StringVar(&f.ticket, "ticket", "", "join with ticket authentication using this ticket")
	flagSet.StringVar(&f.ticketFile, "ticket-file", "", "read the ticket from this file (- for stdin)")
	flagSet.BoolVar(&f.askTicket, "ask-ticket", false, "prompt for the ticket without echo")
	flagSet.DurationVar(&f.timeout, "timeout", 30*time.Second, "bound on signaling, channel setup and the handshake")
	flagSet.StringVar(&f.call, "call", "", "call this procedure with the remaining arguments, print the result and exit")
	flagSet.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level, including ICE and pion diagnostics")
	flagSet.BoolVar(&f.version, "version", false, "print version and exit")
	flagSet.BoolVarP(&f.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, flagSet, err
	}
	return &f, flagSet.Args(), flagSet, nil
}

func run(args []string, stdout io.Writer) error {
	f, rest, flagSet, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if f.help {
		printHelp(flagSet)
		return nil
	}
	if f.version {
		fmt.Fprintf(stdout, "wamprtc %s\n", version.Info())
		return nil
	}
	if len(rest) > 0 && f.call == "" {
		return fmt.Errorf("unexpected argument: %s (arguments are only accepted with --call)", rest[0])
	}

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if f.askTicket || f.ticketFile != "" {
		ticket, err := readTicket(f)
		if err != nil {
			return err
		}
		defer ticket.Close()
		f.ticketBuf = ticket
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, f.timeout)
	client, err := session.Connect(connectCtx, cfg, logger)
	cancel()
	// Both handshakes are done; the ticket is not needed again.
	if f.ticketBuf != nil {
		f.ticketBuf.Close()
	}
	if err != nil {
		return err
	}
	defer client.Close()

	base := client.Base()
	fmt.Fprintf(stdout, "session %d\nrealm %s\nauthid %s\nauthrole %s\n",
		base.ID(), base.Realm(), base.AuthID(), base.AuthRole())

	if f.call != "" {
		return call(ctx, client, f.call, rest, stdout)
	}

	select {
	case <-ctx.Done():
		logger.Info("interrupted, closing")
	case <-client.Done():
		if err := client.Err(); err != nil {
			return fmt.Errorf("session ended: %w", err)
		}
	}
	return nil
}

// loadConfig reads the config file named by --config or
// WAMPRTC_CONFIG, or starts from defaults when neither is set, and
// applies the flag overrides.
func loadConfig(f *flags) (*config.Client, error) {
	var cfg *config.Client
	var err error
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv("WAMPRTC_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f.url != "" {
		cfg.Router.URL = f.url
	}
	if f.realm != "" {
		cfg.Realm = f.realm
		if cfg.Router.Realm == "" {
			cfg.Router.Realm = f.realm
		}
	}
	if f.serializer != "" {
		cfg.Serializer = f.serializer
		cfg.Subprotocol = ""
	}
	switch {
	case f.ticketBuf != nil:
		cfg.Auth.Method = config.AuthTicket
		cfg.Auth.Ticket = ""
		cfg.Auth.TicketBuffer = f.ticketBuf
	case f.ticket != "":
		cfg.Auth.Method = config.AuthTicket
		cfg.Auth.Ticket = f.ticket
	}
	if f.authID != "" {
		cfg.Auth.AuthID = f.authID
	}
	return cfg, nil
}

// readTicket reads the ticket from --ticket-file or the terminal into
// locked memory. The caller closes the buffer.
func readTicket(f *flags) (*secret.Buffer, error) {
	var buffer *secret.Buffer
	var err error
	if f.ticketFile != "" {
		buffer, err = secret.ReadFile(f.ticketFile)
	} else {
		buffer, err = secret.ReadTerminal("Ticket: ")
	}
	if err != nil {
		return nil, fmt.Errorf("reading ticket: %w", err)
	}
	return buffer, nil
}

// call invokes procedure with args and prints the positional and
// keyword results as one JSON object. Arguments that parse as JSON are
// sent decoded; anything else is sent as a string.
func call(ctx context.Context, client *session.Client, procedure string, args []string, stdout io.Writer) error {
	result, err := client.Call(ctx, procedure, callArguments(args)...)
	if err != nil {
		return err
	}
	output, err := json.Marshal(map[string]any{"args": result.Args, "kwargs": result.KwArgs})
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintf(stdout, "%s\n", output)
	return nil
}

func callArguments(args []string) []any {
	values := make([]any, len(args))
	for i, arg := range args {
		var value any
		if err := json.Unmarshal([]byte(arg), &value); err == nil {
			values[i] = value
		} else {
			values[i] = arg
		}
	}
	return values
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `wamprtc joins a WAMP realm over a WebRTC data channel, signaling
through a WAMP router.

Usage:
  wamprtc [flags]
  wamprtc [flags] --call <procedure> [args...]

Examples:
  # Join using a config file and stay connected
  wamprtc --config client.yaml

  # Join anonymously with defaults and call a procedure
  wamprtc --url ws://localhost:8080/ws --realm realm1 --call com.example.add 2 3

  # Join with a ticket typed at the terminal
  wamprtc --config client.yaml --authid alice --ask-ticket

  # Join with a ticket from a file
  wamprtc --config client.yaml --authid alice --ticket-file ~/.wamprtc/ticket

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
