// Package cmd wires up the CLI flags and dispatches to the core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"tcpstream/config"
	"tcpstream/internal/core"
	"tcpstream/internal/metrics"
	"tcpstream/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X tcpstream/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// flags mirrors the command line.  Values only reach the Config when
// the flag was given explicitly, so file and environment settings are
// not clobbered by flag defaults.
type flags struct {
	configPath  string
	timeoutSec  int
	quitSec     int
	noDNS       bool
	sourcePort  int
	encoding    string
	chunkSize   int
	idleGapMS   int
	execute     string
	command     string
	tunnel      string
	sshKey      string
	sshPassword bool
	sshAgent    bool
	strictHost  bool
	knownHosts  string
	verbose     int
	stats       bool
	dryRun      bool
	showVersion bool
	showHelp    bool
}

func newFlagSet(f *flags) *flag.FlagSet {
	fs := flag.NewFlagSet("tcpstream", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// ── connection ───────────────────────────────────────────────
	fs.IntVarP(&f.timeoutSec, "timeout", "w", 0, "Connect timeout in seconds")
	fs.BoolVarP(&f.noDNS, "no-dns", "n", false, "Numeric-only, no DNS resolution")
	fs.IntVarP(&f.sourcePort, "source-port", "p", 0, "Local source port")

	// ── stream ───────────────────────────────────────────────────
	fs.StringVarP(&f.encoding, "encoding", "E", config.DefaultEncoding, "Text encoding (utf-8, ascii, latin1, windows-1252)")
	fs.IntVar(&f.chunkSize, "chunk-size", config.DefaultChunkSize, "Receive chunk size in bytes")
	fs.IntVar(&f.idleGapMS, "idle-gap", int(config.DefaultIdleGap/time.Millisecond), "Receive flush idle gap in milliseconds")
	fs.IntVarP(&f.quitSec, "quit", "q", 0, "After EOF on stdin, wait SECS then quit (0 = wait for remote)")

	// ── execution ────────────────────────────────────────────────
	fs.StringVarP(&f.execute, "exec", "e", "", "Execute program after connect")
	fs.StringVarP(&f.command, "command", "c", "", "Execute shell command after connect")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&f.tunnel, "tunnel", "T", "", "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&f.sshKey, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&f.sshPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&f.sshAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&f.strictHost, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&f.knownHosts, "known-hosts", "", "Custom known_hosts path")

	// ── configuration / output ───────────────────────────────────
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.CountVarP(&f.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&f.stats, "stats", false, "Print metrics JSON to stderr on exit")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&f.showHelp, "help", "h", false, "Show this help")

	return fs
}

// invocation is a parsed command line.
type invocation struct {
	cfg         *config.Config
	dryRun      bool
	showVersion bool
	showHelp    bool
	fs          *flag.FlagSet
}

// parse layers defaults, the config file, the environment, explicit
// flags and positional arguments, in that order of precedence.
func parse(args []string) (*invocation, error) {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	inv := &invocation{
		dryRun:      f.dryRun,
		showVersion: f.showVersion,
		showHelp:    f.showHelp || len(args) == 0,
		fs:          fs,
	}
	if inv.showHelp || inv.showVersion {
		return inv, nil
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(fs, &f, cfg)

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return nil, err
	}
	if err := cfg.ResolveTunnel(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	inv.cfg = cfg
	return inv, nil
}

// applyFlags copies every explicitly set flag onto cfg.
func applyFlags(fs *flag.FlagSet, f *flags, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("timeout", func() { cfg.Timeout = time.Duration(f.timeoutSec) * time.Second })
	set("no-dns", func() { cfg.NoDNS = f.noDNS })
	set("source-port", func() { cfg.LocalPort = f.sourcePort })
	set("encoding", func() { cfg.Encoding = f.encoding })
	set("chunk-size", func() { cfg.ChunkSize = f.chunkSize })
	set("idle-gap", func() { cfg.IdleGap = time.Duration(f.idleGapMS) * time.Millisecond })
	set("quit", func() { cfg.Quit = time.Duration(f.quitSec) * time.Second })
	set("exec", func() { cfg.Execute = f.execute })
	set("command", func() { cfg.Command = f.command })
	set("tunnel", func() { cfg.TunnelSpec = f.tunnel })
	set("ssh-key", func() { cfg.SSHKeyPath = f.sshKey })
	set("ssh-password", func() { cfg.SSHPassword = f.sshPassword })
	set("ssh-agent", func() { cfg.UseSSHAgent = f.sshAgent })
	set("strict-hostkey", func() { cfg.StrictHostKey = f.strictHost })
	set("known-hosts", func() { cfg.KnownHostsPath = f.knownHosts })
	set("verbose", func() { cfg.Verbose = f.verbose })
	set("stats", func() { cfg.Stats = f.stats })
}

// Execute parses args and runs a tcpstream session.
func Execute(ctx context.Context, args []string) error {
	inv, err := parse(args)
	if err != nil {
		return err
	}

	if inv.showHelp {
		printUsage(os.Stderr, inv.fs)
		return nil
	}
	if inv.showVersion {
		fmt.Printf("tcpstream %s\n", version)
		return nil
	}

	cfg := inv.cfg
	logger := util.NewLogger(cfg.Verbose)

	var m *metrics.Collector
	if cfg.Stats {
		m = metrics.New()
	}

	mode, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}
	if inv.dryRun {
		fmt.Fprintf(os.Stderr, "tcpstream: configuration OK (%s)\n", util.FormatAddr(cfg.Host, cfg.Port))
		return nil
	}

	err = mode.Run(ctx)
	if m != nil {
		logger.Info("%s", m.Summary())
		fmt.Fprintln(os.Stderr, m.JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional reads "<host> <port>".  Both may be omitted when the
// config file or environment supplies them.
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil
	case 2:
		port, err := config.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Host = remaining[0]
		cfg.Port = port
		return nil
	case 1:
		return fmt.Errorf("port required (use --help for usage)")
	default:
		return fmt.Errorf("too many arguments: expected <host> <port>")
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `tcpstream – persistent TCP stream client v%s

Opens one TCP connection, sends stdin to it and prints whatever the
remote end sends, flushed whenever the stream goes idle.

Usage:
  tcpstream [options] <host> <port>

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Environment:
  TCPSTREAM_CONFIG, TCPSTREAM_HOST, TCPSTREAM_PORT, TCPSTREAM_TIMEOUT, ...
  (see config/loader.go; flags override the environment, which
  overrides the config file)

Examples:
  tcpstream example.com 80                     TCP connect
  echo PING | tcpstream -q 1 host 7            Send, wait 1s for replies
  tcpstream -E latin1 legacy-host 4000         Non-UTF-8 peer
  tcpstream -T admin@bastion db-internal 5432  Through an SSH gateway
  tcpstream -c 'cat' host 9000                 Wire a command to the stream
`)
}
