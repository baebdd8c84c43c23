// Package config defines the runtime configuration for tcpstream and
// provides helpers for parsing ports and tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	ncerr "tcpstream/internal/errors"
	"tcpstream/stream"
)

// Config holds every tuneable for a single tcpstream session.  The yaml
// tags are the keys accepted by LoadFile.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	LocalPort int           `yaml:"source_port"` // -p: local bind port
	Timeout   time.Duration `yaml:"timeout"`
	NoDNS     bool          `yaml:"no_dns"`

	// ── Stream ───────────────────────────────────────────────────────
	Encoding    string        `yaml:"encoding"`
	ChunkSize   int           `yaml:"chunk_size"`
	IdleGap     time.Duration `yaml:"idle_gap"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
	Quit        time.Duration `yaml:"quit"` // linger after stdin EOF; 0 = wait for remote

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string        `yaml:"tunnel"` // raw [user@]host[:port] from -T
	TunnelEnabled  bool          `yaml:"-"`
	TunnelUser     string        `yaml:"-"`
	TunnelHost     string        `yaml:"-"`
	TunnelPort     int           `yaml:"-"`
	SSHKeyPath     string        `yaml:"ssh_key"`
	SSHPassword    bool          `yaml:"ssh_password"` // true → prompt interactively
	UseSSHAgent    bool          `yaml:"ssh_agent"`
	StrictHostKey  bool          `yaml:"strict_hostkey"`
	KnownHostsPath string        `yaml:"known_hosts"`
	KeepAlive      time.Duration `yaml:"keepalive"`

	// ── Execution ────────────────────────────────────────────────────
	Execute string `yaml:"exec"`    // -e: program path
	Command string `yaml:"command"` // -c: shell command

	// ── Output ───────────────────────────────────────────────────────
	Verbose int  `yaml:"verbose"`
	Stats   bool `yaml:"stats"`
}

// Defaults returns a Config populated with the values in defaults.go.
func Defaults() *Config {
	return &Config{
		Timeout:     DefaultConnTimeout,
		Encoding:    DefaultEncoding,
		ChunkSize:   DefaultChunkSize,
		IdleGap:     DefaultIdleGap,
		StopTimeout: DefaultStopTimeout,
		KeepAlive:   DefaultKeepAlive,
	}
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port in 1-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ResolveTunnel parses TunnelSpec into the Tunnel* fields.  An empty
// spec disables the tunnel.
func (c *Config) ResolveTunnel() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@gateway or -T user@gateway:2222",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.  It
// returns a *errors.ConfigError naming the offending flag.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "hostname is required",
			Hint:    "usage: tcpstream [options] <host> <port>",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "destination port must be in 1-65535",
		}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &ncerr.ConfigError{
			Field:   "source-port",
			Value:   c.LocalPort,
			Message: "source port must be in 0-65535",
		}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.Quit < 0 {
		return &ncerr.ConfigError{Field: "quit", Value: c.Quit, Message: "must not be negative"}
	}
	if c.ChunkSize < 1 {
		return &ncerr.ConfigError{
			Field:   "chunk-size",
			Value:   c.ChunkSize,
			Message: "must be at least 1 byte",
			Hint:    fmt.Sprintf("the default is %d", DefaultChunkSize),
		}
	}
	if c.IdleGap <= 0 {
		return &ncerr.ConfigError{Field: "idle-gap", Value: c.IdleGap, Message: "must be positive"}
	}
	if _, err := stream.ParseEncoding(c.Encoding); err != nil {
		return &ncerr.ConfigError{
			Field:   "encoding",
			Value:   c.Encoding,
			Message: "unknown encoding",
			Hint:    "use utf-8, ascii, latin1 or windows-1252",
		}
	}

	if c.Execute != "" && c.Command != "" {
		return &ncerr.ConfigError{
			Field:   "exec",
			Message: "-e and -c are mutually exclusive",
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: "tunnel host is required",
		}
	}
	if !c.TunnelEnabled && (c.SSHKeyPath != "" || c.SSHPassword) {
		return &ncerr.ConfigError{
			Field:   "ssh-key",
			Message: "SSH credentials given without a tunnel",
			Hint:    "add -T user@gateway",
		}
	}

	return nil
}
