package config

import (
	"time"

	"tcpstream/stream"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = stream.DefaultConnectTimeout

	// DefaultEncoding is the text encoding for sent and received data.
	DefaultEncoding = "utf-8"

	// DefaultChunkSize is the receive loop's per-read buffer size.
	DefaultChunkSize = stream.DefaultChunkSize

	// DefaultIdleGap is how long pending bytes wait for more data
	// before they are delivered.
	DefaultIdleGap = stream.DefaultIdleGap

	// DefaultStopTimeout bounds how long a disconnect waits for the
	// receive loop.
	DefaultStopTimeout = stream.DefaultStopTimeout

	// DefaultKeepAlive is the SSH keepalive interval.
	DefaultKeepAlive = 30 * time.Second

	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "TCPSTREAM_"
)
