// Package errors provides domain-specific error types for tcpstream.
//
// Synchronous failures carry structured context (operation, address,
// failure kind) so callers can branch with errors.As instead of matching
// strings.  Asynchronous failures inside a receive loop are never
// returned; they travel as the reason attached to a disconnect
// notification and use the same types.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("connection already used")
	ErrPeerClosed       = errors.New("connection closed by peer")
	ErrTunnelClosed     = errors.New("tunnel is closed")
	ErrAuthFailed       = errors.New("authentication failed")
)

// ── Connection errors ────────────────────────────────────────────────

// Kind classifies why a connection could not be established.
type Kind int

const (
	KindDial     Kind = iota // anything not covered below
	KindDNS                  // host name did not resolve
	KindRefused              // nothing listening on the remote port
	KindTimeout              // connect timeout elapsed
	KindCanceled             // caller cancelled the context
)

func (k Kind) String() string {
	switch k {
	case KindDNS:
		return "dns"
	case KindRefused:
		return "refused"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "dial"
	}
}

// ConnectionError is returned when a connection cannot be opened.
type ConnectionError struct {
	Host string
	Port int
	Kind Kind
	Err  error
}

func (e *ConnectionError) Error() string {
	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	return fmt.Sprintf("connect %s (%s): %v", addr, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ── I/O errors ───────────────────────────────────────────────────────

// IOError represents a failed transfer on an established connection.
type IOError struct {
	Op   string // "send", "encode", "read"
	Addr string // remote address
	Err  error
}

func (e *IOError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name, as its CLI flag
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Connect wraps a dial failure into a ConnectionError, classifying it.
func Connect(host string, port int, err error) *ConnectionError {
	return &ConnectionError{Host: host, Port: port, Kind: Classify(err), Err: err}
}

// IO creates an IOError.
func IO(op, addr string, err error) *IOError {
	return &IOError{Op: op, Addr: addr, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// Classify inspects standard library error types to decide why a dial
// failed.  Context errors are checked first because a cancelled dial
// surfaces as a net.OpError wrapping them.
func Classify(err error) Kind {
	if err == nil {
		return KindDial
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindDial
}

// IsClosed reports whether err is the expected result of using a
// connection after it was closed locally or by the peer.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, ErrPeerClosed)
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use tcpstream/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
