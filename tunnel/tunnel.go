// Package tunnel reaches stream endpoints through an SSH gateway,
// backed by golang.org/x/crypto/ssh.  A connection forwarded this way
// is still a plain byte stream to the caller; the tunnel only changes
// how the socket is reached.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts a gateway through which TCP connections can be
// forwarded.
type Tunnel interface {
	// Connect establishes the session with the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the gateway.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the session and frees resources.
	Close() error

	// IsAlive reports whether the gateway session is still up.
	IsAlive() bool
}
