// Package transport provides abstractions for opening the byte stream
// underneath a stream.Conn.  A transport decides how the socket is
// reached (directly, or forwarded through an SSH gateway) and nothing
// else; reading, delivery and lifecycle belong to the stream package.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound stream connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	// Implementations must honour ctx cancellation and deadlines.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
