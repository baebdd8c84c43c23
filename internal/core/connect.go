package core

import (
	"context"
	"io"
	"os"

	"tcpstream/internal/capability"
	"tcpstream/internal/session"
	"tcpstream/internal/transport"
	"tcpstream/stream"
	"tcpstream/util"
)

// ConnectMode opens a stream connection to Host:Port and runs a
// capability on it; the default client mode.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Host       string
	Port       int
	Logger     *util.Logger

	// Options are applied to the stream.Conn after the dialer and
	// logger, so they may override both.
	Options []stream.Option

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run builds the connection, creates a session, and hands it to the
// capability, which connects it.  The dialer is closed when Run
// returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	opts := append([]stream.Option{
		stream.WithDialer(m.Dialer),
		stream.WithLogger(m.Logger),
	}, m.Options...)
	conn := stream.New(m.Host, m.Port, opts...)
	defer conn.Disconnect()

	m.Logger.Verbose("connecting to %s", conn.Addr())
	conn.OnConnected(func() {
		m.Logger.Verbose("connected to %s", conn.RemoteAddr())
	})

	sess := session.New(conn, m.stdin(), m.stdout(), m.Logger)
	return m.Capability.Handle(ctx, sess)
}
