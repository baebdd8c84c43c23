// Package session represents a single connection lifecycle, binding a
// stream connection with I/O endpoints and shared context.
//
// Sessions decouple capabilities from concrete I/O sources: a
// capability doesn't need to know whether it's reading from os.Stdin
// or a test buffer, it just uses the session's Reader/Writer.
package session

import (
	"context"
	"errors"
	"io"

	"tcpstream/stream"
	"tcpstream/util"
)

// Session encapsulates the runtime context for a single connection.
// The Conn is handed over unconnected so a capability can subscribe
// before the first notification, then call Connect.
type Session struct {
	Conn   *stream.Conn
	Stdin  io.Reader
	Stdout io.Writer
	Logger *util.Logger
}

// New creates a Session bound to the given connection and I/O pair.
func New(conn *stream.Conn, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	return &Session{
		Conn:   conn,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger,
	}
}

// Connect opens the underlying stream.
func (s *Session) Connect(ctx context.Context) error {
	return s.Conn.Connect(ctx)
}

// Done is closed once the connection has finished.
func (s *Session) Done() <-chan struct{} {
	return s.Conn.Done()
}

// Result reports how a finished connection ended.  The remote end
// closing the stream is the normal way a session ends and is not an
// error.
func (s *Session) Result() error {
	err := s.Conn.Err()
	if errors.Is(err, stream.ErrPeerClosed) {
		return nil
	}
	return err
}

// Wait blocks until the connection finishes or ctx is cancelled, in
// which case it disconnects.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.Done():
		return s.Result()
	case <-ctx.Done():
		s.Conn.Disconnect()
		return ctx.Err()
	}
}
