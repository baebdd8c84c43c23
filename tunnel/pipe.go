package tunnel

import (
	"io"
	"net"
	"time"
)

// withDeadlines returns c unchanged when it supports read deadlines.
// Otherwise (SSH channels reject them) it splices c through net.Pipe,
// whose ends do, so callers can bound and interrupt reads.
func withDeadlines(c net.Conn) net.Conn {
	if err := c.SetReadDeadline(time.Time{}); err == nil {
		return c
	}

	local, remote := net.Pipe()
	go func() {
		io.Copy(remote, c) //nolint:errcheck
		remote.Close()
	}()
	go func() {
		io.Copy(c, remote) //nolint:errcheck
		c.Close()
	}()
	return &splicedConn{Conn: local, laddr: c.LocalAddr(), raddr: c.RemoteAddr()}
}

// splicedConn reports the underlying connection's addresses rather
// than net.Pipe's placeholders.
type splicedConn struct {
	net.Conn
	laddr, raddr net.Addr
}

func (s *splicedConn) LocalAddr() net.Addr  { return s.laddr }
func (s *splicedConn) RemoteAddr() net.Addr { return s.raddr }
