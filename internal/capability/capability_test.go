package capability

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"tcpstream/internal/session"
	"tcpstream/stream"
	"tcpstream/util"
)

// lockedBuffer is a bytes.Buffer safe for the receive loop to write
// while the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func serve(t *testing.T, handle func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func newSession(port int, stdin io.Reader, stdout io.Writer) *session.Session {
	conn := stream.New("127.0.0.1", port, stream.WithConnectTimeout(2*time.Second))
	return session.New(conn, stdin, stdout, util.NewLogger(0))
}

// TestRelay_Echo verifies Relay shuttles stdin to the connection and
// received data to stdout, then quits after the linger.
func TestRelay_Echo(t *testing.T) {
	port := serve(t, func(conn net.Conn) {
		io.Copy(conn, conn) //nolint:errcheck
	})

	output := &lockedBuffer{}
	sess := newSession(port, strings.NewReader("hello relay\n"), output)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	relay := &Relay{Linger: 300 * time.Millisecond}
	if err := relay.Handle(ctx, sess); err != nil {
		t.Fatalf("Relay.Handle: %v", err)
	}

	if got := output.String(); got != "hello relay\n" {
		t.Errorf("output = %q, want %q", got, "hello relay\n")
	}
	if sess.Conn.IsConnected() {
		t.Error("connection should be closed after the linger")
	}
}

// TestRelay_RemoteClose verifies a remote close ends the relay without
// error and everything sent before it is written out.
func TestRelay_RemoteClose(t *testing.T) {
	port := serve(t, func(conn net.Conn) {
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	})

	output := &lockedBuffer{}
	sess := newSession(port, strings.NewReader(""), output)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := (&Relay{}).Handle(ctx, sess); err != nil {
		t.Fatalf("Relay.Handle: %v", err)
	}
	if got := output.String(); got != "hello from server\n" {
		t.Errorf("output = %q", got)
	}
}

// TestRelay_ContextCancel verifies cancellation disconnects even while
// stdin is still open.
func TestRelay_ContextCancel(t *testing.T) {
	port := serve(t, func(conn net.Conn) {
		io.Copy(io.Discard, conn) //nolint:errcheck
	})

	stdin, stdinW := io.Pipe()
	defer stdinW.Close()
	sess := newSession(port, stdin, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := (&Relay{}).Handle(ctx, sess); err != nil {
		t.Fatalf("Relay.Handle: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Handle took %s after cancel", time.Since(start))
	}
	if sess.Conn.IsConnected() {
		t.Error("connection should be closed")
	}
}

// TestRelay_ConnectFailure verifies a dial error is returned as is.
func TestRelay_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sess := newSession(port, strings.NewReader(""), io.Discard)
	err = (&Relay{}).Handle(context.Background(), sess)

	var cerr *stream.ConnectionError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *stream.ConnectionError", err)
	}
}

// TestExec_Cat verifies a child process is wired to the connection in
// both directions.
func TestExec_Cat(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	got := make(chan string, 1)
	port := serve(t, func(conn net.Conn) {
		conn.Write([]byte("ping\n")) //nolint:errcheck
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- line
	})

	sess := newSession(port, strings.NewReader(""), io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := (&Exec{Command: "cat"}).Handle(ctx, sess); err != nil {
		t.Fatalf("Exec.Handle: %v", err)
	}
	select {
	case line := <-got:
		if line != "ping\n" {
			t.Errorf("server read %q, want %q", line, "ping\n")
		}
	case <-time.After(time.Second):
		t.Fatal("server read nothing")
	}
}

// TestExec_ChildExitCloses verifies the connection is closed when the
// child exits on its own.
func TestExec_ChildExitCloses(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	got := make(chan string, 1)
	port := serve(t, func(conn net.Conn) {
		b, _ := io.ReadAll(conn)
		got <- string(b)
	})

	sess := newSession(port, strings.NewReader(""), io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := (&Exec{Command: "echo banner"}).Handle(ctx, sess); err != nil {
		t.Fatalf("Exec.Handle: %v", err)
	}
	select {
	case s := <-got:
		if s != "banner\n" {
			t.Errorf("server read %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw EOF")
	}
}

func TestExec_NoCommand(t *testing.T) {
	sess := newSession(1, strings.NewReader(""), io.Discard)
	if err := (&Exec{}).Handle(context.Background(), sess); err == nil {
		t.Fatal("expected error")
	}
}
