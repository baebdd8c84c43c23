package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"tcpstream/internal/capability"
	"tcpstream/internal/metrics"
	"tcpstream/internal/transport"
	"tcpstream/stream"
	"tcpstream/util"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// countingDialer records Close calls.
type countingDialer struct {
	transport.TCPDialer
	closed int
}

func (d *countingDialer) Close() error {
	d.closed++
	return nil
}

// TestConnectMode_TCP verifies end-to-end connect mode with Relay.
func TestConnectMode_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Server: accept one conn, send greeting, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	}()

	output := &syncBuffer{}
	m := metrics.New()
	dialer := &countingDialer{}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	mode := &ConnectMode{
		Dialer:     dialer,
		Capability: &capability.Relay{},
		Host:       "127.0.0.1",
		Port:       ln.Addr().(*net.TCPAddr).Port,
		Logger:     util.NewLogger(0),
		Options:    []stream.Option{stream.WithMetrics(m)},
		Stdin:      bytes.NewBufferString(""),
		Stdout:     output,
	}

	if err := mode.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := output.String(); got != "hello from server\n" {
		t.Errorf("output = %q, want %q", got, "hello from server\n")
	}
	if dialer.closed != 1 {
		t.Errorf("dialer closed %d times, want 1", dialer.closed)
	}
	if m.TotalConnections() != 1 || m.TotalBytesIn() != int64(len("hello from server\n")) {
		t.Errorf("metrics = %s", m.JSON())
	}
}

// TestConnectMode_SendData verifies data flows from client to server.
func TestConnectMode_SendData(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var buf bytes.Buffer
		io.Copy(&buf, conn) //nolint:errcheck
		received <- buf.String()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	mode := &ConnectMode{
		Dialer:     &transport.TCPDialer{Timeout: 2 * time.Second},
		Capability: &capability.Relay{Linger: 100 * time.Millisecond},
		Host:       "127.0.0.1",
		Port:       ln.Addr().(*net.TCPAddr).Port,
		Logger:     util.NewLogger(0),
		Stdin:      bytes.NewBufferString("payload from client"),
		Stdout:     io.Discard,
	}

	if err := mode.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case got := <-received:
		if got != "payload from client" {
			t.Errorf("server got %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for data")
	}
}

// TestConnectMode_Refused verifies a dial failure surfaces as a
// ConnectionError.
func TestConnectMode_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	mode := &ConnectMode{
		Dialer:     &transport.TCPDialer{},
		Capability: &capability.Relay{},
		Host:       "127.0.0.1",
		Port:       port,
		Logger:     util.NewLogger(0),
		Stdin:      bytes.NewBufferString(""),
		Stdout:     io.Discard,
	}

	err = mode.Run(context.Background())
	var cerr *stream.ConnectionError
	if !errors.As(err, &cerr) || cerr.Kind != stream.KindRefused {
		t.Fatalf("err = %v, want refused ConnectionError", err)
	}
}
