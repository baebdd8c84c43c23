// Package stream implements a persistent point-to-point TCP connection
// with a synchronous send path and an asynchronous receive loop.
//
// A Conn emits three notifications:
//
//	connected     once, on the goroutine that called Connect, before
//	              Connect returns and before any data
//	data arrived  from the receive loop goroutine, in read order, each
//	              carrying the bytes accumulated since the previous one
//	disconnected  exactly once, with a nil reason for Disconnect and a
//	              non-nil reason when the peer or the transport ended it
//
// No framing is applied: the receive loop delivers whatever it has
// accumulated when the socket goes idle.  A message written in several
// bursts may arrive as several notifications, and back-to-back
// messages may arrive as one.  Higher-level protocols must do their
// own parsing.
//
// A Conn is single-use.  Once disconnected it cannot reconnect; build a
// new one instead.  There is no retry anywhere in this package.
package stream

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"

	ncerr "tcpstream/internal/errors"
	"tcpstream/internal/transport"
	"tcpstream/util"
)

// Conn is one TCP session.  Send may be called from any goroutine but
// concurrent Sends must be serialised by the caller; everything else
// is safe for concurrent use.
type Conn struct {
	host string
	port int
	addr string
	opts options
	log  *util.Logger

	// mu orders the Connecting→Connected transition in Connect against
	// the closing check in Disconnect, and guards conn and reason.
	mu     sync.Mutex
	conn   net.Conn
	reason error

	state      atomic.Int32 // State
	loop       atomic.Int32 // LoopState
	started    atomic.Bool  // Connect was called
	closing    atomic.Bool  // teardown claimed by Disconnect or the loop; set under mu
	dispatcher atomic.Int64 // goroutine running connected or data callbacks, 0 when none

	ctx      context.Context // cancelled when teardown begins
	cancel   context.CancelFunc
	loopDone chan struct{} // closed when the receive loop returns
	done     chan struct{} // closed when the Conn is finished
	doneOnce sync.Once

	connected    subscribers[struct{}]
	data         subscribers[string]
	disconnected subscribers[error]
}

// New builds an unconnected Conn to host:port.  Subscribe, then call
// Connect.
func New(host string, port int, opts ...Option) *Conn {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialer == nil {
		o.dialer = &transport.TCPDialer{}
	}

	addr := util.FormatAddr(host, port)
	c := &Conn{
		host:     host,
		port:     port,
		addr:     addr,
		opts:     o,
		log:      o.logger.Named("stream").Named(addr),
		loopDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	for _, fn := range o.onConnected {
		c.OnConnected(fn)
	}
	for _, fn := range o.onData {
		c.OnData(fn)
	}
	for _, fn := range o.onDisconnected {
		c.OnDisconnected(fn)
	}
	return c
}

// Open builds a Conn and connects it.  Subscribers that must see the
// connected notification or the first data have to be passed as
// options.
func Open(ctx context.Context, host string, port int, opts ...Option) (*Conn, error) {
	c := New(host, port, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect dials the remote end, emits the connected notification and
// starts the receive loop.  It fails with *ConnectionError when the
// name does not resolve, the connection is refused, or the connect
// timeout or ctx expires; in that case nothing is left running and no
// notification is ever emitted.  A Conn can only be connected once.
func (c *Conn) Connect(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("connect %s: %w", c.addr, ErrAlreadyConnected)
	}

	nc, err := c.dial(ctx)

	c.mu.Lock()
	if c.closing.Load() {
		// Disconnect won the race; whatever the dial did, report it
		// as cancelled.
		if err == nil {
			nc.Close()
		}
		err = context.Canceled
	}
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.mu.Unlock()
		c.finish()

		cerr := ncerr.Connect(c.host, c.port, err)
		c.opts.metrics.ConnectFailed(cerr.Error())
		c.log.Verbose("connect failed: %v", err)
		return cerr
	}
	c.conn = nc
	c.state.Store(int32(StateConnected))
	c.loop.Store(int32(LoopRunning))
	c.mu.Unlock()

	c.opts.metrics.ConnectionOpened()
	c.log.Verbose("connected (local %s)", nc.LocalAddr())

	c.dispatch(func() { c.connected.emit(struct{}{}) })

	go c.receive()
	return nil
}

// dial opens the transport, bounded by the connect timeout and by a
// Disconnect that arrives while the dial is in flight.
func (c *Conn) dial(ctx context.Context) (net.Conn, error) {
	var cancel context.CancelFunc
	if c.opts.connectTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.opts.connectTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	c.log.Debug("dialing")
	return c.opts.dialer.Dial(ctx, "tcp", c.addr)
}

// Send writes p to the socket and returns once the transport accepted
// it.  It fails with *IOError wrapping ErrNotConnected when the Conn is
// not connected, or wrapping the transport error when the write fails.
func (c *Conn) Send(p []byte) error {
	if c.State() != StateConnected {
		return ncerr.IO("send", c.addr, ErrNotConnected)
	}
	n, err := c.conn.Write(p)
	c.opts.metrics.BytesSent(int64(n))
	if err != nil {
		return ncerr.IO("send", c.addr, err)
	}
	return nil
}

// SendString encodes s with the Conn's encoding and sends it.
func (c *Conn) SendString(s string) error {
	return c.SendEncoded(s, c.opts.encoding)
}

// SendEncoded encodes s with enc and sends it.  A rune enc cannot
// represent fails with *IOError{Op: "encode"} and nothing is sent.
func (c *Conn) SendEncoded(s string, enc Encoding) error {
	p, err := enc.Encode(s)
	if err != nil {
		return ncerr.IO("encode", c.addr, fmt.Errorf("%s: %w", enc, err))
	}
	return c.Send(p)
}

// Write implements io.Writer on top of Send.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Disconnect stops the receive loop, closes the socket and emits the
// disconnected notification.  Only the first call does anything.  It
// waits, up to the stop timeout, for the loop to exit before closing
// the socket, except when called from inside a connected or data
// callback, which the loop cannot finish until the callback returns.
func (c *Conn) Disconnect() {
	wasConnected, ok := c.claimTeardown()
	if !ok {
		return
	}
	c.cancel()

	if !wasConnected {
		// Never connected, or a dial is still in flight and will now
		// fail with KindCanceled.
		c.finish()
		return
	}

	c.loop.CompareAndSwap(int32(LoopRunning), int32(LoopStopping))

	// Wake a Read blocked without a deadline.  The loop re-checks ctx
	// after arming its own deadline, so this cannot be lost.
	c.conn.SetReadDeadline(time.Now()) //nolint:errcheck

	if !c.inCallback() {
		select {
		case <-c.loopDone:
		case <-time.After(c.opts.stopTimeout):
			c.log.Warn("receive loop did not stop within %s; closing anyway", c.opts.stopTimeout)
		}
	}
	c.release(nil)
}

// claimTeardown makes the caller the only one to tear the Conn down.
// The state turns Disconnected before it returns, so Send fails and a
// losing Disconnect never sees the Conn as connected.
func (c *Conn) claimTeardown() (wasConnected, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closing.CompareAndSwap(false, true) {
		return false, false
	}
	wasConnected = c.State() == StateConnected
	c.state.Store(int32(StateDisconnected))
	return wasConnected, true
}

// dispatch runs emit with the current goroutine recorded as the one
// delivering notifications.
func (c *Conn) dispatch(emit func()) {
	c.dispatcher.Store(goid.Get())
	defer c.dispatcher.Store(0)
	emit()
}

// inCallback reports whether the caller is running inside a connected
// or data callback.  Disconnect must not wait for the loop from there.
func (c *Conn) inCallback() bool {
	id := c.dispatcher.Load()
	return id != 0 && id == goid.Get()
}

// fail tears the Conn down from the receive loop after a read error or
// end of stream.  A teardown already claimed by Disconnect wins.
func (c *Conn) fail(reason error) {
	if _, ok := c.claimTeardown(); !ok {
		return
	}
	c.cancel()
	c.loop.Store(int32(LoopStopping))
	c.release(reason)
}

// release is the single teardown path: close the socket, record the
// reason and emit the disconnected notification.
func (c *Conn) release(reason error) {
	c.mu.Lock()
	c.state.Store(int32(StateDisconnected))
	c.reason = reason
	conn := c.conn
	c.mu.Unlock()

	if err := conn.Close(); err != nil && !ncerr.IsClosed(err) {
		c.log.Debug("close: %v", err)
	}
	c.loop.Store(int32(LoopStopped))

	c.opts.metrics.ConnectionClosed(reason != nil)
	if reason != nil {
		c.opts.metrics.RecordError(reason.Error())
		c.log.Verbose("connection lost: %v", reason)
	} else {
		c.log.Verbose("disconnected")
	}

	c.disconnected.emit(reason)
	c.finish()
}

func (c *Conn) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// ── Subscriptions ────────────────────────────────────────────────────

// OnConnected subscribes fn to the connected notification and returns
// a func that unsubscribes it.  The notification fires during Connect,
// so subscribing afterwards has no effect.
func (c *Conn) OnConnected(fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return c.connected.add(func(struct{}) { fn() })
}

// OnData subscribes fn to data notifications.  fn runs on the receive
// loop goroutine; while it runs no further bytes are read.
func (c *Conn) OnData(fn func(payload string)) (cancel func()) {
	return c.data.add(fn)
}

// OnDisconnected subscribes fn to the disconnected notification.  The
// reason is nil when Disconnect was called, ErrPeerClosed when the
// remote end closed the stream, and an *IOError for transport errors.
func (c *Conn) OnDisconnected(fn func(reason error)) (cancel func()) {
	return c.disconnected.add(fn)
}

// ── State ────────────────────────────────────────────────────────────

// IsConnected reports whether the Conn is in StateConnected.
func (c *Conn) IsConnected() bool { return c.State() == StateConnected }

// State returns the lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// LoopState returns the receive loop's state.
func (c *Conn) LoopState() LoopState { return LoopState(c.loop.Load()) }

// Done is closed once the Conn is finished: after the disconnected
// notification, or after a failed or abandoned Connect.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the disconnect reason once Done is closed.  It is nil
// for a caller-initiated Disconnect.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Host returns the target host as given to New.
func (c *Conn) Host() string { return c.host }

// Port returns the target port.
func (c *Conn) Port() int { return c.port }

// Addr returns the target as host:port.
func (c *Conn) Addr() string { return c.addr }

// Encoding returns the encoding used for text.
func (c *Conn) Encoding() Encoding { return c.opts.encoding }

// LocalAddr returns the local socket address, or nil before Connect
// succeeds.
func (c *Conn) LocalAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// RemoteAddr returns the peer's address, or nil before Connect
// succeeds.
func (c *Conn) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

// String implements fmt.Stringer.
func (c *Conn) String() string {
	return fmt.Sprintf("stream %s (%s)", c.addr, c.State())
}
