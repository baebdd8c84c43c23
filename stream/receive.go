package stream

import (
	"errors"
	"io"
	"time"

	ncerr "tcpstream/internal/errors"
)

// receive is the receive loop.  It reads up to chunkSize bytes at a
// time and accumulates them.  The accumulator is delivered when a read
// returns less than a full chunk (the socket was drained) or when no
// further bytes arrive within idleGap.  With nothing pending it blocks
// in Read without a deadline, so an idle connection costs nothing.
func (c *Conn) receive() {
	defer close(c.loopDone)

	buf := make([]byte, c.opts.chunkSize)
	var acc []byte

	for {
		if c.stopRequested() {
			return
		}

		var deadline time.Time
		if len(acc) > 0 {
			deadline = time.Now().Add(c.opts.idleGap)
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			c.terminate(acc, err)
			return
		}
		// Disconnect may have set its wake-up deadline just before we
		// replaced it.
		if c.stopRequested() {
			return
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.opts.metrics.BytesReceived(int64(n))
			acc = append(acc, buf[:n]...)
			if err == nil && n < len(buf) {
				c.deliver(acc)
				acc = acc[:0]
			}
		}
		if err == nil {
			continue
		}

		if ncerr.IsTimeout(err) {
			if c.stopRequested() {
				return
			}
			if len(acc) > 0 {
				c.deliver(acc)
				acc = acc[:0]
			}
			continue
		}

		c.terminate(acc, err)
		return
	}
}

// stopRequested reports whether teardown has begun and, if so, moves
// the loop to LoopStopping.
func (c *Conn) stopRequested() bool {
	if c.ctx.Err() == nil {
		return false
	}
	c.loop.CompareAndSwap(int32(LoopRunning), int32(LoopStopping))
	return true
}

// terminate handles a read error.  Bytes read before the error are
// still delivered unless the caller is disconnecting.
func (c *Conn) terminate(pending []byte, err error) {
	if c.stopRequested() {
		return
	}
	if len(pending) > 0 {
		c.deliver(pending)
	}

	reason := error(ErrPeerClosed)
	if !errors.Is(err, io.EOF) {
		reason = ncerr.IO("read", c.addr, err)
	}
	c.fail(reason)
}

// deliver decodes p and emits it to data subscribers.  Once teardown
// has begun no further subscriber is called, even mid-emission.
func (c *Conn) deliver(p []byte) {
	payload := c.opts.encoding.Decode(p)
	c.log.Debug("received %d bytes", len(p))
	if c.ctx.Err() != nil {
		return
	}
	c.opts.metrics.Delivered()
	c.dispatch(func() {
		c.data.emitUntil(payload, func() bool { return c.ctx.Err() != nil })
	})
}
