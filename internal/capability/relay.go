package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"tcpstream/internal/session"
	"tcpstream/util"
)

// Relay copies data between the connection and the session's
// stdin/stdout; the default interactive / pipe mode.
type Relay struct {
	// Linger is how long to keep receiving after stdin reaches EOF
	// before disconnecting.  Zero waits for the remote end to close.
	Linger time.Duration
}

// Handle writes every data notification to stdout and pumps stdin into
// the connection until the remote end closes, the linger after stdin
// EOF expires, or the context is cancelled.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	var mu sync.Mutex
	var writeErr error
	unsubscribe := sess.Conn.OnData(func(payload string) {
		mu.Lock()
		defer mu.Unlock()
		if writeErr != nil {
			return
		}
		if _, err := io.WriteString(sess.Stdout, payload); err != nil {
			writeErr = err
			sess.Logger.Warn("relay: stdout: %v", err)
		}
	})
	defer unsubscribe()

	if err := sess.Connect(ctx); err != nil {
		return err
	}

	pumped := make(chan error, 1)
	go func() {
		n, err := util.Pump(ctx, sess.Stdin, sess.Conn)
		sess.Logger.Debug("relay: stdin closed after %d bytes", n)
		pumped <- err
	}()

	select {
	case <-sess.Done():
		return sess.Result()
	case <-ctx.Done():
		sess.Conn.Disconnect()
		return nil
	case err := <-pumped:
		if err != nil && !errors.Is(err, context.Canceled) {
			select {
			case <-sess.Done():
				// The send failed because the connection ended.
				return sess.Result()
			default:
			}
			sess.Conn.Disconnect()
			return fmt.Errorf("relay: %w", err)
		}
	}

	return r.linger(ctx, sess)
}

// linger waits after stdin EOF for the remote end to finish.
func (r *Relay) linger(ctx context.Context, sess *session.Session) error {
	if r.Linger <= 0 {
		return sess.Wait(ctx)
	}

	timer := time.NewTimer(r.Linger)
	defer timer.Stop()

	select {
	case <-sess.Done():
		return sess.Result()
	case <-timer.C:
		sess.Logger.Verbose("relay: quitting %s after stdin EOF", r.Linger)
		sess.Conn.Disconnect()
		return nil
	case <-ctx.Done():
		sess.Conn.Disconnect()
		return nil
	}
}
