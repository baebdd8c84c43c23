package stream

import (
	"time"

	"tcpstream/internal/metrics"
	"tcpstream/internal/transport"
	"tcpstream/util"
)

// Defaults applied by New.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultChunkSize      = 512
	DefaultIdleGap        = 2 * time.Millisecond
	DefaultStopTimeout    = 2 * time.Second
)

type options struct {
	connectTimeout time.Duration
	dialer         transport.Dialer
	encoding       Encoding
	chunkSize      int
	idleGap        time.Duration
	stopTimeout    time.Duration
	logger         *util.Logger
	metrics        *metrics.Collector

	onConnected    []func()
	onData         []func(string)
	onDisconnected []func(error)
}

func defaultOptions() options {
	return options{
		connectTimeout: DefaultConnectTimeout,
		encoding:       DefaultEncoding,
		chunkSize:      DefaultChunkSize,
		idleGap:        DefaultIdleGap,
		stopTimeout:    DefaultStopTimeout,
	}
}

// Option configures a Conn.
type Option func(*options)

// WithConnectTimeout bounds the dial, including name resolution.
// Zero leaves the dial bounded only by the Connect context.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithDialer replaces the plain TCP dialer, e.g. with an SSH-tunnelled
// one.  The Conn never closes the dialer.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithEncoding sets the text encoding used by SendString and by data
// notifications.
func WithEncoding(e Encoding) Option {
	return func(o *options) { o.encoding = e }
}

// WithChunkSize sets the maximum number of bytes taken per read.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithIdleGap sets how long the receive loop waits for more bytes,
// once some are pending, before it delivers them.
func WithIdleGap(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleGap = d
		}
	}
}

// WithStopTimeout bounds how long Disconnect waits for the receive
// loop to exit before it closes the socket anyway.
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}

// WithLogger attaches a logger.  A nil logger is silent.
func WithLogger(l *util.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches a metrics collector.  Several Conns may share one.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithOnConnected subscribes fn before the Conn exists, so it cannot
// miss the event.
func WithOnConnected(fn func()) Option {
	return func(o *options) { o.onConnected = append(o.onConnected, fn) }
}

// WithOnData subscribes fn to data notifications.
func WithOnData(fn func(payload string)) Option {
	return func(o *options) { o.onData = append(o.onData, fn) }
}

// WithOnDisconnected subscribes fn to the disconnect notification.
func WithOnDisconnected(fn func(reason error)) Option {
	return func(o *options) { o.onDisconnected = append(o.onDisconnected, fn) }
}
