package stream

import ncerr "tcpstream/internal/errors"

// Error types returned by this package.  They are aliases so callers
// can use errors.As without importing an internal package.
type (
	ConnectionError = ncerr.ConnectionError
	IOError         = ncerr.IOError
	ErrorKind       = ncerr.Kind
)

// Connection failure kinds reported in ConnectionError.Kind.
const (
	KindDial     = ncerr.KindDial
	KindDNS      = ncerr.KindDNS
	KindRefused  = ncerr.KindRefused
	KindTimeout  = ncerr.KindTimeout
	KindCanceled = ncerr.KindCanceled
)

var (
	// ErrNotConnected is wrapped by Send when the Conn is not connected.
	ErrNotConnected = ncerr.ErrNotConnected

	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = ncerr.ErrAlreadyConnected

	// ErrPeerClosed is the disconnect reason when the remote end
	// closed the stream.
	ErrPeerClosed = ncerr.ErrPeerClosed
)
