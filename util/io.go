package util

import (
	"context"
	"errors"
	"io"
)

// DefaultBufSize is the standard buffer size for local input (32 KiB).
const DefaultBufSize = 32 * 1024

// Pump reads r in DefaultBufSize pieces and hands each piece to w until
// r reaches EOF, a write fails, or ctx is cancelled.  Every Read result
// becomes exactly one Write, so interactive input keeps its line
// boundaries on the wire.  EOF is not an error.
//
// Pump only observes ctx between reads; a reader blocked on a terminal
// stays blocked until it returns.
func Pump(ctx context.Context, r io.Reader, w io.Writer) (int64, error) {
	bufp := GetBuf()
	defer PutBuf(bufp)
	buf := *bufp

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, rerr
		}
	}
}
