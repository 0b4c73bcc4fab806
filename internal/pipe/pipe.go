// Package pipe forwards a byte stream between a local file and a remote process.
package pipe

import (
	"context"
	"errors"
	"io"
)

// ChunkSize is the largest read forwarded in a single write.
const ChunkSize = 32 * 1024

// Error reports which end of a copy failed.
type Error struct {
	// Side is "read" or "write".
	Side string
	Err  error
}

func (e *Error) Error() string {
	return e.Side + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsReadError reports whether err came from the source side of a Copy.
func IsReadError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Side == "read"
}

// Copy forwards src to dst one chunk at a time until src reports io.EOF,
// either side fails, or ctx is done. Each chunk is fully written before the
// next read, so a slow consumer throttles the producer.
//
// Copy never closes either end; the caller owns both and must release them
// on every return path.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, &Error{Side: "write", Err: werr}
			}
			if w != n {
				return written, &Error{Side: "write", Err: io.ErrShortWrite}
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, &Error{Side: "read", Err: rerr}
		}
	}
}
