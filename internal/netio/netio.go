// Package netio provides context-cancelable wrappers around blocking
// io.Reader/io.Writer calls, for code that needs to honor a caller's
// context.Context around a net.Conn that has no native cancellation.
package netio

import (
	"context"
	"io"
)

type result struct {
	n   int
	err error
}

// ReadWithContext reads into buf, returning early with ctx.Err() if ctx is
// done before the read completes. The underlying read is not aborted; it
// keeps running in its own goroutine and its result is discarded.
func ReadWithContext(ctx context.Context, r io.Reader, buf []byte) (int, error) {
	ch := make(chan result, 1)
	go func() {
		n, err := r.Read(buf)
		ch <- result{n, err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case v := <-ch:
		return v.n, v.err
	}
}

// WriteWithContext writes buf, returning early with ctx.Err() if ctx is done
// before the write completes. The underlying write is not aborted; it keeps
// running in its own goroutine and its result is discarded.
func WriteWithContext(ctx context.Context, w io.Writer, buf []byte) (int, error) {
	ch := make(chan result, 1)
	go func() {
		n, err := w.Write(buf)
		ch <- result{n, err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case v := <-ch:
		return v.n, v.err
	}
}
