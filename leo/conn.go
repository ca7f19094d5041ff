package leo

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"github.com/Iam54r1n4/protohs/internal/netio"
)

// contextReader adapts an io.Reader to honor ctx cancellation, for feeding
// into a bufio.Reader that the head parsers read through.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	return netio.ReadWithContext(c.ctx, c.r, p)
}

// bufferedConn preserves bytes buffered by the internal head parser so they
// are not lost to the caller once the handshake completes.
type bufferedConn struct {
	io.ReadWriteCloser
	r *bufio.Reader
}

func newBufferedConn(rw io.ReadWriteCloser, r *bufio.Reader) *bufferedConn {
	return &bufferedConn{ReadWriteCloser: rw, r: r}
}

func (b *bufferedConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func formatPort(port int) string {
	return strconv.Itoa(port)
}

func parsePort(s string) (int, error) {
	return strconv.Atoi(s)
}
