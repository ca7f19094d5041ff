package leo

import (
	"bufio"
	"context"
	"io"

	"github.com/Iam54r1n4/protohs/internal/netio"
)

// ServerBuilder configures and runs an HTTP CONNECT server handshake.
type ServerBuilder struct {
	proxyAuth string
}

// NewServerBuilder creates a ServerBuilder with no authentication required.
func NewServerBuilder() *ServerBuilder {
	return &ServerBuilder{}
}

// WithAuth requires the given Basic credentials in Proxy-Authorization,
// matching the shape of libra.ServerBuilder.WithAuth.
func (b *ServerBuilder) WithAuth(username, password string) *ServerBuilder {
	b.proxyAuth = encodeBasicAuth(username, password)
	return b
}

// Handshake reads a CONNECT request, applies the status policy (405 for a
// non-CONNECT method, 505 for a non-1.1 version, 407/401 for missing or
// mismatched Proxy-Authorization, 200 otherwise), writes the corresponding
// response, and on success returns the stream (preserving any pipelined
// bytes) plus the requested target.
func (b *ServerBuilder) Handshake(ctx context.Context, io_ io.ReadWriteCloser) (io.ReadWriteCloser, string, error) {
	r := bufio.NewReader(contextReader{ctx: ctx, r: io_})
	req, err := parseRequestHead(r)
	if err != nil {
		return nil, "", err
	}

	status := b.policyStatus(req)
	if err := writeResponse(ctx, io_, status); err != nil {
		return nil, "", err
	}
	if status != StatusOK {
		return nil, "", &StatusError{Code: status, Reason: reasonPhrase(status)}
	}

	host, ok := req.header("host")
	if !ok || host == "" {
		return nil, "", errNoHost
	}

	return newBufferedConn(io_, r), host, nil
}

func (b *ServerBuilder) policyStatus(req head) int {
	if req.method != "CONNECT" {
		return StatusMethodNotAllowed
	}
	if req.version != httpVersion {
		return StatusHTTPVersionNotSupported
	}
	if b.proxyAuth != "" {
		got, ok := req.header("proxy-authorization")
		if !ok {
			return StatusProxyAuthRequired
		}
		if got != b.proxyAuth {
			return StatusUnauthorized
		}
	}
	return StatusOK
}

func writeResponse(ctx context.Context, w io.Writer, status int) error {
	out := encodeResponse(status)
	for len(out) > 0 {
		n, err := netio.WriteWithContext(ctx, w, out)
		if err != nil {
			return err
		}
		out = out[n:]
	}
	return nil
}
