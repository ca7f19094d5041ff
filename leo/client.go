package leo

import (
	"bufio"
	"context"
	"io"

	"github.com/Iam54r1n4/protohs/internal/netio"
)

// ClientBuilder configures and runs an HTTP CONNECT client handshake.
type ClientBuilder struct {
	host, port string
	proxyAuth  string
}

// NewClientBuilder creates a ClientBuilder for the given CONNECT target.
func NewClientBuilder(host string, port int) *ClientBuilder {
	return &ClientBuilder{host: host, port: formatPort(port)}
}

// WithAuth sets Basic credentials sent in Proxy-Authorization.
func (b *ClientBuilder) WithAuth(username, password string) *ClientBuilder {
	b.proxyAuth = encodeBasicAuth(username, password)
	return b
}

// Handshake writes a CONNECT request for the configured target and waits
// for the response. On a 2xx status it returns a stream that preserves any
// bytes the server pipelined immediately after the head, positioned at the
// first payload byte.
func (b *ClientBuilder) Handshake(ctx context.Context, io_ io.ReadWriteCloser) (io.ReadWriteCloser, error) {
	if b.host == "" || b.port == "" {
		return nil, errNoHostPort
	}
	port, err := parsePort(b.port)
	if err != nil {
		return nil, errNoHostPort
	}
	req := encodeRequest(b.host, port, b.proxyAuth)

	for len(req) > 0 {
		n, err := netio.WriteWithContext(ctx, io_, req)
		if err != nil {
			return nil, err
		}
		req = req[n:]
	}

	r := bufio.NewReader(contextReader{ctx: ctx, r: io_})
	resp, err := parseResponseHead(r)
	if err != nil {
		return nil, err
	}
	if resp.code == 0 {
		return nil, errNoStatus
	}
	if resp.code < 200 || resp.code >= 300 {
		return nil, &StatusError{Code: resp.code, Reason: reasonOrDefault(resp)}
	}

	return newBufferedConn(io_, r), nil
}

func reasonOrDefault(h head) string {
	if h.reason != "" {
		return h.reason
	}
	return reasonPhrase(h.code)
}
