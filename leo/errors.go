// Package leo implements the HTTP CONNECT proxy handshake: a raw HTTP/1.1
// head parser, and the client/server drivers that negotiate a tunnel before
// handing the stream back to the caller.
package leo

import "errors"

var (
	errHeadTooLarge  = errors.New("HTTP head exceeds the maximum size")
	errMalformedHead = errors.New("malformed HTTP head")
	errNoHostPort    = errors.New("host and port are required")
	errNoHost        = errors.New("CONNECT request carried no Host")
	errNoStatus      = errors.New("response carried no status code")
)

// StatusError is returned when a CONNECT attempt completes with a non-2xx
// status, on either side of the handshake.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string { return "HTTP CONNECT: " + e.Reason }
