package libra

import (
	"context"
	"io"
)

// ClientBuilder configures and runs a SOCKS5 client handshake. Build the
// destination and, optionally, credentials, then call Handshake on an
// already-connected stream.
type ClientBuilder struct {
	username, password string
	authEnabled         bool
	dst                 Destination
}

// NewClientBuilder creates a ClientBuilder for the given destination.
func NewClientBuilder(dst Destination) *ClientBuilder {
	return &ClientBuilder{dst: dst}
}

// WithAuth enables RFC 1929 username/password authentication.
func (b *ClientBuilder) WithAuth(username, password string) *ClientBuilder {
	b.username, b.password = username, password
	b.authEnabled = true
	return b
}

// Handshake runs the client side of the SOCKS5 negotiation over io: method
// negotiation, optional username/password sub-negotiation, and the CONNECT
// request. On success it returns io unchanged, positioned at the first
// payload byte.
func (b *ClientBuilder) Handshake(ctx context.Context, io_ io.ReadWriteCloser) (io.ReadWriteCloser, error) {
	methods := []byte{NoAuth}
	if b.authEnabled {
		methods = []byte{NoAuth, UserPass}
	}

	frame := newFrameIO(io_, StageSelection)

	reply, err := frame.sendWait(ctx, Methods{Methods: methods}, StageSelection)
	if err != nil {
		return nil, err
	}
	selection, ok := reply.(Selection)
	if !ok {
		return nil, errUnexpectedFrame
	}
	if !containsByte(methods, selection.Method) {
		return nil, errUnknownMethod
	}

	if selection.Method == UserPass {
		if !b.authEnabled {
			return nil, errUnauthorized
		}
		statusFrame, err := frame.sendWait(ctx, UsernamePassword{Username: b.username, Password: b.password}, StageStatus)
		if err != nil {
			return nil, err
		}
		status, ok := statusFrame.(Status)
		if !ok {
			return nil, errUnexpectedFrame
		}
		if status.Code != AuthSucceed {
			return nil, errUnauthorized
		}
	}

	replyFrame, err := frame.sendWait(ctx, Command{Cmd: CmdConnect, Dst: b.dst}, StageReply)
	if err != nil {
		return nil, err
	}
	rep, ok := replyFrame.(Reply)
	if !ok {
		return nil, errUnexpectedFrame
	}
	if rep.Rep != RepSucceeded {
		return nil, repError(rep.Rep)
	}

	return io_, nil
}

func containsByte(s []byte, b byte) bool {
	for _, v := range s {
		if v == b {
			return true
		}
	}
	return false
}
