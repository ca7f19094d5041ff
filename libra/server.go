package libra

import (
	"context"
	"errors"
	"io"
	"net"
)

// UpstreamConn is the connection a Connect implementation hands back: any
// net.Conn. LocalAddr/RemoteAddr on it supply the bound-address fields the
// server writes back in its Reply.
type UpstreamConn = net.Conn

// Connect dials the destination a client asked to CONNECT to. It is the
// server's only collaborator: everything else (upstream choice, DNS, dial
// timeouts) lives in the implementation the caller supplies.
type Connect interface {
	Dial(ctx context.Context, dst Destination) (UpstreamConn, error)
}

// ServerBuilder configures and runs a SOCKS5 server handshake against a
// Connect implementation.
type ServerBuilder struct {
	username, password string
	authEnabled         bool
	connect             Connect
	bindAddr            net.Addr
}

// NewServerBuilder creates a ServerBuilder that dials upstream connections
// through connect.
func NewServerBuilder(connect Connect) *ServerBuilder {
	return &ServerBuilder{connect: connect}
}

// WithAuth requires RFC 1929 username/password authentication, checked
// against the given credentials.
func (b *ServerBuilder) WithAuth(username, password string) *ServerBuilder {
	b.username, b.password = username, password
	b.authEnabled = true
	return b
}

// WithBindAddr overrides BND.ADDR/BND.PORT in the success reply with addr
// instead of the incoming stream's local address. It has no effect on
// where the server actually listens or binds.
func (b *ServerBuilder) WithBindAddr(addr net.Addr) *ServerBuilder {
	b.bindAddr = addr
	return b
}

// Handshake runs the server side of the SOCKS5 negotiation over io: method
// selection, optional username/password verification, and the CONNECT
// command. On success it returns io (positioned at the first payload byte)
// and the dialed upstream connection. The no-acceptable-method,
// failed-authentication, unsupported-command, unsupported-address-type and
// failed-dial branches each write their SOCKS5 reply before returning the
// error; a read error, a malformed frame (wrong version byte, invalid UTF-8)
// or an unexpected frame type returns without writing a reply.
func (b *ServerBuilder) Handshake(ctx context.Context, io_ net.Conn) (io.ReadWriteCloser, UpstreamConn, error) {
	frame := newFrameIO(io_, StageMethods)

	methodsFrame, err := frame.recv(ctx)
	if err != nil {
		return nil, nil, err
	}
	methods, ok := methodsFrame.(Methods)
	if !ok {
		return nil, nil, errUnexpectedFrame
	}

	if b.authEnabled {
		if !containsByte(methods.Methods, UserPass) {
			if err := frame.send(ctx, Selection{Method: NoAcceptable}); err != nil {
				return nil, nil, err
			}
			return nil, nil, errNoAcceptableMethod
		}
		if err := frame.send(ctx, Selection{Method: UserPass}); err != nil {
			return nil, nil, err
		}
		frame.dec.SetStage(StageUsernamePassword)
		credsFrame, err := frame.recv(ctx)
		if err != nil {
			return nil, nil, err
		}
		creds, ok := credsFrame.(UsernamePassword)
		if !ok {
			return nil, nil, errUnexpectedFrame
		}
		if creds.Username != b.username || creds.Password != b.password {
			if err := frame.send(ctx, Status{Code: AuthFailed}); err != nil {
				return nil, nil, err
			}
			return nil, nil, errUnauthorized
		}
		if err := frame.send(ctx, Status{Code: AuthSucceed}); err != nil {
			return nil, nil, err
		}
	} else {
		if !containsByte(methods.Methods, NoAuth) {
			if err := frame.send(ctx, Selection{Method: NoAcceptable}); err != nil {
				return nil, nil, err
			}
			return nil, nil, errNoAcceptableMethod
		}
		if err := frame.send(ctx, Selection{Method: NoAuth}); err != nil {
			return nil, nil, err
		}
	}

	frame.dec.SetStage(StageCommand)
	cmdFrame, err := frame.recv(ctx)
	if err != nil {
		if errors.Is(err, errAddressTypeNotSupported) {
			if werr := b.writeFailureReply(ctx, frame, RepAtypNotSupported); werr != nil {
				return nil, nil, werr
			}
		}
		return nil, nil, err
	}
	cmd, ok := cmdFrame.(Command)
	if !ok {
		return nil, nil, errUnexpectedFrame
	}

	if cmd.Cmd != CmdConnect {
		if err := b.writeFailureReply(ctx, frame, RepCmdNotSupported); err != nil {
			return nil, nil, err
		}
		return nil, nil, errCommandUnsupported
	}

	upstream, dialErr := b.connect.Dial(ctx, cmd.Dst)
	if dialErr != nil {
		if err := b.writeFailureReply(ctx, frame, RepHostUnreachable); err != nil {
			return nil, nil, err
		}
		return nil, nil, dialErr
	}

	boundAddr := b.bindAddr
	if boundAddr == nil {
		boundAddr = io_.LocalAddr()
	}
	bound, err := boundDestination(boundAddr)
	if err != nil {
		upstream.Close()
		if err := b.writeFailureReply(ctx, frame, RepGeneralFailure); err != nil {
			return nil, nil, err
		}
		return nil, nil, err
	}

	if err := frame.send(ctx, Reply{Rep: RepSucceeded, Dst: bound}); err != nil {
		upstream.Close()
		return nil, nil, err
	}

	return io_, upstream, nil
}

func (b *ServerBuilder) writeFailureReply(ctx context.Context, frame *frameIO, rep byte) error {
	zero, _ := NewDestinationFromBytes(AtypIPv4, []byte{0, 0, 0, 0}, 0)
	return frame.send(ctx, Reply{Rep: rep, Dst: zero})
}

func boundDestination(addr net.Addr) (Destination, error) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return NewDestinationFromBytes(AtypIPv4, []byte{0, 0, 0, 0}, 0)
	}
	return NewDestinationFromAddr(tcpAddr.IP, uint16(tcpAddr.Port))
}
