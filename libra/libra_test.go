package libra

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationConversions(t *testing.T) {
	dst, err := NewDestinationFromBytes(AtypIPv4, []byte{127, 0, 0, 1}, 8080)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", dst.String())

	dst, err = NewDestinationFromDomain("example.com", 443)
	require.NoError(t, err)
	assert.Equal(t, "example.com:443", dst.String())
	_, ok := dst.IP()
	assert.False(t, ok)

	dst, err = NewDestinationFromAddr(net.ParseIP("::1"), 53)
	require.NoError(t, err)
	assert.Equal(t, byte(AtypIPv6), dst.Atyp())

	_, err = NewDestinationFromBytes(AtypIPv4, []byte{1, 2, 3}, 80)
	assert.ErrorIs(t, err, errAddressLength)

	_, err = NewDestinationFromBytes(0x09, []byte{1}, 80)
	assert.ErrorIs(t, err, errAddressTypeNotSupported)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ipDst, err := NewDestinationFromBytes(AtypIPv4, []byte{10, 0, 0, 1}, 1080)
	require.NoError(t, err)
	domainDst, err := NewDestinationFromDomain("example.org", 443)
	require.NoError(t, err)

	cases := []struct {
		name  string
		stage Stage
		frame any
	}{
		{"methods", StageMethods, Methods{Methods: []byte{NoAuth, UserPass}}},
		{"selection", StageSelection, Selection{Method: UserPass}},
		{"userpass", StageUsernamePassword, UsernamePassword{Username: "alice", Password: "secret"}},
		{"status", StageStatus, Status{Code: AuthSucceed}},
		{"command-ipv4", StageCommand, Command{Cmd: CmdConnect, Dst: ipDst}},
		{"command-domain", StageCommand, Command{Cmd: CmdConnect, Dst: domainDst}},
		{"reply", StageReply, Reply{Rep: RepSucceeded, Dst: ipDst}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Encode(tc.frame)
			require.NoError(t, err)

			dec := NewDecoder(tc.stage)
			frame, n, err := dec.Decode(out)
			require.NoError(t, err)
			assert.Equal(t, len(out), n)
			assert.Equal(t, tc.frame, frame)
		})
	}
}

func TestDecodePartialInputSafety(t *testing.T) {
	full, err := Encode(Command{Cmd: CmdConnect, Dst: mustDomainDst(t, "example.com", 9000)})
	require.NoError(t, err)

	dec := NewDecoder(StageCommand)
	for i := 0; i < len(full); i++ {
		frame, n, err := dec.Decode(full[:i])
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Nil(t, frame)
	}

	frame, n, err := dec.Decode(full)
	require.NoError(t, err)
	assert.Equal(t, len(full), n)
	assert.NotNil(t, frame)
}

func TestEncodeRejectsAddressLengthMismatch(t *testing.T) {
	bad := Destination{atyp: AtypIPv4, addr: []byte{1, 2, 3}, port: 80}
	_, err := Encode(Command{Cmd: CmdConnect, Dst: bad})
	assert.ErrorIs(t, err, errAddressLength)
}

func mustDomainDst(t *testing.T, domain string, port uint16) Destination {
	t.Helper()
	dst, err := NewDestinationFromDomain(domain, port)
	require.NoError(t, err)
	return dst
}

// dialerConnect dials whatever address Dial is given, ignoring the
// Destination beyond its String() form; it exists only to exercise the
// server handshake's Connect callback end to end in tests.
type dialerConnect struct{}

func (dialerConnect) Dial(ctx context.Context, dst Destination) (UpstreamConn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", dst.String())
}

func TestHandshakeEndToEndNoAuth(t *testing.T) {
	echoLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer echoLn.Close()
	go func() {
		for {
			conn, err := echoLn.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						c.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	proxyLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer proxyLn.Close()
	go func() {
		for {
			conn, err := proxyLn.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				ctx := context.Background()
				_, upstream, err := NewServerBuilder(dialerConnect{}).Handshake(ctx, c)
				if err != nil {
					c.Close()
					return
				}
				go func() {
					buf := make([]byte, 4096)
					for {
						n, err := c.Read(buf)
						if n > 0 {
							upstream.Write(buf[:n])
						}
						if err != nil {
							return
						}
					}
				}()
				buf := make([]byte, 4096)
				for {
					n, err := upstream.Read(buf)
					if n > 0 {
						c.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	echoHost, echoPort := splitHostPort(t, echoLn.Addr().String())
	dst, err := NewDestinationFromDomain(echoHost, echoPort)
	require.NoError(t, err)

	conn, err := net.DialTimeout("tcp", proxyLn.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := NewClientBuilder(dst).Handshake(ctx, conn)
	require.NoError(t, err)

	_, err = stream.Write([]byte("hello world\r\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(stream).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello world\r\n", line)
}

func TestHandshakeEndToEndAuthFailure(t *testing.T) {
	proxyLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer proxyLn.Close()
	go func() {
		conn, err := proxyLn.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		NewServerBuilder(dialerConnect{}).WithAuth("user", "correct-password").Handshake(context.Background(), conn)
	}()

	conn, err := net.DialTimeout("tcp", proxyLn.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	dst, err := NewDestinationFromDomain("unused.invalid", 80)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = NewClientBuilder(dst).WithAuth("user", "wrong-password").Handshake(ctx, conn)
	assert.ErrorIs(t, err, errUnauthorized)
}

func TestHandshakeServerRejectsUnsupportedCommand(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, _, err := NewServerBuilder(dialerConnect{}).Handshake(context.Background(), server)
		done <- err
	}()

	writeFrame(t, client, Methods{Methods: []byte{NoAuth}})
	readFrame(t, client, StageSelection)

	bindDst, err := NewDestinationFromBytes(AtypIPv4, []byte{0, 0, 0, 0}, 0)
	require.NoError(t, err)
	writeFrame(t, client, Command{Cmd: CmdBind, Dst: bindDst})

	reply := readFrame(t, client, StageReply).(Reply)
	assert.Equal(t, byte(RepCmdNotSupported), reply.Rep)

	err = <-done
	assert.ErrorIs(t, err, errCommandUnsupported)
}

func TestHandshakeServerRejectsUnsupportedAddressType(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, _, err := NewServerBuilder(dialerConnect{}).Handshake(context.Background(), server)
		done <- err
	}()

	writeFrame(t, client, Methods{Methods: []byte{NoAuth}})
	readFrame(t, client, StageSelection)

	// VER CMD RSV ATYP=0x09 PORT — an address type no family recognizes.
	_, err := client.Write([]byte{SocksVersion, CmdConnect, 0x00, 0x09, 0x00, 0x00})
	require.NoError(t, err)

	reply := readFrame(t, client, StageReply).(Reply)
	assert.Equal(t, byte(RepAtypNotSupported), reply.Rep)

	err = <-done
	assert.ErrorIs(t, err, errAddressTypeNotSupported)
}

// pipeConnect hands back one end of a net.Pipe as the upstream connection,
// ignoring the requested Destination; it exists to exercise WithBindAddr
// without a real network dial.
type pipeConnect struct{ conn net.Conn }

func (c pipeConnect) Dial(ctx context.Context, dst Destination) (UpstreamConn, error) {
	return c.conn, nil
}

func TestHandshakeServerHonorsConfiguredBindAddr(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	upstreamLocal, upstreamRemote := net.Pipe()
	defer upstreamLocal.Close()
	defer upstreamRemote.Close()

	bindAddr := &net.TCPAddr{IP: net.ParseIP("203.0.113.1"), Port: 9999}

	done := make(chan error, 1)
	go func() {
		_, _, err := NewServerBuilder(pipeConnect{conn: upstreamRemote}).WithBindAddr(bindAddr).Handshake(context.Background(), server)
		done <- err
	}()

	writeFrame(t, client, Methods{Methods: []byte{NoAuth}})
	readFrame(t, client, StageSelection)

	dst, err := NewDestinationFromDomain("example.com", 80)
	require.NoError(t, err)
	writeFrame(t, client, Command{Cmd: CmdConnect, Dst: dst})

	reply := readFrame(t, client, StageReply).(Reply)
	assert.Equal(t, byte(RepSucceeded), reply.Rep)
	ip, ok := reply.Dst.IP()
	require.True(t, ok)
	assert.True(t, ip.Equal(bindAddr.IP))
	assert.Equal(t, uint16(bindAddr.Port), reply.Dst.Port())

	require.NoError(t, <-done)
}

func writeFrame(t *testing.T, w net.Conn, frame any) {
	t.Helper()
	out, err := Encode(frame)
	require.NoError(t, err)
	_, err = w.Write(out)
	require.NoError(t, err)
}

func readFrame(t *testing.T, r net.Conn, stage Stage) any {
	t.Helper()
	dec := NewDecoder(stage)
	buf := make([]byte, 0, MaxFrameSize)
	chunk := make([]byte, MaxFrameSize)
	for {
		frame, n, err := dec.Decode(buf)
		require.NoError(t, err)
		if n > 0 {
			return frame
		}
		r.SetReadDeadline(time.Now().Add(2 * time.Second))
		got, err := r.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:got]...)
	}
}

func splitHostPort(t *testing.T, addr string) (string, uint16) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, uint16(port)
}
