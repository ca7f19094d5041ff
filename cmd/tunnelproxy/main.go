// Command tunnelproxy is a minimal SOCKS5/HTTP CONNECT proxy server built
// on the libra and leo handshake libraries, proving their server-side API
// end to end.
package main

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/Iam54r1n4/protohs/internal/config"
	"github.com/Iam54r1n4/protohs/internal/flags"
	"github.com/Iam54r1n4/protohs/internal/logger"
	"github.com/Iam54r1n4/protohs/internal/relay"
	"github.com/Iam54r1n4/protohs/leo"
	"github.com/Iam54r1n4/protohs/libra"
)

func main() {
	cfg := config.GetServerConfig(flags.CfgPathFlag)

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		logger.Fatal(errors.Join(errListenFailed, err))
	}
	logger.Info("tunnelproxy listening on ", cfg.Server.Address)

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Warn(errors.Join(errAcceptFailed, err))
			continue
		}
		logger.Debug("accepted connection from ", conn.RemoteAddr())
		go handleConnection(cfg, conn)
	}
}

func handleConnection(cfg *config.ServerConfig, c net.Conn) {
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Timeout.HandshakeTimeout)*time.Second)
	defer cancel()

	switch cfg.Mode {
	case "socks5":
		handleSocks5(ctx, cfg, c)
	case "http":
		handleHTTP(ctx, cfg, c)
	}
}

func handleSocks5(ctx context.Context, cfg *config.ServerConfig, c net.Conn) {
	builder := libra.NewServerBuilder(tcpConnect{dialTimeout: timeoutSeconds(cfg.Timeout.DialTimeout)})
	if cfg.IsAuthEnabled() {
		builder = builder.WithAuth(cfg.Account.Username, cfg.Account.Password)
	}

	stream, upstream, err := builder.Handshake(ctx, c)
	if err != nil {
		logger.Warn(errors.Join(errHandshakeFailed, err))
		return
	}
	defer upstream.Close()

	logger.Debug("proxying ", c.RemoteAddr(), " <-> ", upstream.RemoteAddr())
	if err := relay.Pipe(stream, upstream); err != nil {
		logger.Error(err)
	}
}

func handleHTTP(ctx context.Context, cfg *config.ServerConfig, c net.Conn) {
	builder := leo.NewServerBuilder()
	if cfg.IsAuthEnabled() {
		builder = builder.WithAuth(cfg.Account.Username, cfg.Account.Password)
	}

	stream, target, err := builder.Handshake(ctx, c)
	if err != nil {
		logger.Warn(errors.Join(errHandshakeFailed, err))
		return
	}

	upstream, err := net.DialTimeout("tcp", target, time.Duration(cfg.Timeout.DialTimeout)*time.Second)
	if err != nil {
		logger.Warn(errors.Join(errDialFailed, err))
		return
	}
	defer upstream.Close()

	logger.Debug("proxying ", c.RemoteAddr(), " <-> ", target)
	if err := relay.Pipe(stream, upstream); err != nil {
		logger.Error(err)
	}
}

// tcpConnect dials the destination libra's server handshake asks for.
type tcpConnect struct {
	dialTimeout time.Duration
}

func (d tcpConnect) Dial(ctx context.Context, dst libra.Destination) (libra.UpstreamConn, error) {
	var dialer net.Dialer
	if d.dialTimeout > 0 {
		dialer.Timeout = d.dialTimeout
	}
	return dialer.DialContext(ctx, "tcp", dst.String())
}

func timeoutSeconds(s int) time.Duration { return time.Duration(s) * time.Second }
