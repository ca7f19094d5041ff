// Command tunnelclient is a minimal local forwarder that dials a
// tunnelproxy instance and speaks either the SOCKS5 or HTTP CONNECT
// handshake to it, proving libra's and leo's client-side API end to end.
package main

import (
	"context"
	"errors"
	"io"
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
	cfg := config.GetClientConfig(flags.CfgPathFlag)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Fatal(errors.Join(errListenFailed, err))
	}
	logger.Info("tunnelclient listening on ", cfg.Listen, ", forwarding through ", cfg.Proxy.Address)

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Warn(errors.Join(errAcceptFailed, err))
			continue
		}
		go handleConnection(cfg, conn)
	}
}

func handleConnection(cfg *config.ClientConfig, local net.Conn) {
	defer local.Close()

	upstream, err := net.DialTimeout("tcp", cfg.Proxy.Address, time.Duration(cfg.Timeout.DialTimeout)*time.Second)
	if err != nil {
		logger.Warn(errors.Join(errDialFailed, err))
		return
	}
	defer upstream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Timeout.HandshakeTimeout)*time.Second)
	defer cancel()

	var stream io.ReadWriteCloser
	switch cfg.Mode {
	case "socks5":
		stream, err = handshakeSocks5(ctx, cfg, upstream)
	case "http":
		stream, err = handshakeHTTP(ctx, cfg, upstream)
	}
	if err != nil {
		logger.Warn(errors.Join(errHandshakeFailed, err))
		return
	}

	logger.Debug("forwarding ", local.RemoteAddr(), " <-> ", cfg.Target.Host)
	if err := relay.Pipe(local, stream); err != nil {
		logger.Error(err)
	}
}

func handshakeSocks5(ctx context.Context, cfg *config.ClientConfig, upstream net.Conn) (io.ReadWriteCloser, error) {
	dst, err := libra.NewDestinationFromDomain(cfg.Target.Host, uint16(cfg.Target.Port))
	if err != nil {
		return nil, err
	}

	builder := libra.NewClientBuilder(dst)
	if cfg.IsAuthEnabled() {
		builder = builder.WithAuth(cfg.Account.Username, cfg.Account.Password)
	}
	return builder.Handshake(ctx, upstream)
}

func handshakeHTTP(ctx context.Context, cfg *config.ClientConfig, upstream net.Conn) (io.ReadWriteCloser, error) {
	builder := leo.NewClientBuilder(cfg.Target.Host, cfg.Target.Port)
	if cfg.IsAuthEnabled() {
		builder = builder.WithAuth(cfg.Account.Username, cfg.Account.Password)
	}
	return builder.Handshake(ctx, upstream)
}
