package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// serverAddr holds the listen configuration for tunnelproxy.
type serverAddr struct {
	Address string `toml:"address"`
}

// ServerConfig is tunnelproxy's configuration: what address to listen on,
// which handshake protocol to speak, and the credentials to require (if
// any).
type ServerConfig struct {
	Server  serverAddr    `toml:"server"`
	Mode    string        `toml:"mode"` // "socks5" or "http"
	Account Account       `toml:"account"`
	Timeout timeoutConfig `toml:"timeout"`
}

func loadServerConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaultValues()
	return &cfg, nil
}

// IsAuthEnabled reports whether tunnelproxy should require credentials
// during the handshake.
func (sc *ServerConfig) IsAuthEnabled() bool {
	return sc.Account.Username != ""
}

func (sc *ServerConfig) validate() error {
	var missing []string

	if sc.Server.Address == "" {
		missing = append(missing, "server.address")
	}
	if sc.Mode != "socks5" && sc.Mode != "http" {
		return fmt.Errorf("mode must be \"socks5\" or \"http\", got %q", sc.Mode)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	if (sc.Account.Username == "") != (sc.Account.Password == "") {
		return errIncompleteAccount
	}
	return nil
}

func (sc *ServerConfig) applyDefaultValues() {
	if sc.Timeout.DialTimeout == 0 {
		sc.Timeout.DialTimeout = 10
	}
	if sc.Timeout.HandshakeTimeout == 0 {
		sc.Timeout.HandshakeTimeout = 10
	}
}
