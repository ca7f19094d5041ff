package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// proxyAddr is the tunnelproxy instance tunnelclient dials through.
type proxyAddr struct {
	Address string `toml:"address"`
}

// targetAddr is the final destination tunnelclient asks the proxy to
// CONNECT to.
type targetAddr struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ClientConfig is tunnelclient's configuration: which proxy to dial, which
// handshake protocol to speak to it, and what destination to request.
type ClientConfig struct {
	Listen  string        `toml:"listen"`
	Proxy   proxyAddr     `toml:"proxy"`
	Mode    string        `toml:"mode"` // "socks5" or "http"
	Account Account       `toml:"account"`
	Target  targetAddr    `toml:"target"`
	Timeout timeoutConfig `toml:"timeout"`
}

func loadClientConfig(path string) (*ClientConfig, error) {
	var cfg ClientConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaultValues()
	return &cfg, nil
}

// IsAuthEnabled reports whether tunnelclient should send credentials during
// the handshake.
func (cc *ClientConfig) IsAuthEnabled() bool {
	return cc.Account.Username != ""
}

func (cc *ClientConfig) validate() error {
	var missing []string

	if cc.Listen == "" {
		missing = append(missing, "listen")
	}
	if cc.Proxy.Address == "" {
		missing = append(missing, "proxy.address")
	}
	if cc.Mode != "socks5" && cc.Mode != "http" {
		return fmt.Errorf("mode must be \"socks5\" or \"http\", got %q", cc.Mode)
	}
	if cc.Target.Host == "" {
		missing = append(missing, "target.host")
	}
	if cc.Target.Port == 0 {
		missing = append(missing, "target.port")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (cc *ClientConfig) applyDefaultValues() {
	if cc.Timeout.DialTimeout == 0 {
		cc.Timeout.DialTimeout = 10
	}
	if cc.Timeout.HandshakeTimeout == 0 {
		cc.Timeout.HandshakeTimeout = 10
	}
}
