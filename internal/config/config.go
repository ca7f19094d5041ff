// Package config loads the TOML configuration for the tunnelproxy and
// tunnelclient demo binaries.
package config

import (
	"errors"
	"sync"

	"github.com/Iam54r1n4/protohs/internal/logger"
)

// timeoutConfig holds the timeouts the demo binaries apply around dialing
// and handshaking.
type timeoutConfig struct {
	DialTimeout      int `toml:"dialTimeout"`      // seconds
	HandshakeTimeout int `toml:"handshakeTimeout"` // seconds
}

// Account holds a single set of proxy credentials.
type Account struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

var (
	clientConfig            *ClientConfig
	serverConfig            *ServerConfig
	clientConfigLoadingOnce sync.Once
	serverConfigLoadingOnce sync.Once
)

// GetClientConfig loads and returns tunnelclient's configuration, decoding
// it only once even under concurrent callers. A malformed file is fatal.
func GetClientConfig(path string) *ClientConfig {
	clientConfigLoadingOnce.Do(func() {
		var err error
		if clientConfig, err = loadClientConfig(path); err != nil {
			logger.Fatal(errors.Join(errInvalidConfigFile, err))
		}
	})
	return clientConfig
}

// GetServerConfig loads and returns tunnelproxy's configuration, decoding it
// only once even under concurrent callers. A malformed file is fatal.
func GetServerConfig(path string) *ServerConfig {
	serverConfigLoadingOnce.Do(func() {
		var err error
		if serverConfig, err = loadServerConfig(path); err != nil {
			logger.Fatal(errors.Join(errInvalidConfigFile, err))
		}
	})
	return serverConfig
}
