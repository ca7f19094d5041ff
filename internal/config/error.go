package config

import "errors"

var (
	errInvalidConfigFile = errors.New("invalid config file")
	errIncompleteAccount = errors.New("account requires both username and password, or neither")
)
