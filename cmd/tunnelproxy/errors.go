package main

import "errors"

var (
	errListenFailed    = errors.New("tunnelproxy: listen failed")
	errAcceptFailed    = errors.New("tunnelproxy: accept failed")
	errHandshakeFailed = errors.New("tunnelproxy: handshake failed")
	errDialFailed      = errors.New("tunnelproxy: upstream dial failed")
)
