package main

import "errors"

var (
	errListenFailed    = errors.New("tunnelclient: listen failed")
	errAcceptFailed    = errors.New("tunnelclient: accept failed")
	errDialFailed      = errors.New("tunnelclient: proxy dial failed")
	errHandshakeFailed = errors.New("tunnelclient: handshake failed")
)
