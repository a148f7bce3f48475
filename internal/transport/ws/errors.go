package ws

import "errors"

var (
	// ErrHandshakeTimeout indicates the websocket handshake exceeded the configured timeout.
	ErrHandshakeTimeout = errors.New("websocket handshake timed out")
	// ErrServerShutdown is the close cause when the server shuts sessions down.
	ErrServerShutdown = errors.New("websocket server shutdown")
)
