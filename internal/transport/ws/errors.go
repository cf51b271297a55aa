package ws

import "errors"

var (
	// ErrHandshakeTimeout indicates the websocket handshake exceeded the configured timeout.
	ErrHandshakeTimeout = errors.New("websocket handshake timed out")
	// ErrProbeFinished is emitted when the observation window closes the connection on purpose.
	ErrProbeFinished = errors.New("websocket probe finished")
)
