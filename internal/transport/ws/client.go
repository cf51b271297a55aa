package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	platformerrors "printbridge-probe/internal/platform/errors"
	"printbridge-probe/internal/utils"
)

// DialOptions tunes how a client connection is established.
type DialOptions struct {
	// HandshakeTimeout bounds the websocket upgrade. Zero keeps the dialer default.
	HandshakeTimeout time.Duration
	// Header is passed through to the upgrade request.
	Header http.Header
	// Logger defaults to utils.DefaultLogger when nil.
	Logger *utils.Logger
}

// Dial opens a client websocket connection to url and wraps it in a Connection
// with a fresh session id.
func Dial(ctx context.Context, url string, opts DialOptions) (*Connection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: dialTimeout(opts.HandshakeTimeout),
	}

	logger.InfoTag("WebSocket", "dialing %s", url)

	socket, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return nil, platformerrors.Wrap(platformerrors.KindTransport, "ws.dial", "handshake cancelled", ctx.Err())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, platformerrors.Wrap(platformerrors.KindTransport, "ws.dial", "dial "+url, ErrHandshakeTimeout)
		}
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "ws.dial", "dial "+url, err)
	}

	conn := NewConnection(uuid.NewString(), socket)
	logger.InfoTag("WebSocket", "connected %s session=%s", url, conn.GetID())
	return conn, nil
}

func dialTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 10 * time.Second
	}
	return timeout
}
