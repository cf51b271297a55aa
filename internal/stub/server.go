// Package stub hosts a loopback print bridge that speaks the same wire
// contract as the desktop tray application: a connection ack on upgrade and a
// print result for every label payload received.
package stub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"printbridge-probe/internal/domain/bridge"
	platformerrors "printbridge-probe/internal/platform/errors"
	"printbridge-probe/internal/utils"
)

const shutdownTimeout = 5 * time.Second

// Config stores the settings required to expose the stub bridge.
type Config struct {
	IP             string
	Port           int
	Printers       []string
	DefaultPrinter string
}

// Server coordinates the gin engine and lifecycle management.
type Server struct {
	cfg      Config
	logger   *utils.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
}

// NewServer builds a stub bridge server.
func NewServer(cfg Config, logger *utils.Logger) *Server {
	if logger == nil {
		logger = utils.DefaultLogger
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Listen binds the server's listener. Safe to call more than once; Start
// calls it implicitly. Binding before Start lets callers read Addr and dial
// without racing the serve goroutine.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.IP, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStub, "stub.listen", "listen "+addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the address the server is listening on. Valid after Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return fmt.Sprintf("%s:%d", s.cfg.IP, s.cfg.Port)
	}
	return s.listener.Addr().String()
}

// URL returns the websocket endpoint of the running stub.
func (s *Server) URL() string {
	return "ws://" + s.Addr() + "/ws"
}

// Start serves until ctx is cancelled, binding the listener first if Listen
// was not called. Passing port 0 picks a free port, which tests rely on.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.loggingMiddleware())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/ws", s.handleWS)

	s.mu.Lock()
	if s.httpSrv != nil {
		s.mu.Unlock()
		return nil
	}
	httpSrv := &http.Server{Handler: engine}
	listener := s.listener
	s.httpSrv = httpSrv
	s.mu.Unlock()

	if ctx != nil {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	s.logger.InfoTag("Stub", "listening on %s", s.URL())

	err := httpSrv.Serve(listener)
	if err != nil && err != http.ErrServerClosed {
		return platformerrors.Wrap(platformerrors.KindStub, "stub.serve", "serve", err)
	}
	return nil
}

// Stop gracefully stops the stub server.
func (s *Server) Stop() error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.httpSrv = nil
	s.listener = nil
	s.mu.Unlock()

	if httpSrv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleWS(c *gin.Context) {
	socket, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.ErrorTag("Stub", "upgrade failed: %v", err)
		return
	}
	defer socket.Close()

	ack := bridge.ConnectionAck{
		Type:           bridge.TypeConnection,
		Printers:       s.cfg.Printers,
		DefaultPrinter: s.cfg.DefaultPrinter,
	}
	if err := s.writeJSON(socket, ack); err != nil {
		s.logger.ErrorTag("Stub", "ack write failed: %v", err)
		return
	}

	for {
		messageType, payload, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WarnTag("Stub", "client gone: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		result := s.handlePayload(payload)
		if err := s.writeJSON(socket, result); err != nil {
			s.logger.ErrorTag("Stub", "result write failed: %v", err)
			return
		}
	}
}

// handlePayload treats every text frame as a base64 encoded label image and
// answers with a print result, the same as the tray application does.
func (s *Server) handlePayload(payload []byte) bridge.PrintResult {
	raw, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return bridge.PrintResult{
			Type:    bridge.TypePrint,
			Success: false,
			Message: "payload is not valid base64",
		}
	}

	cfgImg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return bridge.PrintResult{
			Type:    bridge.TypePrint,
			Success: false,
			Message: "payload is not a PNG image",
		}
	}

	jobID := uuid.NewString()
	s.logger.InfoTag("Stub", "accepted job %s (%dx%d px, %d bytes)", jobID, cfgImg.Width, cfgImg.Height, len(raw))

	return bridge.PrintResult{
		Type:    bridge.TypePrint,
		Success: true,
		JobID:   jobID,
		Width:   cfgImg.Width,
		Height:  cfgImg.Height,
		Printer: s.cfg.DefaultPrinter,
	}
}

func (s *Server) writeJSON(socket *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return socket.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		s.logger.InfoTag("HTTP", "%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			duration,
		)
	}
}
