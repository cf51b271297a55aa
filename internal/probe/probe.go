// Package probe drives the manual print-bridge check: connect, wait for the
// bridge to introduce its printers, send one synthetic label and observe the
// bridge's responses until the watchdog closes the window.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"printbridge-probe/internal/domain/bridge"
	"printbridge-probe/internal/domain/eventbus"
	"printbridge-probe/internal/domain/label"
	"printbridge-probe/internal/platform/config"
	platformerrors "printbridge-probe/internal/platform/errors"
	"printbridge-probe/internal/transport/ws"
	"printbridge-probe/internal/utils"
)

const (
	defaultDuration = 10 * time.Second
	defaultAckDelay = time.Second
)

// Options configures a probe run.
type Options struct {
	Config *config.Config
	Logger *utils.Logger
	// Bus receives the lifecycle events. A fresh async bus is created when nil.
	Bus *eventbus.AsyncEventBus
}

// Runner executes probe sessions against a bridge endpoint.
type Runner struct {
	cfg      *config.Config
	logger   *utils.Logger
	bus      *eventbus.AsyncEventBus
	ownsBus  bool
	pipeline *label.Pipeline

	duration time.Duration
	ackDelay time.Duration
}

// NewRunner constructs a probe runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, platformerrors.New(platformerrors.KindProbe, "probe.new", "config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}

	pipeline, err := label.NewPipeline(label.Options{
		Security: &opts.Config.Label.Security,
		Logger:   logger,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProbe, "probe.new", "build label pipeline", err)
	}

	bus := opts.Bus
	ownsBus := false
	if bus == nil {
		bus = eventbus.NewAsyncEventBus(4)
		bus.Start()
		ownsBus = true
	}

	return &Runner{
		cfg:      opts.Config,
		logger:   logger,
		bus:      bus,
		ownsBus:  ownsBus,
		pipeline: pipeline,
		duration: parseDuration(opts.Config.Probe.Duration, defaultDuration),
		ackDelay: parseDuration(opts.Config.Probe.AckDelay, defaultAckDelay),
	}, nil
}

// Bus exposes the event bus the runner publishes on.
func (r *Runner) Bus() *eventbus.AsyncEventBus {
	return r.bus
}

// Close releases resources owned by the runner.
func (r *Runner) Close() {
	if r.ownsBus {
		r.bus.Stop()
	}
}

// Run executes the configured number of sessions and blocks until all of them
// finish or ctx is cancelled. A watchdog-driven close is a normal end; only
// transport failures surface as errors.
func (r *Runner) Run(ctx context.Context) error {
	sessions := r.cfg.Probe.Sessions
	if sessions < 1 {
		sessions = 1
	}

	// One label serves every session, the payload is deterministic.
	payload, err := r.pipeline.BuildPayload(ctx, label.Spec{
		WidthMM:  r.cfg.Label.WidthMM,
		HeightMM: r.cfg.Label.HeightMM,
		DPI:      r.cfg.Label.DPI,
		Text:     r.cfg.Label.Text,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindProbe, "probe.run", "build label payload", err)
	}

	r.logger.InfoTag("Probe", "label ready: %dx%d px %s, %d base64 chars",
		payload.Validation.Width, payload.Validation.Height, payload.Format, len(payload.Base64))
	r.logger.InfoTag("Probe", "starting %d session(s) against %s", sessions, r.cfg.Bridge.URL)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < sessions; i++ {
		group.Go(func() error {
			return r.runSession(groupCtx, payload.Base64)
		})
	}
	return group.Wait()
}

func (r *Runner) runSession(ctx context.Context, payload string) error {
	conn, err := ws.Dial(ctx, r.cfg.Bridge.URL, ws.DialOptions{
		HandshakeTimeout: parseDuration(r.cfg.Bridge.HandshakeTimeout, 10*time.Second),
		Logger:           r.logger,
	})
	if err != nil {
		// Each failed attempt gets its own id so the reports stay separate.
		r.publish(eventbus.TopicProbeError, eventbus.ProbeEvent{
			SessionID: uuid.NewString(),
			Timestamp: time.Now(),
			Detail:    err.Error(),
		})
		return err
	}

	id := conn.GetID()
	r.publish(eventbus.TopicProbeConnected, eventbus.ProbeEvent{SessionID: id, Timestamp: time.Now()})

	// The watchdog bounds the whole session. When it fires the connection is
	// closed, which unblocks the read loop with a normal end.
	sessionCtx, cancel := context.WithTimeoutCause(ctx, r.duration, ws.ErrProbeFinished)
	defer cancel()
	go func() {
		<-sessionCtx.Done()
		conn.Close()
	}()
	defer conn.Close()

	ackSeen := false
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			r.publish(eventbus.TopicProbeClosed, eventbus.ProbeEvent{SessionID: id, Timestamp: time.Now()})
			if sessionCtx.Err() != nil || ctx.Err() != nil {
				r.logger.InfoTag("Probe", "session %s: observation window closed (%v)", id, context.Cause(sessionCtx))
				return nil
			}
			// A clean close from the bridge ends the session early but is
			// still a normal end.
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.InfoTag("Probe", "session %s: bridge closed the connection", id)
				return nil
			}
			r.publish(eventbus.TopicProbeError, eventbus.ProbeEvent{
				SessionID: id,
				Timestamp: time.Now(),
				Detail:    err.Error(),
			})
			return platformerrors.Wrap(platformerrors.KindProbe, "probe.session", "connection lost", err)
		}

		env, ok := bridge.Decode(frame)
		if !ok {
			preview := bridge.RawPreview(frame)
			r.logger.InfoTag("Probe", "session %s: raw frame: %s", id, preview)
			r.publish(eventbus.TopicProbeResponse, eventbus.ProbeEvent{
				SessionID: id,
				Timestamp: time.Now(),
				Detail:    preview,
			})
			continue
		}

		if ack, isAck := env.AsConnectionAck(); isAck && !ackSeen {
			ackSeen = true
			r.handleAck(sessionCtx, conn, ack, payload)
			continue
		}

		detail := bridge.RawPreview(frame)
		r.logger.InfoTag("Probe", "session %s: response %s: %s", id, env.Type, detail)
		r.publish(eventbus.TopicProbeResponse, eventbus.ProbeEvent{
			SessionID: id,
			Timestamp: time.Now(),
			Detail:    detail,
		})
	}
}

// handleAck logs the printer inventory, waits the configured delay and sends
// the label payload. The payload is sent at most once per session.
func (r *Runner) handleAck(ctx context.Context, conn *ws.Connection, ack *bridge.ConnectionAck, payload string) {
	id := conn.GetID()

	r.logger.InfoTag("Probe", "session %s: bridge ready, %d printer(s), default %q",
		id, len(ack.Printers), ack.DefaultPrinter)
	for _, printer := range ack.Printers {
		r.logger.InfoTag("Probe", "session %s:   printer: %s", id, printer)
	}

	r.publish(eventbus.TopicProbeAck, eventbus.ProbeEvent{
		SessionID:      id,
		Timestamp:      time.Now(),
		Printers:       ack.Printers,
		DefaultPrinter: ack.DefaultPrinter,
	})

	timer := time.NewTimer(r.ackDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if err := conn.WriteText([]byte(payload)); err != nil {
		r.logger.ErrorTag("Probe", "session %s: payload send failed: %v", id, err)
		r.publish(eventbus.TopicProbeError, eventbus.ProbeEvent{
			SessionID: id,
			Timestamp: time.Now(),
			Detail:    fmt.Sprintf("send payload: %v", err),
		})
		return
	}

	r.logger.InfoTag("Probe", "session %s: label sent (%d base64 chars)", id, len(payload))
	r.publish(eventbus.TopicProbeSent, eventbus.ProbeEvent{
		SessionID:   id,
		Timestamp:   time.Now(),
		PayloadSize: len(payload),
	})
}

func (r *Runner) publish(topic string, event eventbus.ProbeEvent) {
	r.bus.PublishAsync(topic, event)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
