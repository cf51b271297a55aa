package probe

import (
	"sync"
	"time"

	"printbridge-probe/internal/domain/eventbus"
	"printbridge-probe/internal/utils"
)

// SessionReport captures what one probe session observed.
type SessionReport struct {
	SessionID      string
	ConnectedAt    time.Time
	AckAt          time.Time
	Printers       []string
	DefaultPrinter string
	PayloadSize    int
	Responses      []string
	Errors         []string
	ClosedAt       time.Time
}

// AckSeen reports whether the bridge acknowledged the connection.
func (s *SessionReport) AckSeen() bool {
	return !s.AckAt.IsZero()
}

// Report aggregates all sessions of one probe run.
type Report struct {
	Sessions  []SessionReport
	Acks      int
	Sent      int
	Responses int
	Errors    int
}

// Reporter subscribes to the probe lifecycle topics and builds a Report.
type Reporter struct {
	bus    *eventbus.AsyncEventBus
	logger *utils.Logger

	mu       sync.Mutex
	sessions map[string]*SessionReport
	order    []string
}

// NewReporter creates a reporter and subscribes it to the probe topics on bus.
func NewReporter(bus *eventbus.AsyncEventBus, logger *utils.Logger) (*Reporter, error) {
	if logger == nil {
		logger = utils.DefaultLogger
	}

	r := &Reporter{
		bus:      bus,
		logger:   logger,
		sessions: make(map[string]*SessionReport),
	}

	subscriptions := map[string]func(eventbus.ProbeEvent){
		eventbus.TopicProbeConnected: r.onConnected,
		eventbus.TopicProbeAck:       r.onAck,
		eventbus.TopicProbeSent:      r.onSent,
		eventbus.TopicProbeResponse:  r.onResponse,
		eventbus.TopicProbeError:     r.onError,
		eventbus.TopicProbeClosed:    r.onClosed,
	}
	for topic, handler := range subscriptions {
		if err := bus.Subscribe(topic, handler); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Reporter) session(id string) *SessionReport {
	if existing, ok := r.sessions[id]; ok {
		return existing
	}
	created := &SessionReport{SessionID: id}
	r.sessions[id] = created
	r.order = append(r.order, id)
	return created
}

func (r *Reporter) onConnected(event eventbus.ProbeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session(event.SessionID).ConnectedAt = event.Timestamp
}

func (r *Reporter) onAck(event eventbus.ProbeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.session(event.SessionID)
	session.AckAt = event.Timestamp
	session.Printers = event.Printers
	session.DefaultPrinter = event.DefaultPrinter
}

func (r *Reporter) onSent(event eventbus.ProbeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session(event.SessionID).PayloadSize = event.PayloadSize
}

func (r *Reporter) onResponse(event eventbus.ProbeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.session(event.SessionID)
	session.Responses = append(session.Responses, event.Detail)
}

func (r *Reporter) onError(event eventbus.ProbeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.session(event.SessionID)
	session.Errors = append(session.Errors, event.Detail)
}

func (r *Reporter) onClosed(event eventbus.ProbeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session(event.SessionID).ClosedAt = event.Timestamp
}

// Snapshot returns the current aggregate view in session arrival order.
func (r *Reporter) Snapshot() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := Report{}
	for _, id := range r.order {
		session := r.sessions[id]
		report.Sessions = append(report.Sessions, *session)
		if session.AckSeen() {
			report.Acks++
		}
		if session.PayloadSize > 0 {
			report.Sent++
		}
		report.Responses += len(session.Responses)
		report.Errors += len(session.Errors)
	}
	return report
}

// LogSummary writes the closing summary of a run.
func (r *Reporter) LogSummary() {
	report := r.Snapshot()

	r.logger.InfoTag("Probe", "run complete: %d session(s), %d ack(s), %d payload(s) sent, %d response(s), %d error(s)",
		len(report.Sessions), report.Acks, report.Sent, report.Responses, report.Errors)

	for _, session := range report.Sessions {
		if !session.AckSeen() {
			r.logger.WarnTag("Probe", "session %s never received a connection ack", session.SessionID)
			continue
		}
		duration := session.ClosedAt.Sub(session.ConnectedAt)
		r.logger.InfoTag("Probe", "session %s: default printer %q, payload %d chars, %d response(s) in %s",
			session.SessionID, session.DefaultPrinter, session.PayloadSize, len(session.Responses), duration.Round(time.Millisecond))
	}
}
