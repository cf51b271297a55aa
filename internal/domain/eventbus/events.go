package eventbus

import "time"

// Probe lifecycle topics.
const (
	TopicProbeConnected = "probe.connected"
	TopicProbeAck       = "probe.ack"
	TopicProbeSent      = "probe.sent"
	TopicProbeResponse  = "probe.response"
	TopicProbeError     = "probe.error"
	TopicProbeClosed    = "probe.closed"
)

// ProbeEvent is the payload carried on every probe topic.
type ProbeEvent struct {
	SessionID string
	Timestamp time.Time

	// Printers and DefaultPrinter are set on TopicProbeAck.
	Printers       []string
	DefaultPrinter string

	// PayloadSize is set on TopicProbeSent, counted in base64 characters.
	PayloadSize int

	// Detail carries the response preview or error text.
	Detail string
}
