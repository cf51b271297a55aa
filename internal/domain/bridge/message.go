// Package bridge models the print-bridge wire messages the probe observes.
// The protocol is owned by the bridge; only the connection acknowledgement
// has a shape the probe relies on, everything else is carried opaquely.
package bridge

import (
	"encoding/json"
)

// TypeConnection marks the acknowledgement the bridge sends after upgrade.
const TypeConnection = "connection"

// TypePrint marks the loopback stub's print result frame.
const TypePrint = "print"

// rawPreviewLimit bounds how much of a non-JSON frame is surfaced in logs.
const rawPreviewLimit = 100

// ConnectionAck is the first structured message the bridge sends.
type ConnectionAck struct {
	Type           string   `json:"type"`
	Printers       []string `json:"printers"`
	DefaultPrinter string   `json:"defaultPrinter"`
}

// PrintResult is the stub bridge's reply to a label payload.
type PrintResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Printer string `json:"printer,omitempty"`
	Message string `json:"message,omitempty"`
}

// Envelope is a decoded JSON frame of unknown shape.
type Envelope struct {
	Type   string
	Fields map[string]interface{}
	Raw    []byte
}

// Decode parses a text frame. ok is false when the frame is not JSON, in
// which case the caller should fall back to RawPreview.
func Decode(data []byte) (*Envelope, bool) {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}

	env := &Envelope{
		Fields: fields,
		Raw:    data,
	}
	if t, ok := fields["type"].(string); ok {
		env.Type = t
	}
	return env, true
}

// AsConnectionAck re-decodes the envelope as a connection acknowledgement.
// A missing printer list stays nil; the bridge is not required to send one.
func (e *Envelope) AsConnectionAck() (*ConnectionAck, bool) {
	if e.Type != TypeConnection {
		return nil, false
	}

	var ack ConnectionAck
	if err := json.Unmarshal(e.Raw, &ack); err != nil {
		return nil, false
	}
	return &ack, true
}

// RawPreview truncates a frame for logging; unparsed messages are capped at
// 100 bytes.
func RawPreview(data []byte) string {
	if len(data) <= rawPreviewLimit {
		return string(data)
	}
	return string(data[:rawPreviewLimit]) + "..."
}
