// Package transport carries the message protocol between the panel surface
// and the autofill host: typed JSON envelopes over an in-process channel
// pair. The envelope format is stable so either side can be replaced by a
// remote peer without changing the core.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// MsgType identifies an envelope's payload shape.
type MsgType string

const (
	// MsgAutofillLocations asks the host to start an autofill run for the
	// selected reference locations.
	MsgAutofillLocations MsgType = "autofill-locations"
	// MsgAutofillProgress reports fill progress back to the panel.
	MsgAutofillProgress MsgType = "autofill-progress"
	// MsgAutofillPause toggles the pause state of the running task.
	MsgAutofillPause MsgType = "autofill-pause"
	// MsgAutofillAbort stops the running task.
	MsgAutofillAbort MsgType = "autofill-abort"
	// MsgAutofillComplete announces a finished run.
	MsgAutofillComplete MsgType = "show-autofill-complete"
	// MsgClosePanel asks the surface to close the panel.
	MsgClosePanel MsgType = "close-panel"
)

// Envelope is one wire message: a type tag plus its JSON payload.
type Envelope struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps a payload value into an envelope of the given type.
func Encode(t MsgType, v any) (Envelope, error) {
	if v == nil {
		return Envelope{Type: t}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("transport: encode %s: %w", t, err)
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// Decode unmarshals the envelope's payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("transport: decode %s: %w", e.Type, err)
	}
	return nil
}

// LocationsPayload carries the reference-location indexes chosen in the
// picker.
type LocationsPayload struct {
	Selected []int `json:"selected"`
}

// ProgressPayload mirrors the task's progress updates.
type ProgressPayload struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
}

// PausePayload toggles the pause state: true pauses, false resumes.
type PausePayload struct {
	Paused bool `json:"paused"`
}

// Endpoint is one side of an in-process duplex link.
type Endpoint struct {
	in  <-chan Envelope
	out chan<- Envelope
}

// NewPair returns the two connected endpoints of an in-process link. Sends on
// one are received on the other.
func NewPair(buffer int) (*Endpoint, *Endpoint) {
	ab := make(chan Envelope, buffer)
	ba := make(chan Envelope, buffer)
	return &Endpoint{in: ba, out: ab}, &Endpoint{in: ab, out: ba}
}

// Send delivers an envelope to the peer, honoring context cancellation.
func (e *Endpoint) Send(ctx context.Context, env Envelope) error {
	select {
	case e.out <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks for the next envelope from the peer.
func (e *Endpoint) Recv(ctx context.Context) (Envelope, error) {
	select {
	case env, ok := <-e.in:
		if !ok {
			return Envelope{}, fmt.Errorf("transport: peer closed")
		}
		return env, nil
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}
