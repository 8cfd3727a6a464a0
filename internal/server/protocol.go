package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// Client message types.
const (
	msgSubmit    = "submit"
	msgConfigure = "configure"
	msgReset     = "reset"
)

// Server message types.
const (
	msgReady       = "ready"
	msgAccepted    = "accepted"
	msgCaption     = "caption"
	msgFrame       = "frame"
	msgState       = "state"
	msgDiagnostics = "diagnostics"
	msgError       = "error"
)

// Error codes sent in error frames.
const (
	codeBadRequest   = "bad_request"
	codeUnsupported  = "unsupported"
	codeTextTooLong  = "text_too_long"
	codeInvalidValue = "invalid_value"
	codeGlossFailed  = "gloss_failed"
)

var errMissingType = errors.New("message has no type")

type clientEnvelope struct {
	Type string `json:"type"`
}

type submitMessage struct {
	Text  string `json:"text"`
	Gloss bool   `json:"gloss"`
}

// configureMessage uses pointers so omitted fields keep their current value.
type configureMessage struct {
	StepSize *float32 `json:"step_size"`
	HoldMS   *int64   `json:"hold_ms"`
}

type readyMessage struct {
	Type      string   `json:"type"`
	SessionID string   `json:"session_id"`
	Rig       string   `json:"rig"`
	Joints    []string `json:"joints"`
	StepSize  float32  `json:"step_size"`
	HoldMS    int64    `json:"hold_ms"`
	TickRate  float64  `json:"tick_rate"`
}

type acceptedMessage struct {
	Type   string           `json:"type"`
	Text   string           `json:"text"`
	Signed string           `json:"signed"`
	Report sequencer.Report `json:"report"`
}

type captionMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type frameMessage struct {
	Type   string        `json:"type"`
	Seq    uint64        `json:"seq"`
	Joints skeleton.Pose `json:"joints"`
}

type stateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

type diagnosticsMessage struct {
	Type        string                `json:"type"`
	Degraded    bool                  `json:"degraded"`
	Diagnostics sequencer.Diagnostics `json:"diagnostics"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeClientMessage returns the message type and the raw frame for the typed decode.
func decodeClientMessage(data []byte) (string, error) {
	var env clientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decode message: %w", err)
	}
	if env.Type == "" {
		return "", errMissingType
	}
	return env.Type, nil
}
