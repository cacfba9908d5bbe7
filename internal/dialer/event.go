package dialer

import (
	"encoding/json"

	"dialout/internal/disposition"
)

// Event message types delivered on the provider webhook.
const (
	EventEndOfCallReport = "end-of-call-report"
	EventStatusUpdate    = "status-update"
	EventHang            = "hang"
	EventFunctionCall    = "function-call"
)

// WebhookEnvelope is the outer shape of every provider callback.
type WebhookEnvelope struct {
	Message WebhookMessage `json:"message"`
}

type WebhookMessage struct {
	Type         string                `json:"type"`
	Status       string                `json:"status"`
	Transcript   string                `json:"transcript"`
	RecordingURL string                `json:"recordingUrl"`
	Analysis     *disposition.Analysis `json:"analysis"`
	Call         WebhookCall           `json:"call"`
}

// WebhookCall is the call object embedded in provider events. Analysis and
// the recording URL have appeared both here and at the message level
// depending on provider version; callers should prefer the message-level
// value and fall back to this one.
type WebhookCall struct {
	ID           string                `json:"id"`
	EndedReason  string                `json:"endedReason"`
	RecordingURL string                `json:"recordingUrl"`
	Analysis     *disposition.Analysis `json:"analysis"`
	Metadata     map[string]any        `json:"metadata"`
}

// EndOfCall flattens an envelope into the logical end-of-call payload the
// disposition resolver depends on.
type EndOfCall struct {
	ProviderCallID string
	EndedReason    string
	Transcript     string
	RecordingURL   string
	Analysis       *disposition.Analysis

	// CorrelationID is the unique_record_id echoed back from call metadata,
	// used when the provider call id does not resolve to a record.
	CorrelationID string
}

// ParseWebhook decodes a raw provider callback body.
func ParseWebhook(body []byte) (WebhookEnvelope, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return WebhookEnvelope{}, err
	}
	return env, nil
}

// EndOfCall extracts the flattened end-of-call payload from the envelope.
func (e WebhookEnvelope) EndOfCall() EndOfCall {
	m := e.Message
	out := EndOfCall{
		ProviderCallID: m.Call.ID,
		EndedReason:    m.Call.EndedReason,
		Transcript:     m.Transcript,
		RecordingURL:   m.RecordingURL,
		Analysis:       m.Analysis,
	}
	if out.RecordingURL == "" {
		out.RecordingURL = m.Call.RecordingURL
	}
	if out.Analysis == nil {
		out.Analysis = m.Call.Analysis
	}
	if m.Call.Metadata != nil {
		out.CorrelationID, _ = m.Call.Metadata["unique_record_id"].(string)
	}
	return out
}
