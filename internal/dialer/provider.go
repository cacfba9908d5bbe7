// Package dialer holds the provider-agnostic outbound-calling contract and
// the voice-provider adapter.
//
// Rules:
// - No provider SDK/HTTP calls outside dialer adapters.
// - Keep request/response types provider-agnostic; raw provider payloads
//   stay inside the adapter.
package dialer

import (
	"context"
)

// Dialer places outbound calls through a third-party voice provider.
type Dialer interface {
	Name() string

	// PlaceCall starts an outbound call and returns the provider-assigned
	// call identifier. The correlation id travels in call metadata and is
	// echoed back on end-of-call events for fallback record lookup.
	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)
}

// AgentConfig identifies the voice agent used for a run.
type AgentConfig struct {
	// AssistantID is the provider-side agent identifier.
	AssistantID string `json:"assistant_id"`

	// PhoneNumberID is the provider-side outbound number identifier.
	PhoneNumberID string `json:"phone_number_id"`
}

type PlaceCallRequest struct {
	PhoneE164 string      `json:"phone_e164"`
	Agent     AgentConfig `json:"agent"`

	// CandidateName personalizes the agent greeting when present.
	CandidateName string `json:"candidate_name,omitempty"`

	// CorrelationID is the caller-supplied unique record id.
	CorrelationID string `json:"correlation_id"`
}

type PlaceCallResult struct {
	ProviderCallID string `json:"provider_call_id"`
	Status         string `json:"status"`
}
