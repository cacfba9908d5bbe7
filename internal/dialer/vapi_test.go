package dialer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestVapi(t *testing.T, handler http.HandlerFunc) *VapiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVapiClient(VapiConfig{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		PhoneNumberID: "pn-default",
	}, nil)
}

func TestPlaceCallRequestShape(t *testing.T) {
	var got map[string]any
	c := newTestVapi(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call/phone" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"call-1","status":"queued"}`))
	})

	res, err := c.PlaceCall(context.Background(), PlaceCallRequest{
		PhoneE164:     "+447911123456",
		Agent:         AgentConfig{AssistantID: "a-1"},
		CandidateName: "Ada",
		CorrelationID: "r-1",
	})
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if res.ProviderCallID != "call-1" || res.Status != "queued" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if got["assistantId"] != "a-1" {
		t.Errorf("assistantId = %v", got["assistantId"])
	}
	// Phone number id falls back to the client config when the agent
	// does not carry one.
	if got["phoneNumberId"] != "pn-default" {
		t.Errorf("phoneNumberId = %v", got["phoneNumberId"])
	}
	customer, _ := got["customer"].(map[string]any)
	if customer["number"] != "+447911123456" {
		t.Errorf("customer.number = %v", customer["number"])
	}
	metadata, _ := got["metadata"].(map[string]any)
	if metadata["unique_record_id"] != "r-1" {
		t.Errorf("metadata.unique_record_id = %v", metadata["unique_record_id"])
	}
	if _, ok := got["assistantOverrides"]; !ok {
		t.Error("expected assistantOverrides when candidate name is set")
	}
}

func TestPlaceCallOmitsOverridesWithoutName(t *testing.T) {
	var got map[string]any
	c := newTestVapi(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"call-2","status":"queued"}`))
	})
	if _, err := c.PlaceCall(context.Background(), PlaceCallRequest{
		PhoneE164:     "+447911123456",
		Agent:         AgentConfig{AssistantID: "a-1"},
		CorrelationID: "r-2",
	}); err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if _, ok := got["assistantOverrides"]; ok {
		t.Error("assistantOverrides should be absent without a candidate name")
	}
}

func TestPlaceCallSurfacesProviderError(t *testing.T) {
	c := newTestVapi(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid phone number"}`, http.StatusBadRequest)
	})
	if _, err := c.PlaceCall(context.Background(), PlaceCallRequest{
		PhoneE164: "junk",
		Agent:     AgentConfig{AssistantID: "a-1"},
	}); err == nil {
		t.Fatal("expected error from 400 response")
	}
}

func TestEnsureAssistantReturnsConfiguredID(t *testing.T) {
	c := newTestVapi(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when assistant id is configured")
	})
	id, err := c.EnsureAssistant(context.Background(), "a-configured")
	if err != nil || id != "a-configured" {
		t.Fatalf("EnsureAssistant = %q, %v", id, err)
	}
}

func TestEnsureAssistantCreatesWhenMissing(t *testing.T) {
	var got map[string]any
	c := newTestVapi(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assistant" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"a-new"}`))
	})
	id, err := c.EnsureAssistant(context.Background(), "")
	if err != nil || id != "a-new" {
		t.Fatalf("EnsureAssistant = %q, %v", id, err)
	}
	plan, _ := got["analysisPlan"].(map[string]any)
	if plan == nil {
		t.Fatal("analysisPlan missing from create payload")
	}
}
