package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// VapiConfig carries provider credentials and connection settings.
type VapiConfig struct {
	APIKey        string
	BaseURL       string
	PhoneNumberID string

	// WebhookBaseURL is where the provider should deliver call events.
	WebhookBaseURL string

	// RequestsPerSecond throttles outgoing API requests. Zero disables
	// client-side rate limiting.
	RequestsPerSecond int

	Timeout time.Duration
}

// VapiClient talks to the Vapi voice-agent platform.
type VapiClient struct {
	cfg     VapiConfig
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewVapiClient(cfg VapiConfig, log *slog.Logger) *VapiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.vapi.ai"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond)
	}
	return &VapiClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     log,
	}
}

func (c *VapiClient) Name() string { return "vapi" }

// PlaceCall starts an outbound phone call. The correlation id is carried in
// call metadata so end-of-call events can be matched back to the record
// even if the provider call id lookup fails.
func (c *VapiClient) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	payload := map[string]any{
		"assistantId":   req.Agent.AssistantID,
		"phoneNumberId": firstNonEmpty(req.Agent.PhoneNumberID, c.cfg.PhoneNumberID),
		"customer": map[string]any{
			"number": req.PhoneE164,
		},
		"metadata": map[string]any{
			"unique_record_id": req.CorrelationID,
		},
	}
	if req.CandidateName != "" {
		payload["assistantOverrides"] = map[string]any{
			"firstMessage": fmt.Sprintf("Hi %s! Is this a good time to talk briefly?", req.CandidateName),
		}
	}

	c.log.Info("placing call", "phone", req.PhoneE164, "record_id", req.CorrelationID)

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/call/phone", payload, &out); err != nil {
		return PlaceCallResult{}, err
	}

	c.log.Info("call placed", "provider_call_id", out.ID, "status", out.Status)
	return PlaceCallResult{ProviderCallID: out.ID, Status: out.Status}, nil
}

// GetCall fetches current call details from the provider.
func (c *VapiClient) GetCall(ctx context.Context, callID string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/call/"+callID, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureAssistant returns the configured assistant id, creating a screening
// assistant when none is configured.
func (c *VapiClient) EnsureAssistant(ctx context.Context, assistantID string) (string, error) {
	if assistantID != "" {
		return assistantID, nil
	}

	payload := map[string]any{
		"name": "Outreach Screener",
		"model": map[string]any{
			"provider": "openai",
			"model":    "gpt-4o-mini",
			"messages": []map[string]any{
				{"role": "system", "content": screenerSystemPrompt},
			},
			"temperature": 0.7,
		},
		"firstMessage":          "Hello! Is this a good time to talk briefly?",
		"endCallMessage":        "Thanks for your time. Have a great day!",
		"maxDurationSeconds":    180,
		"silenceTimeoutSeconds": 15,
		"analysisPlan": map[string]any{
			"summaryPlan": map[string]any{"enabled": true},
			"structuredDataPlan": map[string]any{
				"enabled": true,
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"disposition": map[string]any{
							"type": "string",
							"enum": []string{
								"ACTIVE_LOOKING", "NOT_LOOKING", "CALL_BACK",
								"WRONG_NUMBER", "DNC",
							},
						},
						"summary":      map[string]any{"type": "string"},
						"location":     map[string]any{"type": "string"},
						"availability": map[string]any{"type": "string"},
					},
				},
			},
		},
		"serverUrl": c.cfg.WebhookBaseURL + "/webhook/vapi",
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/assistant", payload, &out); err != nil {
		return "", err
	}
	c.log.Info("assistant created", "assistant_id", out.ID)
	return out.ID, nil
}

func (c *VapiClient) do(ctx context.Context, method, path string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dialer: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("dialer: %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

const screenerSystemPrompt = `You are a friendly, professional assistant calling on behalf of a recruitment team.
Keep the call under two minutes. Greet the contact by first name, check whether
it is a good time, then ask whether they are currently open to new
opportunities or actively looking for a new role. Note any role, location or
availability they mention. If they ask to be removed from the list, confirm
you will do so immediately and end the call. If you reach voicemail, leave a
brief message and end the call. Be concise, never pressure anyone.`
