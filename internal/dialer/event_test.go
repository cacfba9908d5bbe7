package dialer

import (
	"testing"
)

func TestParseWebhookEndOfCall(t *testing.T) {
	body := []byte(`{
		"message": {
			"type": "end-of-call-report",
			"transcript": "AI: hi\nUser: hello",
			"recordingUrl": "https://recordings/1.mp3",
			"analysis": {"summary": "Candidate is interested", "structuredData": {"disposition": "ACTIVE_LOOKING"}},
			"call": {
				"id": "call-123",
				"endedReason": "customer-ended-call",
				"metadata": {"unique_record_id": "r-42"}
			}
		}
	}`)

	env, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if env.Message.Type != EventEndOfCallReport {
		t.Fatalf("type = %q", env.Message.Type)
	}

	eoc := env.EndOfCall()
	if eoc.ProviderCallID != "call-123" || eoc.EndedReason != "customer-ended-call" {
		t.Fatalf("unexpected payload: %+v", eoc)
	}
	if eoc.CorrelationID != "r-42" {
		t.Fatalf("correlation id = %q", eoc.CorrelationID)
	}
	if eoc.RecordingURL != "https://recordings/1.mp3" {
		t.Fatalf("recording url = %q", eoc.RecordingURL)
	}
	if eoc.Analysis == nil || eoc.Analysis.Summary != "Candidate is interested" {
		t.Fatalf("analysis not carried: %+v", eoc.Analysis)
	}
}

func TestEndOfCallFallsBackToCallLevelFields(t *testing.T) {
	// Older provider payloads put the recording URL and analysis on the
	// call object rather than the message.
	body := []byte(`{
		"message": {
			"type": "end-of-call-report",
			"call": {
				"id": "call-9",
				"endedReason": "voicemail",
				"recordingUrl": "https://recordings/9.mp3",
				"analysis": {"summary": "Left voicemail"}
			}
		}
	}`)

	env, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	eoc := env.EndOfCall()
	if eoc.RecordingURL != "https://recordings/9.mp3" {
		t.Fatalf("recording url fallback missed: %q", eoc.RecordingURL)
	}
	if eoc.Analysis == nil || eoc.Analysis.Summary != "Left voicemail" {
		t.Fatalf("analysis fallback missed: %+v", eoc.Analysis)
	}
	if eoc.CorrelationID != "" {
		t.Fatalf("no metadata should mean empty correlation id, got %q", eoc.CorrelationID)
	}
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	if _, err := ParseWebhook([]byte("not json at all")); err == nil {
		t.Fatal("expected parse error")
	}
}
