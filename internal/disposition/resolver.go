// Package disposition maps a voice provider's end-of-call event into a
// business disposition using a priority cascade: structured analysis,
// explicit ended-reason mapping, summary text heuristics, and a final
// cross-check override.
package disposition

import (
	"log/slog"
	"strings"

	"dialout/internal/records"
)

// Analysis is the optional structured block carried on an end-of-call event.
// Providers have historically used both "structuredData" and
// "structured_data" as the key for the structured block; Fields handles both.
type Analysis struct {
	Summary          string         `json:"summary"`
	StructuredData   map[string]any `json:"structuredData"`
	StructuredDataV1 map[string]any `json:"structured_data"`
}

func (a *Analysis) structured() map[string]any {
	if a == nil {
		return nil
	}
	if len(a.StructuredData) > 0 {
		return a.StructuredData
	}
	return a.StructuredDataV1
}

// Fields is the extracted per-call analysis output.
type Fields struct {
	Summary      string
	Location     string
	Availability string
}

// endedReasonMap maps known provider ended reasons to dispositions. Reasons
// present with an empty value signify a normal conversational ending: no
// direct disposition, defer to the summary heuristics instead of FAILED.
var endedReasonMap = map[string]records.Disposition{
	"customer-did-not-answer":              records.DispositionNoAnswer,
	"customer-did-not-pick-up":             records.DispositionNoAnswer,
	"silence-timed-out":                    records.DispositionNoAnswer,
	"customer-busy":                        records.DispositionBusy,
	"voicemail":                            records.DispositionVoicemail,
	"machine-detected":                     records.DispositionVoicemail,
	"phone-call-provider-closed-websocket": records.DispositionFailed,
	"error":                                records.DispositionFailed,
	"pipeline-error":                       records.DispositionFailed,

	"customer-ended-call":            "",
	"assistant-ended-call":           "",
	"assistant-said-end-call-phrase": "",
	"max-duration-reached":           "",
}

// Keyword families for the summary heuristic, checked in precedence order.
// Negation must come first: "not interested" contains "interested".
var summaryKeywords = []struct {
	disposition records.Disposition
	phrases     []string
}{
	{records.DispositionNotLooking, []string{"not looking", "not interested", "not open", "declined"}},
	{records.DispositionActiveLooking, []string{"actively looking", "open to", "interested in", "looking for"}},
	{records.DispositionCallBack, []string{"call back", "callback", "busy", "bad time"}},
	{records.DispositionWrongNumber, []string{"wrong number", "wrong person"}},
	{records.DispositionDNC, []string{"remove", "do not call", "unsubscribe"}},
}

var negationPhrases = summaryKeywords[0].phrases

// Resolve turns an ended-reason string and optional analysis block into a
// disposition. First applicable step wins; the cross-check override runs
// last against whatever the cascade settled on.
func Resolve(endedReason string, analysis *Analysis) records.Disposition {
	fields := ExtractFields(analysis)

	d, ok := FromAnalysis(analysis)
	if !ok {
		if mapped, known := endedReasonMap[endedReason]; known && mapped != "" {
			d = mapped
		} else {
			// Normal ending or unknown reason: infer from the summary.
			d = InferFromSummary(fields.Summary)
		}
	}

	return crossCheck(d, fields.Summary)
}

// FromAnalysis extracts and matches the structured disposition string.
// Normalization: uppercase, spaces and hyphens to underscores; then an
// exact match against the closed set, then substring containment either way.
func FromAnalysis(analysis *Analysis) (records.Disposition, bool) {
	structured := analysis.structured()
	if structured == nil {
		return "", false
	}
	raw, _ := structured["disposition"].(string)
	norm := normalizeDisposition(raw)
	if norm == "" {
		return "", false
	}

	if d := records.Disposition(norm); d.Valid() {
		return d, true
	}
	for _, d := range records.AllDispositions {
		v := string(d)
		if strings.Contains(norm, v) || strings.Contains(v, norm) {
			return d, true
		}
	}

	slog.Warn("unknown disposition from analysis", "raw", norm)
	return "", false
}

// InferFromSummary is the best-effort keyword heuristic applied when no
// structured or mapped disposition exists. A completed call with no
// extractable signal is treated as screened-out, not as an error.
func InferFromSummary(summary string) records.Disposition {
	s := strings.ToLower(summary)
	for _, family := range summaryKeywords {
		for _, phrase := range family.phrases {
			if strings.Contains(s, phrase) {
				return family.disposition
			}
		}
	}
	return records.DispositionNotQualified
}

// crossCheck guards against a structured disposition disagreeing with its
// own summary: strong negation language overrides ACTIVE_LOOKING.
func crossCheck(d records.Disposition, summary string) records.Disposition {
	if d != records.DispositionActiveLooking {
		return d
	}
	s := strings.ToLower(summary)
	for _, phrase := range negationPhrases {
		if strings.Contains(s, phrase) {
			slog.Warn("summary contradicts structured disposition", "from", d, "to", records.DispositionNotLooking)
			return records.DispositionNotLooking
		}
	}
	return d
}

// ExtractFields pulls summary, location and availability from the analysis.
// Summary prefers the structured field, falling back to the top-level
// summary text. Location and availability are structured-only.
func ExtractFields(analysis *Analysis) Fields {
	if analysis == nil {
		return Fields{}
	}
	structured := analysis.structured()

	f := Fields{Summary: analysis.Summary}
	if structured != nil {
		if v, _ := structured["summary"].(string); v != "" {
			f.Summary = v
		}
		f.Location, _ = structured["location"].(string)
		f.Availability, _ = structured["availability"].(string)
	}
	return f
}

// SummaryOrFallback returns the extracted summary, synthesizing
// "Call ended: <reason>" when no summary text exists but a reason is known.
func SummaryOrFallback(summary, endedReason string) string {
	if summary == "" && endedReason != "" {
		return "Call ended: " + endedReason
	}
	return summary
}

func normalizeDisposition(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
