package records

import "time"

// CallRecord is one row per candidate, keyed by the caller-supplied
// unique_record_id. Re-ingesting the same id updates mutable fields but
// never creates a second row.
//
// ProviderCallID tracks only the latest attempt; it is overwritten each
// time a new call is placed for the record.
type CallRecord struct {
	ID             int64  `json:"id,omitempty" db:"id"`
	UniqueRecordID string `json:"unique_record_id" db:"unique_record_id"`
	FirstName      string `json:"first_name,omitempty" db:"first_name"`
	LastName       string `json:"last_name,omitempty" db:"last_name"`
	PhoneE164      string `json:"phone_e164" db:"phone_e164"`
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	Status Disposition `json:"status" db:"status"`

	// AttemptCount increments once per placed call and never decreases.
	AttemptCount int        `json:"attempt_count" db:"attempt_count"`
	LastCalledAt *time.Time `json:"last_called_at,omitempty" db:"last_called_at"`

	// Result fields, populated once an end-of-call event resolves.
	ShortSummary          string `json:"short_summary,omitempty" db:"short_summary"`
	RawCallOutcome        string `json:"raw_call_outcome,omitempty" db:"raw_call_outcome"`
	Transcript            string `json:"transcript,omitempty" db:"transcript"`
	RecordingURL          string `json:"recording_url,omitempty" db:"recording_url"`
	ExtractedLocation     string `json:"extracted_location,omitempty" db:"extracted_location"`
	ExtractedAvailability string `json:"extracted_availability,omitempty" db:"extracted_availability"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Disposition classifies a call outcome. PENDING is the only non-terminal
// value; NO_ANSWER, BUSY and FAILED are terminal but retry-eligible.
type Disposition string

const (
	DispositionQualified          Disposition = "QUALIFIED"
	DispositionPartiallyQualified Disposition = "PARTIALLY_QUALIFIED"
	DispositionNotQualified       Disposition = "NOT_QUALIFIED"
	DispositionActiveLooking      Disposition = "ACTIVE_LOOKING"
	DispositionNotLooking         Disposition = "NOT_LOOKING"
	DispositionCallBack           Disposition = "CALL_BACK"
	DispositionNoAnswer           Disposition = "NO_ANSWER"
	DispositionWrongNumber        Disposition = "WRONG_NUMBER"
	DispositionDNC                Disposition = "DNC"
	DispositionVoicemail          Disposition = "VOICEMAIL"
	DispositionBusy               Disposition = "BUSY"
	DispositionFailed             Disposition = "FAILED"
	DispositionPending            Disposition = "PENDING"
)

// AllDispositions lists every member of the closed set, in declaration order.
var AllDispositions = []Disposition{
	DispositionQualified,
	DispositionPartiallyQualified,
	DispositionNotQualified,
	DispositionActiveLooking,
	DispositionNotLooking,
	DispositionCallBack,
	DispositionNoAnswer,
	DispositionWrongNumber,
	DispositionDNC,
	DispositionVoicemail,
	DispositionBusy,
	DispositionFailed,
	DispositionPending,
}

// Valid reports whether d is a member of the closed set.
func (d Disposition) Valid() bool {
	for _, v := range AllDispositions {
		if d == v {
			return true
		}
	}
	return false
}

// Retryable reports whether a record in this state may be offered for
// another call attempt.
func (d Disposition) Retryable() bool {
	switch d {
	case DispositionPending, DispositionNoAnswer, DispositionBusy, DispositionFailed:
		return true
	default:
		return false
	}
}

// CallResult carries everything an end-of-call event resolves for a record.
type CallResult struct {
	Status                Disposition
	ShortSummary          string
	RawCallOutcome        string
	Transcript            string
	RecordingURL          string
	ExtractedLocation     string
	ExtractedAvailability string
}
