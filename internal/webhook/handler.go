// Package webhook receives provider callbacks, verifies their signature,
// and resolves end-of-call reports into call record updates.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"dialout/internal/dialer"
	"dialout/internal/disposition"
	"dialout/internal/records"
	"dialout/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	signatureHeader = "x-vapi-signature"

	// dedupeTTL bounds how long a processed event id blocks redelivery.
	dedupeTTL = 24 * time.Hour

	maxBodySize = 1 << 20
)

// Handler converts provider callbacks into record updates.
//
// The provider retries delivery on non-2xx, so anything we cannot act on
// (unknown record, malformed body with a valid signature) is logged and
// acknowledged rather than bounced.
type Handler struct {
	Store records.Store

	// Secret enables HMAC-SHA256 verification of the signature header.
	// Empty disables verification (local development only).
	Secret string

	// Redis deduplicates redelivered events by provider call id.
	// Nil disables deduplication; UpdateCallResult is idempotent enough
	// that duplicates only cost a write.
	Redis *redis.Client

	Now func() time.Time
}

func (h Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleVapiEvent is the POST /webhook/vapi endpoint.
func (h Handler) HandleVapiEvent(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.Secret != "" && !verifySignature(h.Secret, body, c.GetHeader(signatureHeader)) {
		log.Warn("webhook signature rejected", "remote", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	env, err := dialer.ParseWebhook(body)
	if err != nil {
		log.Warn("webhook body parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	switch env.Message.Type {
	case dialer.EventEndOfCallReport:
		h.handleEndOfCall(c, env)
	case dialer.EventStatusUpdate:
		log.Debug("call status update", "call_id", env.Message.Call.ID, "status", env.Message.Status)
		c.JSON(http.StatusOK, gin.H{"received": true})
	default:
		// hang, function-call and future event types are acknowledged
		// without action.
		log.Debug("ignoring webhook event", "type", env.Message.Type)
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func (h Handler) handleEndOfCall(c *gin.Context, env dialer.WebhookEnvelope) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()
	eoc := env.EndOfCall()

	if eoc.ProviderCallID == "" && eoc.CorrelationID == "" {
		log.Warn("end-of-call report with no call id or correlation id, dropping")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if dup, err := h.alreadyProcessed(ctx, eoc.ProviderCallID); err != nil {
		log.Warn("webhook dedupe check failed, processing anyway", "err", err)
	} else if dup {
		log.Info("duplicate end-of-call report ignored", "call_id", eoc.ProviderCallID)
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	rec, err := h.lookupRecord(ctx, eoc)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			log.Warn("end-of-call report for unknown record",
				"call_id", eoc.ProviderCallID,
				"correlation_id", eoc.CorrelationID,
			)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		log.Error("record lookup failed", "call_id", eoc.ProviderCallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	status := disposition.Resolve(eoc.EndedReason, eoc.Analysis)
	fields := disposition.ExtractFields(eoc.Analysis)

	res := records.CallResult{
		Status:                status,
		ShortSummary:          disposition.SummaryOrFallback(fields.Summary, eoc.EndedReason),
		RawCallOutcome:        eoc.EndedReason,
		Transcript:            eoc.Transcript,
		RecordingURL:          eoc.RecordingURL,
		ExtractedLocation:     fields.Location,
		ExtractedAvailability: fields.Availability,
	}
	// A record found via the correlation fallback may not carry a provider
	// call id yet; attach the one from the event before resolving.
	if rec.ProviderCallID == "" && eoc.ProviderCallID != "" {
		if err := h.Store.MarkCallStarted(ctx, rec.UniqueRecordID, eoc.ProviderCallID); err != nil {
			log.Error("attaching provider call id failed", "unique_record_id", rec.UniqueRecordID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		rec.ProviderCallID = eoc.ProviderCallID
	}

	if err := h.Store.UpdateCallResult(ctx, rec.ProviderCallID, res); err != nil {
		log.Error("call result update failed",
			"unique_record_id", rec.UniqueRecordID,
			"call_id", rec.ProviderCallID,
			"err", err,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	// Marker written only after the result committed: a store failure above
	// leaves the provider's redelivery free to retry instead of being
	// dropped as a duplicate.
	if err := h.markProcessed(ctx, eoc.ProviderCallID); err != nil {
		log.Warn("webhook dedupe marker write failed", "call_id", eoc.ProviderCallID, "err", err)
	}

	log.Info("call resolved",
		"unique_record_id", rec.UniqueRecordID,
		"call_id", rec.ProviderCallID,
		"status", status,
		"ended_reason", eoc.EndedReason,
	)
	c.JSON(http.StatusOK, gin.H{"received": true, "status": status})
}

// lookupRecord resolves the record for an end-of-call report, preferring
// the provider call id and falling back to the metadata correlation id for
// events that arrive before MarkCallStarted committed.
func (h Handler) lookupRecord(ctx context.Context, eoc dialer.EndOfCall) (records.CallRecord, error) {
	if eoc.ProviderCallID != "" {
		rec, err := h.Store.GetByProviderCallID(ctx, eoc.ProviderCallID)
		if err == nil || !errors.Is(err, records.ErrNotFound) {
			return rec, err
		}
	}
	if eoc.CorrelationID != "" {
		return h.Store.GetByUniqueID(ctx, eoc.CorrelationID)
	}
	return records.CallRecord{}, records.ErrNotFound
}

// alreadyProcessed reports whether this event id was seen and fully
// processed before. With no redis client configured it always reports false.
func (h Handler) alreadyProcessed(ctx context.Context, providerCallID string) (bool, error) {
	if h.Redis == nil || providerCallID == "" {
		return false, nil
	}
	n, err := h.Redis.Exists(ctx, dedupeKey(providerCallID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// markProcessed records the event id once its record update has committed.
// Two concurrent deliveries of the same event may both pass the
// alreadyProcessed check; UpdateCallResult is idempotent so the second
// write is a no-op in effect.
func (h Handler) markProcessed(ctx context.Context, providerCallID string) error {
	if h.Redis == nil || providerCallID == "" {
		return nil
	}
	return h.Redis.Set(ctx, dedupeKey(providerCallID), h.now().Unix(), dedupeTTL).Err()
}

func dedupeKey(providerCallID string) string {
	return "webhook:eoc:" + providerCallID
}

func verifySignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}
