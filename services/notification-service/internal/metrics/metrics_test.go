package metrics

import (
	"testing"
	"time"
)

// These tests are lightweight sanity checks to ensure that
// metrics functions can be called without panicking.

func TestRecordMessageConsumed(t *testing.T) {
	RecordMessageConsumed("booking.created", "BOOKING_CONFIRMED")
}

func TestRecordEnrichment(t *testing.T) {
	RecordEnvelopePublished("EVENT_CANCELLED")
	RecordEnrichmentDropped("event.cancelled", "event_unavailable")
	RecordRecipientSkipped("EVENT_CANCELLED", "user_lookup_failed")
}

func TestRecordEmailSentAndFailed(t *testing.T) {
	RecordEmailSent("BOOKING_CONFIRMED", "smtp", 150*time.Millisecond)
	RecordEmailFailed("BOOKING_CONFIRMED", "smtp", "provider_error")
}

func TestRecordProcessingAndIdempotency(t *testing.T) {
	RecordMessageProcessing("notification.email", 200*time.Millisecond)
	RecordIdempotencyHit()
	RecordIdempotencyMiss()
}
