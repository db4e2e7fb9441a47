package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Message consumption metrics
	messagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"queue", "type"},
	)

	// Enrichment metrics
	envelopesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_envelopes_published_total",
			Help: "Total number of notification envelopes published for dispatch",
		},
		[]string{"type"},
	)

	enrichmentDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_enrichment_dropped_total",
			Help: "Total number of events dropped with zero fan-out",
		},
		[]string{"queue", "reason"},
	)

	recipientsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_recipients_skipped_total",
			Help: "Total number of recipients skipped during fan-out",
		},
		[]string{"type", "reason"},
	)

	// Email sending metrics
	emailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_emails_sent_total",
			Help: "Total number of emails sent successfully",
		},
		[]string{"type", "provider"},
	)

	emailsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_emails_failed_total",
			Help: "Total number of failed email sends",
		},
		[]string{"type", "provider", "error_type"},
	)

	emailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_email_send_duration_seconds",
			Help:    "Email sending duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"type", "provider"},
	)

	// Processing metrics
	messageProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_message_processing_duration_seconds",
			Help:    "Message processing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"queue"},
	)

	// Idempotency metrics
	idempotencyHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_idempotency_hits_total",
			Help: "Total number of duplicate envelopes detected (idempotency hits)",
		},
	)

	idempotencyMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_idempotency_misses_total",
			Help: "Total number of new envelopes processed (idempotency misses)",
		},
	)
)

// RecordMessageConsumed records a consumed message
func RecordMessageConsumed(queue, messageType string) {
	messagesConsumedTotal.WithLabelValues(queue, messageType).Inc()
}

// RecordEnvelopePublished records one envelope handed to the dispatch queue
func RecordEnvelopePublished(messageType string) {
	envelopesPublishedTotal.WithLabelValues(messageType).Inc()
}

// RecordEnrichmentDropped records an event acknowledged with zero fan-out
func RecordEnrichmentDropped(queue, reason string) {
	enrichmentDroppedTotal.WithLabelValues(queue, reason).Inc()
}

// RecordRecipientSkipped records a single recipient excluded from fan-out
func RecordRecipientSkipped(messageType, reason string) {
	recipientsSkippedTotal.WithLabelValues(messageType, reason).Inc()
}

// RecordEmailSent records a successfully sent email
func RecordEmailSent(messageType, provider string, duration time.Duration) {
	emailsSentTotal.WithLabelValues(messageType, provider).Inc()
	emailSendDuration.WithLabelValues(messageType, provider).Observe(duration.Seconds())
}

// RecordEmailFailed records a failed email send
func RecordEmailFailed(messageType, provider, errorType string) {
	emailsFailedTotal.WithLabelValues(messageType, provider, errorType).Inc()
}

// RecordMessageProcessing records message processing duration
func RecordMessageProcessing(queue string, duration time.Duration) {
	messageProcessingDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// RecordIdempotencyHit records an idempotency hit (duplicate envelope)
func RecordIdempotencyHit() {
	idempotencyHitsTotal.Inc()
}

// RecordIdempotencyMiss records an idempotency miss (new envelope)
func RecordIdempotencyMiss() {
	idempotencyMissesTotal.Inc()
}
