package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invitationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_invitations_created_total",
			Help: "Total number of invitations created or refreshed, by scope",
		},
		[]string{"scope"},
	)

	invitationResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_invitation_responses_total",
			Help: "Total number of invitation responses recorded",
		},
		[]string{"status"},
	)

	attendanceOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_attendance_operations_total",
			Help: "Total number of join/leave attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	profilesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_profiles_created_total",
			Help: "Total number of speaker profile create messages processed",
		},
		[]string{"outcome"},
	)

	outboxPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "speaker_outbox_published_total",
			Help: "Total number of outbox messages delivered to the broker",
		},
	)

	outboxRetriedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "speaker_outbox_retried_total",
			Help: "Total number of outbox publish failures scheduled for retry",
		},
	)

	outboxDeadTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "speaker_outbox_dead_total",
			Help: "Total number of outbox messages abandoned after exhausting retries",
		},
	)
)

// RecordInvitationCreated records one create/refresh, scope is "event" or "session"
func RecordInvitationCreated(scope string) {
	invitationsCreatedTotal.WithLabelValues(scope).Inc()
}

// RecordResponse records a settled invitation response
func RecordResponse(status string) {
	invitationResponsesTotal.WithLabelValues(status).Inc()
}

// RecordAttendance records a join or leave attempt and its outcome
func RecordAttendance(operation, outcome string) {
	attendanceOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordProfileCreated records a processed profile message, outcome is one of
// "created", "duplicate", "rejected" or "error"
func RecordProfileCreated(outcome string) {
	profilesCreatedTotal.WithLabelValues(outcome).Inc()
}

// RecordOutboxPublished records one outbox message confirmed by the broker
func RecordOutboxPublished() {
	outboxPublishedTotal.Inc()
}

// RecordOutboxRetried records one publish failure pushed to a later retry
func RecordOutboxRetried() {
	outboxRetriedTotal.Inc()
}

// RecordOutboxDead records one message marked dead
func RecordOutboxDead() {
	outboxDeadTotal.Inc()
}
