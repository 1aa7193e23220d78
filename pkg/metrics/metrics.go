package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emojiforge"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// ProfilesEnsured counts EnsureProfile results: existing, created, raced, failed.
	ProfilesEnsured = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "profiles_ensured_total", Help: "Profile provisioning calls by result."},
		[]string{"result"},
	)
	ShadowAuthOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "shadow_auth_outcomes_total", Help: "Shadow auth user sync outcomes by status."},
		[]string{"status"},
	)
	CreditOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "credit_operations_total", Help: "Credit ledger operations by operation and result."},
		[]string{"op", "result"},
	)
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "generations_total", Help: "Emoji generation attempts by result."},
		[]string{"result"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "webhook_events_total", Help: "Identity webhook deliveries by event type and result."},
		[]string{"type", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(ProfilesEnsured)
	reg.MustRegister(ShadowAuthOutcomes)
	reg.MustRegister(CreditOperations)
	reg.MustRegister(Generations)
	reg.MustRegister(WebhookEvents)
}
