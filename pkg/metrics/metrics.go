package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultBlocked = "blocked"
)

var (
	// Vault metrics
	AccessCardsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kompromat_access_cards_total",
			Help: "Number of access cards configured for the vault",
		},
	)

	TokensActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kompromat_tokens_active",
			Help: "Number of session tokens currently stored (including not yet swept expired ones)",
		},
	)

	// Authentication metrics
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompromat_auth_attempts_total",
			Help: "Access card authentication attempts by result",
		},
		[]string{"result"},
	)

	SessionValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompromat_session_validations_total",
			Help: "Session token validations by result",
		},
		[]string{"result"},
	)

	TokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kompromat_tokens_issued_total",
			Help: "Total number of session tokens issued",
		},
	)

	TokensSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kompromat_tokens_swept_total",
			Help: "Total number of expired session tokens removed by the reaper",
		},
	)

	SweepCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kompromat_sweep_cycles_total",
			Help: "Total number of expired token sweeps",
		},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kompromat_sweep_duration_seconds",
			Help:    "Time taken by one expired token sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Governor metrics
	BlockedRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kompromat_blocked_requests_total",
			Help: "Requests rejected because the client is blocked by the login governor",
		},
	)

	BlockedClientsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kompromat_blocked_clients_total",
			Help: "Clients that reached the authentication failure threshold",
		},
	)

	GovernorTrackedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kompromat_governor_tracked_clients",
			Help: "Clients with a recorded authentication failure",
		},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kompromat_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	VaultEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompromat_vault_events_total",
			Help: "Vault audit events by type",
		},
		[]string{"type"},
	)

	// Store metrics
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kompromat_store_operation_duration_seconds",
			Help:    "Key store operation duration in seconds, including lock wait",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompromat_store_errors_total",
			Help: "Fatal key store errors by stage",
		},
		[]string{"stage"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompromat_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kompromat_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(AccessCardsTotal)
	prometheus.MustRegister(TokensActive)
	prometheus.MustRegister(AuthAttemptsTotal)
	prometheus.MustRegister(SessionValidationsTotal)
	prometheus.MustRegister(TokensIssuedTotal)
	prometheus.MustRegister(TokensSweptTotal)
	prometheus.MustRegister(SweepCyclesTotal)
	prometheus.MustRegister(SweepDuration)
	prometheus.MustRegister(BlockedRequestsTotal)
	prometheus.MustRegister(BlockedClientsTotal)
	prometheus.MustRegister(GovernorTrackedClients)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(VaultEventsTotal)
	prometheus.MustRegister(StoreOperationDuration)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
