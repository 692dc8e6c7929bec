/*
Package metrics provides Prometheus metrics and component health for
Kompromat.

Metrics are package-level collectors registered with the default registry
in init, and exposed by Handler on /metrics.

# Metrics Catalog

Vault:
  - kompromat_access_cards_total (gauge)
  - kompromat_tokens_active (gauge)
  - kompromat_vault_events_total{type}

Authentication:
  - kompromat_auth_attempts_total{result}: success, failure, blocked
  - kompromat_session_validations_total{result}
  - kompromat_tokens_issued_total
  - kompromat_tokens_swept_total, kompromat_sweep_cycles_total
  - kompromat_sweep_duration_seconds

Governor and rate limiting:
  - kompromat_blocked_requests_total
  - kompromat_blocked_clients_total
  - kompromat_governor_tracked_clients (gauge)
  - kompromat_rate_limited_total

Store:
  - kompromat_store_operation_duration_seconds{op}, lock wait included
  - kompromat_store_errors_total{stage}

API:
  - kompromat_api_requests_total{method,status}
  - kompromat_api_request_duration_seconds{route}

# Collector

Gauges that mirror stored state are refreshed by Collector on an interval
rather than on every request:

	collector := metrics.NewCollector(store, governor.Len, 15*time.Second, logger)
	collector.Start()
	defer collector.Stop()

# Health

Components report through RegisterComponent and UpdateComponent. The store
and the API are critical: GetReadiness is "ready" only when both are
registered and healthy. The reaper reports too, but a failing sweep does not
take the vault out of rotation.

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SweepDuration)
*/
package metrics
