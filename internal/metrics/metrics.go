// Package metrics holds the Prometheus collectors of the mirror layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	SnapshotsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_snapshots_total",
			Help: "Total number of remote snapshots applied to a mirror store",
		},
		[]string{"store"},
	)

	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_decode_failures_total",
			Help: "Total number of remote records skipped because they could not be decoded",
		},
		[]string{"store"},
	)

	SubscriptionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_subscription_errors_total",
			Help: "Total number of subscription-level errors reported by the remote store",
		},
		[]string{"store"},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_mutations_total",
			Help: "Total number of write-through mutations by operation and result",
		},
		[]string{"store", "op", "result"}, // op: "add", "update", "remove"
	)

	Items = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mirror_items",
			Help: "Current number of entities held by a mirror store",
		},
		[]string{"store"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_active_sessions",
			Help: "Current number of signed-in users with live cart and order mirrors",
		},
	)

	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_handler_panics_total",
			Help: "Total number of HTTP handler panics turned into 500 answers",
		},
		[]string{"route"},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_stream_clients",
			Help: "Current number of WebSocket clients receiving live lists",
		},
	)
)

// MutationResult returns the result label for err.
func MutationResult(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
