package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts HTTP requests by route and status.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records request latency in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// StockFallbacks counts stock lookups answered from the local table
	// because the ERP was unavailable or the product had no ERP identifiers.
	StockFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erp_stock_fallback_total",
			Help: "Stock lookups served from local data instead of the ERP",
		},
		[]string{"reason"},
	)

	// CatalogSource counts catalog reads by where the data came from.
	CatalogSource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reads_total",
			Help: "Catalog reads by source (erp, local, cache)",
		},
		[]string{"source"},
	)

	// WebhookEvents counts processor events by type and outcome.
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// OrdersCreated counts finalized orders.
	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created from successful payments",
		},
	)

	// ERPSyncFailures counts inventory adjustments the ERP rejected.
	ERPSyncFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erp_inventory_sync_failures_total",
			Help: "Inventory adjustments that failed against the ERP",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		StockFallbacks,
		CatalogSource,
		WebhookEvents,
		OrdersCreated,
		ERPSyncFailures,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
