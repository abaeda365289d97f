// Package metrics exposes the inventory service's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomePartial = "partial"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentory_inventory_mutations_total",
		Help: "Item mutations by operation and result code",
	}, []string{"operation", "code"})

	editConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentory_inventory_edit_conflicts_total",
		Help: "Writes rejected because the submitted version was stale",
	}, []string{"operation"})

	bulkItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentory_inventory_bulk_items_total",
		Help: "Bulk edit item outcomes",
	}, []string{"outcome"})

	bulkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rentory_inventory_bulk_duration_seconds",
		Help:    "Wall time of a bulk edit batch",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	serialsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentory_inventory_serials_generated_total",
		Help: "Serial numbers issued from tenant sequences",
	})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentory_inventory_exports_total",
		Help: "Export requests by type and path",
	}, []string{"type", "path"})

	auditFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentory_inventory_audit_failures_total",
		Help: "Audit records that could not be written",
	})
)

// Mutation counts one item mutation. code is empty on success.
func Mutation(operation, code string) {
	if code == "" {
		code = "OK"
	}
	mutationsTotal.WithLabelValues(operation, code).Inc()
}

// EditConflict counts a rejected stale write.
func EditConflict(operation string) {
	editConflictsTotal.WithLabelValues(operation).Inc()
}

// BulkItem counts one processed bulk item.
func BulkItem(outcome string) {
	bulkItemsTotal.WithLabelValues(outcome).Inc()
}

// BulkBatch observes the duration of a bulk edit batch.
func BulkBatch(d time.Duration) {
	bulkDuration.Observe(d.Seconds())
}

// SerialGenerated counts one issued serial number.
func SerialGenerated() {
	serialsGeneratedTotal.Inc()
}

// Export counts an accepted export request.
func Export(exportType, path string) {
	exportsTotal.WithLabelValues(exportType, path).Inc()
}

// AuditFailure counts a swallowed audit write failure.
func AuditFailure() {
	auditFailuresTotal.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
