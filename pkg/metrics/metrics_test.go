package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMutationCounter(t *testing.T) {
	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("update", "EDIT_CONFLICT"))
	Mutation("update", "EDIT_CONFLICT")
	after := testutil.ToFloat64(mutationsTotal.WithLabelValues("update", "EDIT_CONFLICT"))
	assert.Equal(t, before+1, after)

	okBefore := testutil.ToFloat64(mutationsTotal.WithLabelValues("create", "OK"))
	Mutation("create", "")
	assert.Equal(t, okBefore+1, testutil.ToFloat64(mutationsTotal.WithLabelValues("create", "OK")))
}

func TestHandlerExposesInstruments(t *testing.T) {
	BulkItem(OutcomePartial)
	BulkBatch(150 * time.Millisecond)
	SerialGenerated()
	Export("inventory", "sync")
	EditConflict("change_status")
	AuditFailure()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "rentory_inventory_bulk_items_total")
	assert.Contains(t, body, "rentory_inventory_serials_generated_total")
	assert.Contains(t, body, "rentory_inventory_exports_total")
	assert.Contains(t, body, "rentory_inventory_edit_conflicts_total")
}
