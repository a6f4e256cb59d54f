package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	before := testutil.ToFloat64(httpRequests.WithLabelValues("test_endpoint"))
	IncHTTP("test_endpoint")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("test_endpoint")))

	before = testutil.ToFloat64(availabilityQueries)
	IncAvailabilityQuery()
	assert.Equal(t, before+1, testutil.ToFloat64(availabilityQueries))

	before = testutil.ToFloat64(appointmentsCreated)
	IncAppointmentCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(appointmentsCreated))

	before = testutil.ToFloat64(paymentsConfirmed)
	IncPaymentConfirmed()
	assert.Equal(t, before+1, testutil.ToFloat64(paymentsConfirmed))
}

func TestAddPaymentsExpired(t *testing.T) {
	before := testutil.ToFloat64(paymentsExpired)

	AddPaymentsExpired(0)
	AddPaymentsExpired(-3)
	assert.Equal(t, before, testutil.ToFloat64(paymentsExpired))

	AddPaymentsExpired(4)
	assert.Equal(t, before+4, testutil.ToFloat64(paymentsExpired))
}
