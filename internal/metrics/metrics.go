package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agendapro"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	availabilityQueries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_queries_total",
		Help:      "Slot availability computations.",
	})

	appointmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appointments_created_total",
		Help:      "Appointments booked by clients.",
	})

	paymentsConfirmed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_confirmed_total",
		Help:      "Subscription payments confirmed by an admin.",
	})

	paymentsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_expired_total",
		Help:      "Pending payments expired by the sweep.",
	})
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, availabilityQueries, appointmentsCreated, paymentsConfirmed, paymentsExpired)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncAvailabilityQuery() {
	availabilityQueries.Inc()
}

func IncAppointmentCreated() {
	appointmentsCreated.Inc()
}

func IncPaymentConfirmed() {
	paymentsConfirmed.Inc()
}

func AddPaymentsExpired(n int64) {
	if n > 0 {
		paymentsExpired.Add(float64(n))
	}
}
