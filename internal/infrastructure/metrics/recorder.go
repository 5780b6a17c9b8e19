package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comanda"

// Recorder holds the service's Prometheus collectors.
type Recorder struct {
	gatherer prometheus.Gatherer

	ordersCreated     *prometheus.CounterVec
	orderTransitions  *prometheus.CounterVec
	schedulerPasses   prometheus.Histogram
	schedulerDecision *prometheus.CounterVec
	cashClosed        prometheus.Counter
	cashDifference    prometheus.Histogram
}

// NewRecorder registers every collector on a fresh registry together with the Go runtime
// and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewRecorderWith(registry, registry)
}

func NewRecorderWith(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	r := &Recorder{
		gatherer: gatherer,
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created, by order type.",
		}, []string{"order_type"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status changes, by source and target status.",
		}, []string{"from", "to", "manual"}),
		schedulerPasses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pass_duration_seconds",
			Help:      "Time spent evaluating all orders in one scheduler pass.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		schedulerDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "decisions_total",
			Help:      "Scheduler decisions applied, by kind.",
		}, []string{"kind"}),
		cashClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cash",
			Name:      "sessions_closed_total",
			Help:      "Cash register sessions closed.",
		}),
		cashDifference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cash",
			Name:      "close_difference",
			Help:      "Informed minus expected cash at session close.",
			Buckets:   []float64{-100, -20, -5, -1, 0, 1, 5, 20, 100},
		}),
	}

	registerer.MustRegister(
		r.ordersCreated,
		r.orderTransitions,
		r.schedulerPasses,
		r.schedulerDecision,
		r.cashClosed,
		r.cashDifference,
	)

	return r
}

func (r *Recorder) OrderCreated(orderType string) {
	r.ordersCreated.WithLabelValues(orderType).Inc()
}

func (r *Recorder) OrderTransition(from, to string, manual bool) {
	r.orderTransitions.WithLabelValues(from, to, strconv.FormatBool(manual)).Inc()
}

func (r *Recorder) SchedulerPass(duration time.Duration) {
	r.schedulerPasses.Observe(duration.Seconds())
}

func (r *Recorder) SchedulerDecision(kind string) {
	r.schedulerDecision.WithLabelValues(kind).Inc()
}

func (r *Recorder) CashSessionClosed(difference float64) {
	r.cashClosed.Inc()
	r.cashDifference.Observe(difference)
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
