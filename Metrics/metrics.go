package Metrics

import (
	"net/http"
	"time"

	"Convoy/Planner"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess    = "success"
	OutcomeRejected   = "rejected"
	OutcomeBusy       = "busy"
	OutcomeStoreError = "store_error"
)

// Recorder owns a dedicated registry for planning metrics. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	Registry *prometheus.Registry

	runs     *prometheus.CounterVec
	trips    *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "convoy_plan_runs_total",
			Help: "Planning runs by outcome.",
		}, []string{"outcome"}),
		trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "convoy_trips_emitted_total",
			Help: "Trips committed by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "convoy_orders_dropped_total",
			Help: "Orders or fragments dropped by diagnostic code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "convoy_plan_duration_seconds",
			Help:    "Wall time of a planning run including the commit.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
	r.Registry.MustRegister(
		r.runs, r.trips, r.dropped, r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRun records one planning run. res may be nil for failed runs.
func (r *Recorder) ObserveRun(outcome string, res *Planner.Result, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.duration.Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	r.ObserveTrips(res.Trips...)
	for _, d := range res.Diagnostics {
		r.dropped.WithLabelValues(string(d.Code)).Inc()
	}
}

func (r *Recorder) ObserveTrips(trips ...Planner.Trip) {
	if r == nil {
		return
	}
	for _, t := range trips {
		r.trips.WithLabelValues(string(t.Kind)).Inc()
	}
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}
