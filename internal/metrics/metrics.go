// Package metrics exports synthesis and HTTP metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"

	"lusocal/internal/calendar"
	"lusocal/internal/model"
)

const defaultNamespace = "lusocal"

// Observer records synthesis runs and API requests.
type Observer struct {
	runs       *promclient.CounterVec
	duration   promclient.Histogram
	events     *promclient.GaugeVec
	skipped    *promclient.CounterVec
	duplicates promclient.Counter
	requests   *promclient.CounterVec
	latency    *promclient.HistogramVec
}

// NewObserver registers the collectors on reg (DefaultRegisterer when nil).
// Registering twice on the same registry reuses the existing collectors.
func NewObserver(namespace string, reg promclient.Registerer) (*Observer, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	o := &Observer{
		runs: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_runs_total",
			Help:      "Calendar synthesis runs by result.",
		}, []string{"result"}),
		duration: promclient.NewHistogram(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Wall time of successful synthesis runs.",
			Buckets:   promclient.DefBuckets,
		}),
		events: promclient.NewGaugeVec(promclient.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_events",
			Help:      "Events in the latest snapshot by type.",
		}, []string{"type"}),
		skipped: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_specs_total",
			Help:      "Configuration entries dropped during synthesis by source.",
		}, []string{"source"}),
		duplicates: promclient.NewCounter(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_events_total",
			Help:      "Events dropped because their id was already present.",
		}),
		requests: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
		latency: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   promclient.DefBuckets,
		}, []string{"route"}),
	}

	var err error
	if o.runs, err = register(reg, o.runs); err != nil {
		return nil, err
	}
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}
	if o.events, err = register(reg, o.events); err != nil {
		return nil, err
	}
	if o.skipped, err = register(reg, o.skipped); err != nil {
		return nil, err
	}
	if o.duplicates, err = register(reg, o.duplicates); err != nil {
		return nil, err
	}
	if o.requests, err = register(reg, o.requests); err != nil {
		return nil, err
	}
	if o.latency, err = register(reg, o.latency); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are promclient.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("register collector: %w", err)
}

// ObserveSynthesis implements calendar.Observer.
func (o *Observer) ObserveSynthesis(r calendar.Report, err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.runs.WithLabelValues("error").Inc()
		o.events.Reset()
		return
	}
	o.runs.WithLabelValues("ok").Inc()
	o.duration.Observe(r.Duration.Seconds())
	for _, t := range model.EventTypes {
		o.events.WithLabelValues(string(t)).Set(float64(r.Counts[t]))
	}
	for _, s := range r.Skipped {
		o.skipped.WithLabelValues(s.Source).Inc()
	}
	o.duplicates.Add(float64(r.Duplicates))
}

// Instrument wraps h, recording its status code and latency under route.
func (o *Observer) Instrument(route string, h http.Handler) http.Handler {
	if o == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		o.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		o.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var _ calendar.Observer = (*Observer)(nil)
