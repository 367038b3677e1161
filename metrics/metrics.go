// Package metrics exposes agent lifecycle events as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/eventbus"
)

// Options configure an Observer.
type Options struct {
	// Namespace prefixes every metric name.
	Namespace string
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Observer is an event bus subscriber recording turn, tool and error metrics.
type Observer struct {
	turnsTotal    *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	iterations    *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	toolAttempts  *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	streamChunks  *prometheus.CounterVec
	inFlightTurns prometheus.Gauge

	mu     sync.Mutex
	starts map[string]time.Time // turn id -> turn_started timestamp
}

// NewObserver registers the metrics and returns the observer.
// It panics if the metrics are already registered on the registerer.
func NewObserver(optFns ...func(o *Options)) *Observer {
	opts := Options{Namespace: "miniagent", Registerer: prometheus.DefaultRegisterer}
	for _, fn := range optFns {
		fn(&opts)
	}
	f := promauto.With(opts.Registerer)
	ns := opts.Namespace

	return &Observer{
		turnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "turns_total",
			Help:      "Turns by agent and outcome",
		}, []string{"agent", "status"}),
		turnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "turn_duration_seconds",
			Help:      "Wall time from turn start to its terminal event",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent", "status"}),
		iterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "turn_iterations",
			Help:      "Iterations consumed per finished turn",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}, []string{"agent"}),
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "tool_calls_total",
			Help:      "Finished tool calls by tool and outcome",
		}, []string{"agent", "tool", "status"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "tool_duration_seconds",
			Help:      "Tool call duration including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent", "tool"}),
		toolAttempts: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "tool_attempts",
			Help:      "Attempts per finished tool call",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"agent", "tool"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "errors_total",
			Help:      "Error events by source and whether a retry followed",
		}, []string{"agent", "source", "retrying"}),
		streamChunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "stream_chunks_total",
			Help:      "Streamed text chunks",
		}, []string{"agent"}),
		inFlightTurns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "turns_in_flight",
			Help:      "Turns started and not yet finished",
		}),
		starts: make(map[string]time.Time),
	}
}

// Attach subscribes the observer to every event kind on bus.
func (o *Observer) Attach(bus *eventbus.Bus) {
	bus.SubscribeAll(o.Handle)
}

// Handle records one event. It matches eventbus.Handler.
func (o *Observer) Handle(ev core.Event) error {
	switch ev.Kind {
	case core.EventTurnStarted:
		o.mu.Lock()
		o.starts[ev.TurnID] = ev.Timestamp
		o.mu.Unlock()
		o.inFlightTurns.Inc()
	case core.EventStreamChunk:
		o.streamChunks.WithLabelValues(ev.Agent).Inc()
	case core.EventToolExecutionFinished:
		if ev.Tool == nil {
			return nil
		}
		status := "success"
		if !ev.Tool.Success {
			status = "failure"
		}
		o.toolCalls.WithLabelValues(ev.Agent, ev.Tool.Name, status).Inc()
		o.toolDuration.WithLabelValues(ev.Agent, ev.Tool.Name).Observe(ev.Tool.Duration.Seconds())
		if ev.Tool.Attempts > 0 {
			o.toolAttempts.WithLabelValues(ev.Agent, ev.Tool.Name).Observe(float64(ev.Tool.Attempts))
		}
	case core.EventTurnCompleted:
		o.finishTurn(ev, "completed")
	case core.EventError:
		if ev.Err == nil {
			return nil
		}
		o.errorsTotal.WithLabelValues(ev.Agent, ev.Err.Source, strconv.FormatBool(ev.Err.Retrying)).Inc()
		if ev.IsTerminal() {
			o.finishTurn(ev, "failed")
		}
	}
	return nil
}

func (o *Observer) finishTurn(ev core.Event, status string) {
	o.turnsTotal.WithLabelValues(ev.Agent, status).Inc()
	o.iterations.WithLabelValues(ev.Agent).Observe(float64(ev.Iteration))

	o.mu.Lock()
	start, ok := o.starts[ev.TurnID]
	delete(o.starts, ev.TurnID)
	o.mu.Unlock()
	if !ok {
		return
	}
	o.inFlightTurns.Dec()
	o.turnDuration.WithLabelValues(ev.Agent, status).Observe(ev.Timestamp.Sub(start).Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
