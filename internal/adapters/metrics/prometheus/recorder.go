// Package prometheus records dispatch activity as Prometheus metrics.
package prometheus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/uap-cli/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "uap"

// Recorder implements ports.DispatchObserver on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	turns    *prometheus.CounterVec
	degraded *prometheus.CounterVec
	duration *prometheus.HistogramVec
	handoffs *prometheus.CounterVec
}

var _ ports.DispatchObserver = (*Recorder)(nil)

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "turns_total",
				Help:      "Agent turns by agent and reply parse strategy.",
			},
			[]string{"agent", "strategy"},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "degraded_total",
				Help:      "Agent turns whose reply fell back to raw text.",
			},
			[]string{"agent"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "turn_duration_seconds",
				Help:      "Wall time of the model call for one turn.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent"},
		),
		handoffs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handoffs_total",
				Help:      "Handoffs between agents.",
			},
			[]string{"from", "to"},
		),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveTurn(obs ports.TurnObservation) {
	r.turns.WithLabelValues(obs.AgentID, obs.Strategy).Inc()
	if obs.Degraded {
		r.degraded.WithLabelValues(obs.AgentID).Inc()
	}
	r.duration.WithLabelValues(obs.AgentID).Observe(obs.Duration.Seconds())
}

func (r *Recorder) ObserveHandoff(fromAgent, toAgent string) {
	r.handoffs.WithLabelValues(fromAgent, toAgent).Inc()
}

// WriteTextfile writes every metric in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
