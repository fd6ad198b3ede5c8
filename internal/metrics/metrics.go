package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "txpipeline"

// Service holds the pipeline's prometheus collectors on a dedicated registry.
// All methods are safe on a nil *Service.
type Service struct {
	Registry *prometheus.Registry

	feeEstimations  *prometheus.CounterVec
	attempts        *prometheus.CounterVec
	inFlight        *prometheus.GaugeVec
	signingDuration *prometheus.HistogramVec
	signatureCache  *prometheus.CounterVec
	staleResults    *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go and process collectors
func New() (*Service, error) {
	registry := prometheus.NewRegistry()

	s := &Service{
		Registry: registry,
		feeEstimations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fee",
			Name:      "estimations_total",
			Help:      "Fee estimations by result.",
		}, []string{"result"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "attempts_total",
			Help:      "Finished pipeline attempts by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "in_flight",
			Help:      "Attempts currently in the Started state.",
		}, []string{"pipeline"}),
		signingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "duration_seconds",
			Help:      "Time spent waiting for the signer.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"kind", "result"}),
		signatureCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "cache_lookups_total",
			Help:      "Signature cache lookups by hit or miss.",
		}, []string{"result"}),
		staleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stale_results_total",
			Help:      "Results discarded because their attempt was superseded.",
		}, []string{"pipeline"}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.feeEstimations,
		s.attempts,
		s.inFlight,
		s.signingDuration,
		s.signatureCache,
		s.staleResults,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Service) ObserveFeeEstimation(result string) {
	if s == nil {
		return
	}
	s.feeEstimations.WithLabelValues(result).Inc()
}

func (s *Service) AttemptStarted(pipeline string) {
	if s == nil {
		return
	}
	s.inFlight.WithLabelValues(pipeline).Inc()
}

// AttemptFinished records the outcome, a failure reason or "success" / "cancelled"
func (s *Service) AttemptFinished(pipeline string, outcome string) {
	if s == nil {
		return
	}
	s.inFlight.WithLabelValues(pipeline).Dec()
	s.attempts.WithLabelValues(pipeline, outcome).Inc()
}

func (s *Service) ObserveSigning(kind string, result string, d time.Duration) {
	if s == nil {
		return
	}
	s.signingDuration.WithLabelValues(kind, result).Observe(d.Seconds())
}

func (s *Service) SignatureCacheLookup(hit bool) {
	if s == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.signatureCache.WithLabelValues(result).Inc()
}

func (s *Service) StaleResult(pipeline string) {
	if s == nil {
		return
	}
	s.staleResults.WithLabelValues(pipeline).Inc()
}
