package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

var (
	// Registry holds the gateway-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	layerOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "chain",
			Name:      "layer_outcomes_total",
			Help:      "Layer outcomes by layer and result.",
		},
		[]string{"layer", "outcome"},
	)

	layerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gateway",
			Subsystem: "chain",
			Name:      "layer_duration_seconds",
			Help:      "Duration of individual verification layers.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"layer"},
	)

	verdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "chain",
			Name:      "verdicts_total",
			Help:      "Issued verdicts by outcome.",
		},
		[]string{"approved"},
	)

	quorumResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "quorum",
			Name:      "resolutions_total",
			Help:      "Quorum resolutions by result.",
		},
		[]string{"result"},
	)

	providerFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "quorum",
			Name:      "provider_faults_total",
			Help:      "Provider replies excluded from voting.",
		},
		[]string{"provider"},
	)

	escrowTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "escrow",
			Name:      "transitions_total",
			Help:      "Escrow state transitions.",
		},
		[]string{"to"},
	)

	escrowSettlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "escrow",
			Name:      "settlements_total",
			Help:      "Settled escrows by final status.",
		},
		[]string{"final_status"},
	)
)

func init() {
	Registry.MustRegister(
		layerOutcomes,
		layerDuration,
		verdicts,
		quorumResolutions,
		providerFaults,
		escrowTransitions,
		escrowSettlements,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ChainObserver implements the evaluation-path metric hooks.
type ChainObserver struct{}

func (ChainObserver) ObserveLayer(layer domain.LayerID, outcome domain.LayerOutcome, elapsed time.Duration) {
	label := strconv.Itoa(int(layer))
	layerOutcomes.WithLabelValues(label, string(outcome)).Inc()
	if elapsed > 0 {
		layerDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}

func (ChainObserver) ObserveVerdict(approved bool) {
	verdicts.WithLabelValues(strconv.FormatBool(approved)).Inc()
}

// RecordQuorumResolution records one resolver outcome: "quorum", or a
// failure kind such as "insufficient_quorum".
func RecordQuorumResolution(result string) {
	if result == "" {
		result = "unknown"
	}
	quorumResolutions.WithLabelValues(result).Inc()
}

// RecordProviderFault records one excluded provider reply.
func RecordProviderFault(provider string) {
	if provider == "" {
		provider = "unknown"
	}
	providerFaults.WithLabelValues(provider).Inc()
}

// RecordEscrowTransition records one state transition.
func RecordEscrowTransition(to domain.EscrowState) {
	escrowTransitions.WithLabelValues(string(to)).Inc()
}

// RecordEscrowSettlement records one terminal settlement.
func RecordEscrowSettlement(status domain.FinalStatus) {
	escrowSettlements.WithLabelValues(string(status)).Inc()
}
