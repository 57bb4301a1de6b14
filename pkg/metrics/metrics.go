// Copyright 2025 Certen Protocol
//
// Process-wide Prometheus metrics. Registered once at startup
// (cmd/ledgerd/main.go) against the default registry and served over
// /metrics, matching the lite-client's promauto-free, explicit-registration
// style (accumulate-lite-client-2/liteclient/types/metrics.go) generalized
// from RPC counters to consensus/verification counters.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every counter/histogram/gauge the ledger exposes. A
// fresh Registry is created at startup and registered against a
// prometheus.Registerer; tests may use NewUnregistered to exercise the
// instruments without touching a global registry.
type Registry struct {
	ConsensusViewChanges   prometheus.Counter
	ConsensusBlocksCommitted prometheus.Counter
	ConsensusViewDuration  prometheus.Histogram

	OracleVotesRecorded *prometheus.CounterVec // label: outcome (approve|reject)
	OracleJoinedTotal   prometheus.Gauge

	VerificationQuorumLatency prometheus.Histogram
	VerificationOutcomes      *prometheus.CounterVec // label: state (quorum|rejected|timed_out)

	RateGuardVerdicts *prometheus.CounterVec // label: verdict

	DNASpawnTotal   prometheus.Counter
	DNALoansOpen    prometheus.Gauge
	DNAClaimsPaid   prometheus.Counter
	DNAClaimsDenied *prometheus.CounterVec // label: reason
}

// New builds a Registry and registers every instrument against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		ConsensusViewChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_consensus_view_changes_total",
			Help: "Number of HotStuff-2 view changes triggered across all engines.",
		}),
		ConsensusBlocksCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_consensus_blocks_committed_total",
			Help: "Number of blocks committed by this validator.",
		}),
		ConsensusViewDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_consensus_view_duration_seconds",
			Help:    "Wall-clock duration of a consensus view from start to commit or timeout.",
			Buckets: prometheus.DefBuckets,
		}),
		OracleVotesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_oracle_votes_total",
			Help: "Oracle votes recorded, partitioned by outcome.",
		}, []string{"outcome"}),
		OracleJoinedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_oracle_joined",
			Help: "Number of oracles currently joined to the session manager.",
		}),
		VerificationQuorumLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_verification_quorum_latency_seconds",
			Help:    "Latency from request submission to quorum (or terminal rejection/timeout).",
			Buckets: prometheus.DefBuckets,
		}),
		VerificationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_verification_outcomes_total",
			Help: "Verification requests reaching a terminal state, partitioned by state.",
		}, []string{"state"}),
		RateGuardVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_rateguard_verdicts_total",
			Help: "Rate guard check/spawn verdicts, partitioned by verdict.",
		}, []string{"verdict"}),
		DNASpawnTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_dna_spawn_total",
			Help: "Number of successful Spawn transactions.",
		}),
		DNALoansOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_dna_loans_open",
			Help: "Number of loans currently in the LoanOutstanding state.",
		}),
		DNAClaimsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_dna_claims_paid_total",
			Help: "Number of insurance claims successfully paid out.",
		}),
		DNAClaimsDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_dna_claims_denied_total",
			Help: "Number of insurance claims denied, partitioned by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.ConsensusViewChanges,
		m.ConsensusBlocksCommitted,
		m.ConsensusViewDuration,
		m.OracleVotesRecorded,
		m.OracleJoinedTotal,
		m.VerificationQuorumLatency,
		m.VerificationOutcomes,
		m.RateGuardVerdicts,
		m.DNASpawnTotal,
		m.DNALoansOpen,
		m.DNAClaimsPaid,
		m.DNAClaimsDenied,
	)
	return m
}

// NewUnregistered builds a Registry against a private prometheus.Registry,
// for use in tests that only want to assert instrument behavior.
func NewUnregistered() *Registry {
	return New(prometheus.NewRegistry())
}
