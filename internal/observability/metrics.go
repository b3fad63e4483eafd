package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the discovery rule processing pipeline.

var (
	// ProcessDuration times a full S1-S8 Process invocation.
	ProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lld_process_duration_seconds",
			Help:    "Time taken to run one rule through the discovery pipeline",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"rule_id", "outcome"}, // outcome: ok|error|locked|missing
	)

	ProcessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lld_process_total",
			Help: "Total number of pipeline process invocations",
		},
		[]string{"rule_id", "outcome"},
	)

	// RowsExtracted counts payload rows surviving filter evaluation.
	RowsExtracted = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lld_rows_extracted",
			Help:    "Number of rows surviving filter evaluation per process invocation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"rule_id"},
	)

	RowsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lld_rows_discarded_total",
			Help: "Total number of payload rows dropped by filter evaluation or macro resolution",
		},
		[]string{"rule_id", "reason"}, // reason: missing_macro (one per macro a row lacks) | eval_error (one per row whose filter evaluation failed); rows the filter evaluates to fail are not counted
	)

	// GateContention counts dropped values because a rule was already
	// mid-process under the single-writer gate.
	GateContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lld_gate_contention_total",
			Help: "Total number of values dropped because a rule was already locked",
		},
		[]string{"rule_id"},
	)

	// RuleLoadDuration times the rule/filter/macro-path load stages.
	RuleLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lld_rule_load_duration_seconds",
			Help:    "Time taken to load a rule's filter and macro paths",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"stage"}, // stage: rule|filter|macro_paths
	)

	RulesActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lld_rules_active",
			Help: "Number of catalog rules by state",
		},
		[]string{"state"}, // state: normal|not_supported
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lld_state_transitions_total",
			Help: "Total number of rule state transitions written back by the pipeline",
		},
		[]string{"rule_id", "to_state"},
	)

	EventsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lld_events_emitted_total",
			Help: "Total number of internal state-transition events emitted",
		},
	)

	ReconcileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lld_reconcile_errors_total",
			Help: "Total number of non-fatal errors returned by the reconciler fan-out",
		},
		[]string{"rule_id"},
	)
)
