// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes router-core counters and gauges to
// Prometheus. Collection is opt-in: code that doesn't hold a *Registry
// never touches prometheus at all, matching how the router core's
// PowerRecorder is likewise an optional collaborator.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric this module publishes, registered
// against a single prometheus.Registerer so a caller can mount it under
// whatever HTTP path or registry it already runs.
type Registry struct {
	RoutedFlitsTotal      *prometheus.CounterVec
	DrainedFlitsTotal     *prometheus.CounterVec
	BufferOccupancy       *prometheus.GaugeVec
	ReservationConflicts  *prometheus.CounterVec
	DeadlockWarningsTotal *prometheus.CounterVec
	CongestionEventsTotal *prometheus.CounterVec
}

// NewRegistry creates and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		RoutedFlitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "noxim",
			Name:      "routed_flits_total",
			Help:      "Flits forwarded through a non-LOCAL output port, by router id.",
		}, []string{"router_id"}),
		DrainedFlitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "noxim",
			Name:      "drained_flits_total",
			Help:      "Flits delivered to a router's LOCAL port, by router id.",
		}, []string{"router_id"}),
		BufferOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "noxim",
			Name:      "buffer_occupancy",
			Help:      "Current flit count in a router's per-port input buffer.",
		}, []string{"router_id", "port"}),
		ReservationConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "noxim",
			Name:      "reservation_conflicts_total",
			Help:      "Attempts to reserve an output port that was already held.",
		}, []string{"router_id"}),
		DeadlockWarningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "noxim",
			Name:      "deadlock_warnings_total",
			Help:      "CheckDeadlock advisories raised, by router id.",
		}, []string{"router_id"}),
		CongestionEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "noxim",
			Name:      "congestion_events_total",
			Help:      "Cycles a router reported InCongestion() true, by router id.",
		}, []string{"router_id"}),
	}
	reg.MustRegister(
		r.RoutedFlitsTotal,
		r.DrainedFlitsTotal,
		r.BufferOccupancy,
		r.ReservationConflicts,
		r.DeadlockWarningsTotal,
		r.CongestionEventsTotal,
	)
	return r
}
