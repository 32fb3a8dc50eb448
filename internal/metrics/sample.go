// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import "strconv"

// RouterSnapshot is the subset of Router state a sampling loop reads
// once per reporting interval; internal/sim supplies it so this package
// never has to import internal/router.
type RouterSnapshot struct {
	ID             int
	RoutedFlits    uint64
	DrainedFlits   uint64
	BufferOccupied map[int]int
	InCongestion   bool
}

// Observe records one RouterSnapshot's counters and gauges. Counters
// only ever increase, so Observe adds the delta between s and the
// caller-supplied prev snapshot of the same router; with a nil prev
// (the first sample) it only sets the gauges and emits no count.
func (r *Registry) Observe(s RouterSnapshot, prev *RouterSnapshot) {
	id := strconv.Itoa(s.ID)

	if prev != nil {
		if d := s.RoutedFlits - prev.RoutedFlits; d > 0 {
			r.RoutedFlitsTotal.WithLabelValues(id).Add(float64(d))
		}
		if d := s.DrainedFlits - prev.DrainedFlits; d > 0 {
			r.DrainedFlitsTotal.WithLabelValues(id).Add(float64(d))
		}
		if s.InCongestion {
			r.CongestionEventsTotal.WithLabelValues(id).Inc()
		}
	}

	for port, n := range s.BufferOccupied {
		r.BufferOccupancy.WithLabelValues(id, strconv.Itoa(port)).Set(float64(n))
	}
}
