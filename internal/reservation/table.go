// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package reservation implements the per-router output-port reservation
// table backing wormhole switching: a reserved output port is held for
// an entire packet. Once an input port reserves an output, every BODY
// and TAIL flit of that packet rides the same reservation until the
// TAIL releases it.
package reservation

import "noxim.dev/router/internal/errors"

// NotReserved marks an output port with no current reservation holder.
const NotReserved = -1

// Table tracks, for each output port, which input port currently holds
// its reservation (or NotReserved).
type Table struct {
	holder []int
}

// New creates a Table sized for numPorts output ports, all unreserved.
func New(numPorts int) *Table {
	t := &Table{holder: make([]int, numPorts)}
	for i := range t.holder {
		t.holder[i] = NotReserved
	}
	return t
}

// IsAvailable reports whether output port o currently has no reservation
// holder.
func (t *Table) IsAvailable(o int) bool {
	return t.holder[o] == NotReserved
}

// Reserve binds output port o to input port i. Reserving an
// already-held output is a protocol violation: the arbiter must only
// ever call Reserve on a port IsAvailable has just confirmed free, so
// this indicates a bug in the caller rather than a runtime condition to
// recover from.
func (t *Table) Reserve(i, o int) error {
	if t.holder[o] != NotReserved {
		return errors.Errorf(errors.KindProtocol, "output port %d already reserved by input %d (requested by input %d)", o, t.holder[o], i)
	}
	t.holder[o] = i
	return nil
}

// GetOutputPort returns the output port input i currently holds a
// reservation on, or NotReserved if it holds none.
func (t *Table) GetOutputPort(i int) int {
	for o, h := range t.holder {
		if h == i {
			return o
		}
	}
	return NotReserved
}

// HolderOf returns the input port holding output o's reservation, or
// NotReserved.
func (t *Table) HolderOf(o int) int {
	return t.holder[o]
}

// Release clears output port o's reservation, run by the TAIL flit that
// ends the packet occupying it.
func (t *Table) Release(o int) {
	t.holder[o] = NotReserved
}
