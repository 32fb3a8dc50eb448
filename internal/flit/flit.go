// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package flit defines the value types that travel through a router's
// switch: the Flit itself and the RouteData passed to routing. Both
// are plain value types with no behavior tied to router state; a
// routing function touches RouteData only by value.
package flit

import (
	"github.com/google/uuid"

	"noxim.dev/router/internal/mesh"
)

// Type distinguishes a flit's position in its packet.
type Type int

const (
	Head Type = iota
	Body
	Tail
)

func (t Type) String() string {
	switch t {
	case Head:
		return "HEAD"
	case Body:
		return "BODY"
	case Tail:
		return "TAIL"
	default:
		return "UNKNOWN"
	}
}

// Flit is the smallest unit of data moved across one link in one cycle.
// A packet is a contiguous HEAD · BODY* · TAIL sequence; BODY/TAIL flits
// carry no routable header of their own and ride the reservation their
// HEAD established.
type Flit struct {
	// PacketID correlates every flit of one packet independent of the
	// numeric SequenceNo, used by test harnesses to assert wormhole
	// non-interleaving.
	PacketID uuid.UUID

	SrcID, DstID int
	Type         Type
	SequenceNo   uint64
	Payload      []byte

	// InjectedAtCycle is a diagnostic timestamp; the core never reads
	// it, only test harnesses and stats consumers do.
	InjectedAtCycle int64
}

// NewPacketID allocates a fresh packet identifier for a HEAD flit; BODY
// and TAIL flits of the same packet must reuse it.
func NewPacketID() uuid.UUID {
	return uuid.New()
}

// RouteData is the pure input to a RoutingAlgorithm: which node is
// deciding, the packet's endpoints, and the direction it arrived from
// Routing algorithms are functions of RouteData plus
// read-only topology; they hold no reference to router state.
type RouteData struct {
	CurrentID int
	SrcID     int
	DstID     int
	DirIn     mesh.Direction
}
