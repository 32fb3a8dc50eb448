// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package router implements the per-node tick engine: admission over an
// alternating-bit link protocol, wormhole reservation and forwarding,
// and the buffer/NoP telemetry that feeds adaptive selection. A Router
// owns its buffers and reservation table outright; it
// only ever reads another router's state through the signal wires
// Connect sets up, and only ever writes the wires it owns, so driving a
// whole mesh is a two-phase Compute-then-Commit sweep with no locking.
package router

import (
	"math/rand"

	"noxim.dev/router/internal/buffer"
	"noxim.dev/router/internal/errors"
	"noxim.dev/router/internal/flit"
	"noxim.dev/router/internal/logging"
	"noxim.dev/router/internal/mesh"
	"noxim.dev/router/internal/reservation"
	"noxim.dev/router/internal/routing"
	"noxim.dev/router/internal/selection"
	"noxim.dev/router/internal/signal"
)

// ChannelStatus is one entry of a NoPData snapshot: whether the
// reporting router's reservation table has that output direction
// available, and how many free slots its buffer in that direction
// reports.
type ChannelStatus struct {
	FreeSlots int
	Available bool
}

// NoPData is what a router broadcasts about itself once per cycle for
// its neighbors' one-hop lookahead scoring.
// It is identical on all four cardinal outputs; a neighbor's benefit
// comes from reading ITS neighbor's NoPData, not from which port it
// arrived on.
type NoPData struct {
	SenderID int
	Channel  [mesh.NumCardinal]ChannelStatus
}

// Link is one directed signal bundle between two ports: a request bit,
// the flit payload, and the acknowledgement bit flowing back, all
// delta-cycled. The sender writes Req and Flit; the
// receiver writes Ack.
type Link struct {
	Req  *signal.Wire[int]
	Flit *signal.Wire[flit.Flit]
	Ack  *signal.Wire[int]
}

// NewLink creates an idle link: no pending request, empty flit, no ack.
func NewLink() *Link {
	return &Link{
		Req:  signal.NewWire(0),
		Flit: signal.NewWire(flit.Flit{}),
		Ack:  signal.NewWire(0),
	}
}

// PowerRecorder counts simulated events for later reporting; it is an
// event counter, not a numeric power model. A nil
// PowerRecorder passed to New is replaced with a no-op implementation.
type PowerRecorder interface {
	Buffering()
	EndToEnd()
	Leakage()
	Crossbar()
	Link()
	Routing()
	Selection()
}

type nullPower struct{}

func (nullPower) Buffering() {}
func (nullPower) EndToEnd()  {}
func (nullPower) Leakage()   {}
func (nullPower) Crossbar()  {}
func (nullPower) Link()      {}
func (nullPower) Routing()   {}
func (nullPower) Selection() {}

// CountingPower is the PowerRecorder internal/sim builds every router
// with: it tallies how many times each event fired and nothing else.
type CountingPower struct {
	Counts struct {
		Buffering, EndToEnd, Leakage, Crossbar, Link, Routing, Selection uint64
	}
}

func (p *CountingPower) Buffering() { p.Counts.Buffering++ }
func (p *CountingPower) EndToEnd()  { p.Counts.EndToEnd++ }
func (p *CountingPower) Leakage()   { p.Counts.Leakage++ }
func (p *CountingPower) Crossbar()  { p.Counts.Crossbar++ }
func (p *CountingPower) Link()      { p.Counts.Link++ }
func (p *CountingPower) Routing()   { p.Counts.Routing++ }
func (p *CountingPower) Selection() { p.Counts.Selection++ }

// Config is the static configuration a Router is built with.
type Config struct {
	ID                int
	Topology          mesh.Topology
	BufferCapacity    int
	DeadlockThreshold int
	RoutingAlgorithm  string
	SelectionStrategy string
	DyadThreshold     float64
	RNGSeed           int64

	// MaxVolumeToBeDrained, when non-zero, bounds how many flits the
	// whole mesh (via a shared DrainedVolume counter) counts as
	// delivered to LOCAL ports; a router that forwards a flit to LOCAL
	// once the counter has reached it does not count that flit and
	// sets StopRequested.
	MaxVolumeToBeDrained int
	// DrainedVolume is a mesh-wide shared counter of flits delivered to
	// LOCAL ports; pass the same pointer to every router's Config. It is
	// required for MaxVolumeToBeDrained to take effect.
	DrainedVolume *uint64

	// UseRadioHub, HasRadioHub and SameRadioHub implement the HUB
	// special case in routing: when the
	// current router and the destination both sit behind a radio hub
	// that isn't shared, routing bypasses the registered algorithm entirely and
	// heads for HUB. HasRadioHub/SameRadioHub are nil-safe; leaving
	// UseRadioHub false skips the check altogether.
	UseRadioHub  bool
	HasRadioHub  func(id int) bool
	SameRadioHub func(a, b int) bool
}

// Router is one mesh node's tick engine.
type Router struct {
	id   int
	topo mesh.Topology
	cfg  Config

	buffers [mesh.NumPorts]*buffer.Buffer
	resv    *reservation.Table

	currentLevelRx [mesh.NumPorts]int
	currentLevelTx [mesh.NumPorts]int

	rx [mesh.NumPorts]*Link
	tx [mesh.NumPorts]*Link

	freeSlotsPub [mesh.NumCardinal]*signal.Wire[int]
	freeSlotsSub [mesh.NumCardinal]*signal.Wire[int]
	nopPub       *signal.Wire[NoPData]
	nopSub       [mesh.NumCardinal]*signal.Wire[NoPData]

	// localDrainLevel/hubDrainLevel track the consumer side of the ABP
	// handshake on the stubbed LOCAL/HUB egress links, standing in for
	// the out-of-core traffic generator and radio hub.
	localDrainLevel int
	hubDrainLevel   int

	startFromPort int
	rng           *rand.Rand

	routingAlg      routing.Algorithm
	selectionPolicy selection.Policy

	logger *logging.Logger
	power  PowerRecorder

	routedFlits  uint64
	localDrained uint64
	stopped      bool
}

// New builds a Router for cfg. Its four cardinal buffers start disabled
// wherever cfg.Topology puts it on the mesh edge; Connect
// re-enables a direction implicitly by giving it somewhere to go, but
// callers must still call Connect for every interior link.
func New(cfg Config, logger *logging.Logger, power PowerRecorder) (*Router, error) {
	alg, ok := routing.Lookup(cfg.RoutingAlgorithm)
	if !ok {
		return nil, errors.Errorf(errors.KindConfiguration, "unknown routing algorithm %q", cfg.RoutingAlgorithm)
	}
	pol, ok := selection.Lookup(cfg.SelectionStrategy)
	if !ok {
		return nil, errors.Errorf(errors.KindConfiguration, "unknown selection strategy %q", cfg.SelectionStrategy)
	}
	if power == nil {
		power = nullPower{}
	}

	r := &Router{
		id:              cfg.ID,
		topo:            cfg.Topology,
		cfg:             cfg,
		resv:            reservation.New(mesh.NumPorts),
		startFromPort:   int(mesh.Local),
		rng:             rand.New(rand.NewSource(cfg.RNGSeed)),
		routingAlg:      alg,
		selectionPolicy: pol,
		logger:          logger,
		power:           power,
		nopPub:          signal.NewWire(NoPData{SenderID: cfg.ID}),
	}
	for i := 0; i < mesh.NumPorts; i++ {
		r.buffers[i] = buffer.New(cfg.BufferCapacity, cfg.DeadlockThreshold)
		r.rx[i] = NewLink()
		r.tx[i] = NewLink()
	}
	for d := 0; d < mesh.NumCardinal; d++ {
		r.freeSlotsPub[d] = signal.NewWire(cfg.BufferCapacity)
		r.freeSlotsSub[d] = signal.NewWire(cfg.BufferCapacity)
		r.nopSub[d] = signal.NewWire(NoPData{SenderID: mesh.NotValid})
		if cfg.Topology.IsBoundary(cfg.ID, mesh.Direction(d)) {
			r.buffers[d].Disable()
		}
	}
	return r, nil
}

// ID returns this router's mesh node id.
func (r *Router) ID() int { return r.id }

// Connect wires a and b as neighbors, with b lying in direction dir
// from a. It replaces both routers' rx/tx links and buffer-telemetry
// wires for that pair of ports, and re-enables whichever side's buffer
// New had disabled under the assumption it sat on a mesh edge.
func Connect(a, b *Router, dir mesh.Direction) {
	back := mesh.Reflex(dir)

	toB := NewLink()
	a.tx[dir] = toB
	b.rx[back] = toB

	toA := NewLink()
	b.tx[back] = toA
	a.rx[dir] = toA

	a.freeSlotsSub[dir] = b.freeSlotsPub[back]
	b.freeSlotsSub[back] = a.freeSlotsPub[dir]
	a.nopSub[dir] = b.nopPub
	b.nopSub[back] = a.nopPub

	if !a.buffers[dir].Enabled() {
		a.buffers[dir] = buffer.New(a.cfg.BufferCapacity, a.cfg.DeadlockThreshold)
	}
	if !b.buffers[back].Enabled() {
		b.buffers[back] = buffer.New(b.cfg.BufferCapacity, b.cfg.DeadlockThreshold)
	}
}

// Compute runs one cycle's worth of logic: admission, buffer/NoP
// telemetry publication, reservation arbitration and forwarding. It
// only ever reads wires at the values their last Commit published and
// only ever writes the staged side of wires it owns, so every router in
// a mesh can run Compute in any order before Commit runs for all of
// them.
func (r *Router) Compute() {
	r.rxProcess()
	r.bufferMonitor()
	r.txProcess()
	for i := 0; i < mesh.NumPorts; i++ {
		r.buffers[i].Tick()
	}
}

// Commit publishes every wire this router writes, making Compute's
// effects visible to neighbors (and to this router's own next Compute)
// starting next cycle.
//
// LOCAL and HUB have no neighbor router whose own Commit would advance
// their transmit-side ack the way Connect wires a cardinal neighbor's
// rx to do; the out-of-core traffic generator and radio hub they stand
// in for are modeled as always-ready sinks, so Commit acks their
// request immediately here rather than leaving it to whatever drains
// them.
func (r *Router) Commit() {
	for i := 0; i < mesh.NumPorts; i++ {
		r.rx[i].Ack.Commit()
		r.tx[i].Req.Commit()
		r.tx[i].Flit.Commit()
	}
	for _, d := range [2]mesh.Direction{mesh.Local, mesh.Hub} {
		r.tx[d].Ack.Write(r.tx[d].Req.Read())
		r.tx[d].Ack.Commit()
	}
	for d := 0; d < mesh.NumCardinal; d++ {
		r.freeSlotsPub[d].Commit()
	}
	r.nopPub.Commit()
}

func (r *Router) rxProcess() {
	for i := 0; i < mesh.NumPorts; i++ {
		link := r.rx[i]
		if link.Req.Read() != r.currentLevelRx[i] && !r.buffers[i].IsFull() {
			f := link.Flit.Read()
			r.buffers[i].Push(f)
			r.currentLevelRx[i] = 1 - r.currentLevelRx[i]
			r.power.Buffering()
			if f.SrcID == r.id {
				r.power.EndToEnd()
			}
		}
		link.Ack.Write(r.currentLevelRx[i])
	}
	r.power.Leakage()
}

func (r *Router) bufferMonitor() {
	for d := 0; d < mesh.NumCardinal; d++ {
		r.freeSlotsPub[d].Write(r.buffers[d].FreeSlots())
	}
	r.nopPub.Write(r.currentNoPData())
}

func (r *Router) currentNoPData() NoPData {
	var nd NoPData
	nd.SenderID = r.id
	for j := 0; j < mesh.NumCardinal; j++ {
		nd.Channel[j] = ChannelStatus{
			FreeSlots: r.freeSlotsSub[j].Read(),
			Available: r.resv.IsAvailable(j),
		}
	}
	return nd
}

func (r *Router) txProcess() {
	for j := 0; j < mesh.NumPorts; j++ {
		i := (r.startFromPort + j) % mesh.NumPorts
		if !r.buffers[i].CheckDeadlock() {
			r.logger.Warn("deadlock suspected", "router", r.id, "buffer", i)
		}
		if r.buffers[i].IsEmpty() {
			continue
		}
		f, _ := r.buffers[i].Front()
		if f.Type != flit.Head {
			continue
		}
		if r.resv.GetOutputPort(i) != reservation.NotReserved {
			continue
		}
		rd := flit.RouteData{CurrentID: r.id, SrcID: f.SrcID, DstID: f.DstID, DirIn: mesh.Direction(i)}
		o := r.route(rd)
		if r.resv.IsAvailable(int(o)) {
			r.power.Crossbar()
			r.resv.Reserve(i, int(o))
		}
	}
	r.startFromPort = (r.startFromPort + 1) % mesh.NumPorts

	for i := 0; i < mesh.NumPorts; i++ {
		if r.buffers[i].IsEmpty() {
			continue
		}
		f, _ := r.buffers[i].Front()
		o := r.resv.GetOutputPort(i)
		if o == reservation.NotReserved {
			continue
		}
		outLink := r.tx[o]
		if r.currentLevelTx[o] != outLink.Ack.Read() {
			continue
		}
		outLink.Flit.Write(f)
		r.currentLevelTx[o] = 1 - r.currentLevelTx[o]
		outLink.Req.Write(r.currentLevelTx[o])
		r.buffers[i].Pop()

		r.power.Link()
		if f.DstID == r.id {
			r.power.EndToEnd()
		}
		if f.Type == flit.Tail {
			r.resv.Release(o)
		}

		if mesh.Direction(o) == mesh.Local {
			r.recordDrain()
		} else if mesh.Direction(i) != mesh.Local {
			r.routedFlits++
		}
	}
	r.power.Leakage()
}

func (r *Router) recordDrain() {
	if r.cfg.DrainedVolume != nil {
		if r.cfg.MaxVolumeToBeDrained > 0 && *r.cfg.DrainedVolume >= uint64(r.cfg.MaxVolumeToBeDrained) {
			r.stopped = true
			return
		}
		*r.cfg.DrainedVolume++
	}
	r.localDrained++
}

// route implements the HUB special case and otherwise defers to the
// registered routing algorithm plus selection policy.
func (r *Router) route(rd flit.RouteData) mesh.Direction {
	r.power.Routing()
	if rd.DstID == r.id {
		return mesh.Local
	}
	var cands []mesh.Direction
	if r.cfg.UseRadioHub && r.cfg.HasRadioHub != nil && r.cfg.SameRadioHub != nil &&
		r.cfg.HasRadioHub(r.id) && r.cfg.HasRadioHub(rd.DstID) && !r.cfg.SameRadioHub(r.id, rd.DstID) {
		cands = []mesh.Direction{mesh.Hub}
	} else {
		cands = r.routingAlg(rd, r.topo)
	}
	return r.selectionFn(cands, rd)
}

func (r *Router) selectionFn(cands []mesh.Direction, rd flit.RouteData) mesh.Direction {
	if len(cands) == 1 {
		return cands[0]
	}
	r.power.Selection()
	views := make([]selection.NeighborView, len(cands))
	for i, d := range cands {
		views[i] = r.neighborView(d)
	}
	return r.selectionPolicy(r.rng, rd, views, r.topo, r.nopLookup)
}

func (r *Router) neighborView(d mesh.Direction) selection.NeighborView {
	if !d.IsCardinal() {
		return selection.NeighborView{Direction: d, Reachable: true, NeighborID: mesh.NotValid}
	}
	nbID := r.topo.NeighborID(r.id, d)
	return selection.NeighborView{
		Direction:  d,
		FreeSlots:  r.freeSlotsSub[d].Read(),
		Reachable:  nbID != mesh.NotValid && r.resv.IsAvailable(int(d)),
		NeighborID: nbID,
	}
}

// nopLookup implements selection.NoPLookup: it finds which of our
// cardinal directions leads to nextHopID, reads that neighbor's last
// broadcast NoPData, and reports the candidates and their scores the
// neighbor itself would weigh.
func (r *Router) nopLookup(nextHopID int, rd flit.RouteData) ([]mesh.Direction, map[mesh.Direction]int) {
	dir := mesh.Direction(mesh.NotValid)
	for d := 0; d < mesh.NumCardinal; d++ {
		if r.topo.NeighborID(r.id, mesh.Direction(d)) == nextHopID {
			dir = mesh.Direction(d)
			break
		}
	}
	if dir == mesh.Direction(mesh.NotValid) {
		return nil, nil
	}
	nd := r.nopSub[dir].Read()
	if nd.SenderID != nextHopID {
		return nil, nil
	}
	cands := r.routingAlg(rd, r.topo)
	free := make(map[mesh.Direction]int, len(cands))
	for _, c := range cands {
		if c.IsCardinal() && nd.Channel[int(c)].Available {
			free[c] = nd.Channel[int(c)].FreeSlots
		} else {
			free[c] = 0
		}
	}
	return cands, free
}

// InjectLocal admits f as if the stubbed local traffic generator had
// sent it, an out-of-core collaborator: it pushes
// straight into the LOCAL buffer, skipping the ABP handshake a real
// neighbor would need, and fails exactly when that buffer is full.
func (r *Router) InjectLocal(f flit.Flit) bool {
	return r.buffers[mesh.Local].Push(f)
}

// DrainLocal consumes one flit the router has forwarded to LOCAL, if
// any is waiting, standing in for the stubbed traffic sink's receive
// side of the ABP handshake.
func (r *Router) DrainLocal() (flit.Flit, bool) {
	return drainStub(r.tx[mesh.Local], &r.localDrainLevel)
}

// InjectHub and DrainHub mirror InjectLocal/DrainLocal for the HUB
// port, standing in for the out-of-core wireless radio hub collaborator.
func (r *Router) InjectHub(f flit.Flit) bool {
	return r.buffers[mesh.Hub].Push(f)
}

func (r *Router) DrainHub() (flit.Flit, bool) {
	return drainStub(r.tx[mesh.Hub], &r.hubDrainLevel)
}

// drainStub retrieves the flit last forwarded to link, if it hasn't
// been retrieved yet. The ack half of the handshake is already
// advanced unconditionally by Router.Commit (LOCAL/HUB model an
// always-ready sink), so this only tracks which request level the
// caller has already consumed.
func drainStub(link *Link, level *int) (flit.Flit, bool) {
	req := link.Req.Read()
	if req == *level {
		return flit.Flit{}, false
	}
	f := link.Flit.Read()
	*level = req
	return f, true
}

// InCongestion reports whether any cardinal neighbor's last-published
// used-slot count (capacity minus its free-slot count) exceeds the
// configured dyad threshold fraction of capacity.
func (r *Router) InCongestion() bool {
	for d := 0; d < mesh.NumCardinal; d++ {
		used := r.cfg.BufferCapacity - r.freeSlotsSub[d].Read()
		if float64(used) > float64(r.cfg.BufferCapacity)*r.cfg.DyadThreshold {
			return true
		}
	}
	return false
}

// StopRequested reports whether this router has forwarded a flit to
// LOCAL while the shared drained-volume counter already stood at
// MaxVolumeToBeDrained.
func (r *Router) StopRequested() bool { return r.stopped }

// GetRoutedFlits returns the lifetime count of flits this router has
// forwarded to a non-LOCAL output.
func (r *Router) GetRoutedFlits() uint64 { return r.routedFlits }

// GetLocalDrained returns the lifetime count of flits delivered to this
// router's LOCAL port.
func (r *Router) GetLocalDrained() uint64 { return r.localDrained }

// GetFlitsCount returns the total number of flits currently resident in
// any of this router's buffers.
func (r *Router) GetFlitsCount() int {
	n := 0
	for i := 0; i < mesh.NumPorts; i++ {
		n += r.buffers[i].Size()
	}
	return n
}

// GetPower returns a numeric power estimate if the configured
// PowerRecorder supports one (a Value() float64 method); otherwise it
// returns 0. Neither CountingPower nor the no-op recorder New uses for
// a nil PowerRecorder has such a method, so both report 0.
func (r *Router) GetPower() float64 {
	type valuer interface{ Value() float64 }
	if v, ok := r.power.(valuer); ok {
		return v.Value()
	}
	return 0
}

// ShowBuffersStats returns a snapshot of every port's lifetime
// push/pop counters, keyed by port index.
func (r *Router) ShowBuffersStats() map[int]buffer.Stats {
	out := make(map[int]buffer.Stats, mesh.NumPorts)
	for i := 0; i < mesh.NumPorts; i++ {
		out[i] = r.buffers[i].Stats()
	}
	return out
}

// NoPReport logs the NoPData currently visible on each cardinal input,
// skipping directions with no neighbor attached yet.
func (r *Router) NoPReport() {
	for d := 0; d < mesh.NumCardinal; d++ {
		nd := r.nopSub[d].Read()
		if nd.SenderID == mesh.NotValid {
			continue
		}
		r.logger.Debug("neighbor-on-path report", "router", r.id, "direction", mesh.Direction(d).String(), "sender", nd.SenderID)
	}
}
