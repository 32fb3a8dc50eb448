// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"noxim.dev/router/internal/config"
	"noxim.dev/router/internal/flit"
	"noxim.dev/router/internal/logging"
)

func testConfig3x3() config.Config {
	cfg := config.Default()
	cfg.MeshDimX = 3
	cfg.MeshDimY = 3
	cfg.BufferDepth = 4
	cfg.RoutingAlgorithm = "XY"
	cfg.SelectionStrategy = "RANDOM"
	return cfg
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelDebug, Output: &bytes.Buffer{}})
}

func drainAllOnce(m *Mesh) []flit.Flit {
	var out []flit.Flit
	for _, r := range m.Routers {
		for {
			f, ok := r.DrainLocal()
			if !ok {
				break
			}
			out = append(out, f)
		}
	}
	return out
}

// TestSinglePacketTraversesFourWormholeHops checks wormhole delivery
// across multiple hops: a HEAD+BODY+TAIL packet injected at node 0 (coord 0,0) for node 8
// (coord 2,2) on a 3x3 XY-routed mesh is consumed at node 8 after
// exactly 4 hops through (1,0)->(2,0)->(2,1)->(2,2), incrementing each
// intermediate router's routed-flit counter by 3.
func TestSinglePacketTraversesFourWormholeHops(t *testing.T) {
	m, err := Build(testConfig3x3(), testLogger())
	require.NoError(t, err)

	pkt := flit.NewPacketID()
	src, dst := 0, 8
	flits := []flit.Flit{
		{PacketID: pkt, SrcID: src, DstID: dst, Type: flit.Head},
		{PacketID: pkt, SrcID: src, DstID: dst, Type: flit.Body},
		{PacketID: pkt, SrcID: src, DstID: dst, Type: flit.Tail},
	}
	for _, f := range flits {
		require.True(t, m.Routers[src].InjectLocal(f))
	}

	var drained []flit.Flit
	for cycle := 0; cycle < 40 && len(drained) < 3; cycle++ {
		m.Tick()
		drained = append(drained, drainAllOnce(m)...)
	}

	require.Len(t, drained, 3)
	for i, want := range []flit.Type{flit.Head, flit.Body, flit.Tail} {
		require.Equal(t, want, drained[i].Type)
		require.Equal(t, pkt, drained[i].PacketID)
	}

	// Intermediate routers on the XY path (1,0)=1, (2,0)=2, (2,1)=5 each
	// forward all 3 flits of the packet; node 8 itself never increments
	// RoutedFlits for a packet it drains at LOCAL.
	for _, id := range []int{1, 2, 5} {
		require.Equalf(t, uint64(3), m.Routers[id].GetRoutedFlits(), "router %d routed_flits", id)
	}
	require.Equal(t, uint64(3), m.DrainedVolume())
}

// TestMaxVolumeToBeDrainedStopsTheMesh checks that once the configured
// drain volume is reached mesh-wide, Tick reports the simulator should
// stop before any further ticks run.
func TestMaxVolumeToBeDrainedStopsTheMesh(t *testing.T) {
	cfg := testConfig3x3()
	cfg.MaxVolumeToBeDrained = 1
	m, err := Build(cfg, testLogger())
	require.NoError(t, err)

	pkt := flit.NewPacketID()
	require.True(t, m.Routers[0].InjectLocal(flit.Flit{PacketID: pkt, SrcID: 0, DstID: 0, Type: flit.Head}))
	require.True(t, m.Routers[0].InjectLocal(flit.Flit{PacketID: pkt, SrcID: 0, DstID: 0, Type: flit.Tail}))

	// The HEAD drains on the first tick (volume 0->1, under the limit);
	// the TAIL's drain on the second tick observes the limit already
	// reached and trips the stop, so Tick itself returns false that cycle.
	stillRunning := true
	for cycle := 0; cycle < 5 && stillRunning; cycle++ {
		stillRunning = m.Tick()
	}
	require.False(t, stillRunning, "expected Tick to report stop once the drain volume is reached")
	require.Equal(t, uint64(1), m.DrainedVolume())
}

// TestInjectLocalRejectsOnceBufferIsFull checks backpressure: once a
// router's LOCAL buffer is at BufferDepth, further InjectLocal calls
// are rejected rather than silently dropping flits, until a tick
// forwards one out.
func TestInjectLocalRejectsOnceBufferIsFull(t *testing.T) {
	cfg := testConfig3x3()
	cfg.BufferDepth = 2
	m, err := Build(cfg, testLogger())
	require.NoError(t, err)

	pkt := flit.NewPacketID()
	r := m.Routers[4] // any router; no Tick runs here so nothing ever leaves the LOCAL buffer
	require.True(t, r.InjectLocal(flit.Flit{PacketID: pkt, SrcID: 4, DstID: 4, Type: flit.Head}))
	require.True(t, r.InjectLocal(flit.Flit{PacketID: pkt, SrcID: 4, DstID: 4, Type: flit.Body}))
	require.False(t, r.InjectLocal(flit.Flit{PacketID: pkt, SrcID: 4, DstID: 4, Type: flit.Tail}),
		"expected the third flit to be rejected once the 2-deep LOCAL buffer is full")
}
