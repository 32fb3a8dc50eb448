// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command noxim-router drives a mesh of router cores for manual
// inspection and end-to-end scenarios. It is deliberately thin: traffic
// generation, config loading and the clock loop are collaborators
// external to the router core itself, so this binary is scaffolding
// around internal/sim, not part of the router itself.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"noxim.dev/router/internal/config"
	"noxim.dev/router/internal/flit"
	"noxim.dev/router/internal/logging"
	"noxim.dev/router/internal/metrics"
	"noxim.dev/router/internal/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to HCL config file (defaults to config.Default())")
	cycles := flag.Int64("cycles", 1000, "Number of cycles to run")
	injectionRate := flag.Float64("injection-rate", 0.0, "Per-router, per-cycle probability of injecting a new packet at LOCAL (0 disables synthetic traffic)")
	packetLen := flag.Int("packet-length", 3, "Flits per synthetic packet (HEAD + BODY* + TAIL)")
	metricsAddr := flag.String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090)")
	verbose := flag.Bool("verbose", false, "Enable debug-level logging")
	dumpConfig := flag.Bool("dump-config", false, "Print the effective configuration as JSON and exit")
	flag.Parse()

	level := logging.LevelInfo
	if *verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{Level: level, Output: os.Stderr})

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	if *dumpConfig {
		val := cfg.DebugValue()
		out, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			log.Fatalf("marshaling config: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	m, err := sim.Build(cfg, logger)
	if err != nil {
		log.Fatalf("building mesh: %v", err)
	}

	var reg *metrics.Registry
	if *metricsAddr != "" {
		promReg := prometheus.NewRegistry()
		reg = metrics.NewRegistry(promReg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics server listening", "addr", *metricsAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	gen := newTrafficGenerator(cfg, *injectionRate, *packetLen)

	var prevSnap []metrics.RouterSnapshot
	for c := int64(0); c < *cycles; c++ {
		gen.inject(m, c)
		drainAll(m)
		if !m.Tick() {
			logger.Info("drain limit reached, stopping", "cycle", c, "drained", m.DrainedVolume())
			break
		}
		if reg != nil {
			snap := m.Snapshot()
			for i, s := range snap {
				var prev *metrics.RouterSnapshot
				if prevSnap != nil {
					prev = &prevSnap[i]
				}
				reg.Observe(s, prev)
			}
			prevSnap = snap
		}
	}

	fmt.Printf("ran %d cycles, %d flits drained mesh-wide\n", m.Cycle(), m.DrainedVolume())
}

// drainAll pulls any flit a router has forwarded to its own LOCAL port
// out of the stubbed traffic-sink side, standing in for the external
// traffic generator's receive half.
func drainAll(m *sim.Mesh) {
	for _, r := range m.Routers {
		for {
			if _, ok := r.DrainLocal(); !ok {
				break
			}
		}
	}
}

// trafficGenerator injects synthetic HEAD/BODY*/TAIL packets at random
// LOCAL ports, standing in for the traffic-generator collaborator that
// sits outside the router core. It is demo scaffolding, not a model of
// any particular traffic pattern.
type trafficGenerator struct {
	rate   float64
	length int
	rng    *rand.Rand
	n      int
}

func newTrafficGenerator(cfg config.Config, rate float64, length int) *trafficGenerator {
	if length < 1 {
		length = 1
	}
	return &trafficGenerator{
		rate:   rate,
		length: length,
		rng:    rand.New(rand.NewSource(cfg.RNGSeed ^ 0x5eed)),
	}
}

func (g *trafficGenerator) inject(m *sim.Mesh, cycle int64) {
	if g.rate <= 0 {
		return
	}
	for _, r := range m.Routers {
		if g.rng.Float64() >= g.rate {
			continue
		}
		dst := g.rng.Intn(len(m.Routers))
		if dst == r.ID() {
			continue
		}
		pktID := flit.NewPacketID()
		for i := 0; i < g.length; i++ {
			t := flit.Body
			switch i {
			case 0:
				t = flit.Head
			case g.length - 1:
				t = flit.Tail
			}
			f := flit.Flit{
				PacketID:        pktID,
				SrcID:           r.ID(),
				DstID:           dst,
				Type:            t,
				SequenceNo:      uint64(g.n),
				InjectedAtCycle: cycle,
			}
			g.n++
			if !r.InjectLocal(f) {
				break
			}
		}
	}
}
