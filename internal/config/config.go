// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the HCL configuration a simulation run is built
// from: mesh geometry, per-port buffering, and the routing/selection
// strategy names the router core looks up in its registries.
package config

import (
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"

	"noxim.dev/router/internal/errors"
	"noxim.dev/router/internal/routing"
	"noxim.dev/router/internal/selection"
)

// Config is the root HCL document. Every field documents its default so
// a minimal file ("mesh_dim_x = 4" and nothing else) still produces a
// runnable mesh.
type Config struct {
	// @default: 4
	MeshDimX int `hcl:"mesh_dim_x,optional"`
	// @default: 4
	MeshDimY int `hcl:"mesh_dim_y,optional"`

	// @default: 4
	BufferDepth int `hcl:"buffer_depth,optional"`

	// @enum: "RANDOM", "BUFFER_LEVEL", "NOP"
	// @default: "RANDOM"
	SelectionStrategy string `hcl:"selection_strategy,optional"`

	// @enum: "XY", "MINIMAL_ADAPTIVE"
	// @default: "XY"
	RoutingAlgorithm string `hcl:"routing_algorithm,optional"`

	// DyadThreshold is the fraction of a neighbor's buffer capacity
	// that, once occupied, counts as congested.
	// @default: 0.75
	DyadThreshold float64 `hcl:"dyad_threshold,optional"`

	// DeadlockThreshold is how many consecutive cycles a buffer's head
	// flit may sit unforwarded before CheckDeadlock warns.
	// @default: 10000
	DeadlockThreshold int `hcl:"deadlock_threshold,optional"`

	// MaxVolumeToBeDrained limits how many flits are counted as drained
	// at their destination LOCAL port, mesh-wide: once the count has
	// reached this value, the next flit forwarded to any LOCAL port is
	// not counted and stops the simulation. 0 means unlimited.
	// @default: 0
	MaxVolumeToBeDrained int `hcl:"max_volume_to_be_drained,optional"`

	// @default: false
	VerboseMode bool `hcl:"verbose_mode,optional"`

	// @default: false
	UseRadioHub bool `hcl:"use_radio_hub,optional"`

	// @default: 1
	RNGSeed int64 `hcl:"rng_seed,optional"`

	Hub *HubConfig `hcl:"hub,block"`
}

// HubConfig lists which mesh nodes share a wireless radio hub, enabling
// the HUB routing special case. This module
// never simulates the hub's behavior itself, only whether two nodes can
// reach each other through one.
type HubConfig struct {
	// Clusters partitions node ids into radio-hub groups; nodes in the
	// same Clusters entry share a hub, nodes in different entries (or
	// absent from every entry) do not.
	Clusters [][]int `hcl:"clusters,optional"`
}

// Default returns the configuration a bare HCL file with no attributes
// set would produce.
func Default() Config {
	return Config{
		MeshDimX:          4,
		MeshDimY:          4,
		BufferDepth:       4,
		SelectionStrategy: "RANDOM",
		RoutingAlgorithm:  "XY",
		DyadThreshold:     0.75,
		DeadlockThreshold: 10000,
		RNGSeed:           1,
	}
}

// Load reads and decodes an HCL file at path, applying Default()'s
// values to any field the file leaves unset.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.KindConfiguration, "reading config file")
	}
	return Decode(path, data)
}

// Decode parses HCL source already in memory, used by Load and
// directly by tests that would rather not touch the filesystem.
func Decode(filename string, data []byte) (Config, error) {
	cfg := Default()
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.KindConfiguration, "decoding HCL config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a Config referencing an unregistered routing
// algorithm or selection strategy before a Router ever gets built from
// it, and catches a few geometrically nonsensical meshes.
func (c Config) Validate() error {
	if c.MeshDimX < 1 || c.MeshDimY < 1 {
		return errors.Errorf(errors.KindConfiguration, "mesh dimensions must be at least 1x1, got %dx%d", c.MeshDimX, c.MeshDimY)
	}
	if c.BufferDepth < 1 {
		return errors.Errorf(errors.KindConfiguration, "buffer_depth must be at least 1, got %d", c.BufferDepth)
	}
	if _, ok := routing.Lookup(c.RoutingAlgorithm); !ok {
		return errors.Errorf(errors.KindConfiguration, "unknown routing_algorithm %q (available: %v)", c.RoutingAlgorithm, routing.Names())
	}
	if _, ok := selection.Lookup(c.SelectionStrategy); !ok {
		return errors.Errorf(errors.KindConfiguration, "unknown selection_strategy %q (available: %v)", c.SelectionStrategy, selection.Names())
	}
	if c.DyadThreshold < 0 || c.DyadThreshold > 1 {
		return errors.Errorf(errors.KindConfiguration, "dyad_threshold must be within [0,1], got %v", c.DyadThreshold)
	}
	return nil
}

// HasRadioHub reports whether id belongs to any configured hub cluster.
func (c Config) HasRadioHub(id int) bool {
	if c.Hub == nil {
		return false
	}
	for _, cluster := range c.Hub.Clusters {
		for _, n := range cluster {
			if n == id {
				return true
			}
		}
	}
	return false
}

// SameRadioHub reports whether a and b belong to the same hub cluster.
func (c Config) SameRadioHub(a, b int) bool {
	if c.Hub == nil {
		return false
	}
	for _, cluster := range c.Hub.Clusters {
		var hasA, hasB bool
		for _, n := range cluster {
			if n == a {
				hasA = true
			}
			if n == b {
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// DebugValue renders the effective configuration as a cty.Value object,
// the same per-field cty conversion used elsewhere for writing config
// values back out to HCL. It exists for diagnostic dumps
// (cmd/noxim-router's -dump-config flag) rather than round-tripping:
// this module never rewrites its own config file.
func (c Config) DebugValue() cty.Value {
	clusters := make([]cty.Value, 0, len(c.clusters()))
	for _, cluster := range c.clusters() {
		ids := make([]cty.Value, 0, len(cluster))
		for _, id := range cluster {
			ids = append(ids, cty.NumberIntVal(int64(id)))
		}
		if len(ids) == 0 {
			clusters = append(clusters, cty.ListValEmpty(cty.Number))
			continue
		}
		clusters = append(clusters, cty.ListVal(ids))
	}
	huCluster := cty.EmptyTupleVal
	if len(clusters) > 0 {
		huCluster = cty.TupleVal(clusters)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"mesh_dim_x":               cty.NumberIntVal(int64(c.MeshDimX)),
		"mesh_dim_y":               cty.NumberIntVal(int64(c.MeshDimY)),
		"buffer_depth":             cty.NumberIntVal(int64(c.BufferDepth)),
		"selection_strategy":       cty.StringVal(c.SelectionStrategy),
		"routing_algorithm":        cty.StringVal(c.RoutingAlgorithm),
		"dyad_threshold":           cty.NumberFloatVal(c.DyadThreshold),
		"deadlock_threshold":       cty.NumberIntVal(int64(c.DeadlockThreshold)),
		"max_volume_to_be_drained": cty.NumberIntVal(int64(c.MaxVolumeToBeDrained)),
		"verbose_mode":             cty.BoolVal(c.VerboseMode),
		"use_radio_hub":            cty.BoolVal(c.UseRadioHub),
		"rng_seed":                 cty.NumberIntVal(c.RNGSeed),
		"hub_clusters":             huCluster,
	})
}

func (c Config) clusters() [][]int {
	if c.Hub == nil {
		return nil
	}
	return c.Hub.Clusters
}
