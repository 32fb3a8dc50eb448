// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"testing"

	"noxim.dev/router/internal/errors"
)

func TestDecodeAppliesDefaultsForUnsetFields(t *testing.T) {
	cfg, err := Decode("minimal.hcl", []byte(`mesh_dim_x = 8`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.MeshDimX != 8 {
		t.Errorf("MeshDimX = %d, want 8", cfg.MeshDimX)
	}
	if cfg.MeshDimY != 4 {
		t.Errorf("MeshDimY = %d, want default 4", cfg.MeshDimY)
	}
	if cfg.RoutingAlgorithm != "XY" {
		t.Errorf("RoutingAlgorithm = %q, want default XY", cfg.RoutingAlgorithm)
	}
}

func TestDecodeFullDocument(t *testing.T) {
	src := `
mesh_dim_x = 2
mesh_dim_y = 3
buffer_depth = 8
selection_strategy = "NOP"
routing_algorithm = "MINIMAL_ADAPTIVE"
dyad_threshold = 0.5
use_radio_hub = true

hub {
  clusters = [[0, 1], [4, 5]]
}
`
	cfg, err := Decode("full.hcl", []byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.MeshDimX != 2 || cfg.MeshDimY != 3 || cfg.BufferDepth != 8 {
		t.Errorf("unexpected geometry: %+v", cfg)
	}
	if cfg.SelectionStrategy != "NOP" || cfg.RoutingAlgorithm != "MINIMAL_ADAPTIVE" {
		t.Errorf("unexpected strategy fields: %+v", cfg)
	}
	if !cfg.HasRadioHub(0) || !cfg.HasRadioHub(5) {
		t.Error("expected nodes 0 and 5 to have a radio hub")
	}
	if cfg.HasRadioHub(2) {
		t.Error("node 2 was not listed in any cluster")
	}
	if !cfg.SameRadioHub(0, 1) {
		t.Error("expected 0 and 1 to share a hub")
	}
	if cfg.SameRadioHub(0, 4) {
		t.Error("0 and 4 are in different clusters")
	}
}

func TestDecodeRejectsUnknownRoutingAlgorithm(t *testing.T) {
	_, err := Decode("bad.hcl", []byte(`routing_algorithm = "WEST_FIRST"`))
	if err == nil {
		t.Fatal("expected an error for an unregistered routing algorithm")
	}
	if errors.GetKind(err) != errors.KindConfiguration {
		t.Errorf("GetKind(err) = %v, want KindConfiguration", errors.GetKind(err))
	}
}

func TestDecodeRejectsUnknownSelectionStrategy(t *testing.T) {
	_, err := Decode("bad.hcl", []byte(`selection_strategy = "GREEDY"`))
	if err == nil {
		t.Fatal("expected an error for an unregistered selection strategy")
	}
}

func TestDecodeRejectsDegenerateMesh(t *testing.T) {
	_, err := Decode("bad.hcl", []byte(`mesh_dim_x = 0`))
	if err == nil {
		t.Fatal("expected an error for a zero-width mesh")
	}
}

func TestDecodeRejectsOutOfRangeDyadThreshold(t *testing.T) {
	_, err := Decode("bad.hcl", []byte(`dyad_threshold = 1.5`))
	if err == nil {
		t.Fatal("expected an error for dyad_threshold outside [0,1]")
	}
}

func TestHasRadioHubFalseWithoutHubBlock(t *testing.T) {
	cfg := Default()
	if cfg.HasRadioHub(0) {
		t.Error("expected no radio hub membership without a hub block")
	}
	if cfg.SameRadioHub(0, 1) {
		t.Error("expected SameRadioHub false without a hub block")
	}
}

func TestDebugValueReflectsFields(t *testing.T) {
	cfg := Default()
	cfg.MeshDimX = 6
	cfg.SelectionStrategy = "NOP"

	val := cfg.DebugValue()
	if !val.Type().IsObjectType() {
		t.Fatalf("DebugValue() type = %v, want object", val.Type())
	}
	attrs := val.AsValueMap()
	if got, _ := attrs["mesh_dim_x"].AsBigFloat().Int64(); got != 6 {
		t.Errorf("mesh_dim_x = %v, want 6", got)
	}
	if got := attrs["selection_strategy"].AsString(); got != "NOP" {
		t.Errorf("selection_strategy = %q, want NOP", got)
	}
}

func TestDebugValueHandlesHubClusters(t *testing.T) {
	cfg := Default()
	cfg.Hub = &HubConfig{Clusters: [][]int{{0, 1}, {4, 5}}}

	val := cfg.DebugValue()
	clusters := val.AsValueMap()["hub_clusters"]
	if clusters.LengthInt() != 2 {
		t.Fatalf("hub_clusters length = %d, want 2", clusters.LengthInt())
	}
}
