// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package reservation

import (
	"testing"

	"noxim.dev/router/internal/errors"
)

func TestNewTableAllAvailable(t *testing.T) {
	tbl := New(6)
	for o := 0; o < 6; o++ {
		if !tbl.IsAvailable(o) {
			t.Errorf("port %d should start available", o)
		}
		if got := tbl.HolderOf(o); got != NotReserved {
			t.Errorf("HolderOf(%d) = %d, want NotReserved", o, got)
		}
	}
}

func TestReserveThenHeldForWholePacket(t *testing.T) {
	tbl := New(6)
	if err := tbl.Reserve(2, 0); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if tbl.IsAvailable(0) {
		t.Error("expected port 0 to be reserved")
	}
	if got := tbl.GetOutputPort(2); got != 0 {
		t.Errorf("GetOutputPort(2) = %d, want 0", got)
	}
	// BODY/TAIL flits of the same packet keep checking the same
	// reservation without re-arbitrating.
	if got := tbl.HolderOf(0); got != 2 {
		t.Errorf("HolderOf(0) = %d, want 2", got)
	}
}

func TestReserveAlreadyHeldIsProtocolError(t *testing.T) {
	tbl := New(6)
	if err := tbl.Reserve(2, 0); err != nil {
		t.Fatalf("first Reserve() error = %v", err)
	}
	err := tbl.Reserve(3, 0)
	if err == nil {
		t.Fatal("expected error reserving an already-held output port")
	}
	if errors.GetKind(err) != errors.KindProtocol {
		t.Errorf("GetKind(err) = %v, want KindProtocol", errors.GetKind(err))
	}
}

func TestReleaseFreesPort(t *testing.T) {
	tbl := New(6)
	tbl.Reserve(2, 0)
	tbl.Release(0)
	if !tbl.IsAvailable(0) {
		t.Error("expected port 0 available after Release")
	}
	if got := tbl.GetOutputPort(2); got != NotReserved {
		t.Errorf("GetOutputPort(2) = %d, want NotReserved after release", got)
	}
}

func TestGetOutputPortNoneHeld(t *testing.T) {
	tbl := New(6)
	if got := tbl.GetOutputPort(1); got != NotReserved {
		t.Errorf("GetOutputPort(1) = %d, want NotReserved", got)
	}
}
