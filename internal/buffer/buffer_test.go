// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package buffer

import (
	"testing"

	"noxim.dev/router/internal/flit"
)

func mkFlit(seq uint64) flit.Flit {
	return flit.Flit{SequenceNo: seq}
}

func TestPushPopFIFOOrder(t *testing.T) {
	b := New(4, 100)
	b.Push(mkFlit(1))
	b.Push(mkFlit(2))
	b.Push(mkFlit(3))

	for _, want := range []uint64{1, 2, 3} {
		got, ok := b.Pop()
		if !ok || got.SequenceNo != want {
			t.Fatalf("Pop() = %+v, %v; want seq %d", got, ok, want)
		}
	}
	if !b.IsEmpty() {
		t.Error("expected empty buffer after draining")
	}
}

func TestPushFailsWhenFull(t *testing.T) {
	b := New(2, 100)
	if !b.Push(mkFlit(1)) || !b.Push(mkFlit(2)) {
		t.Fatal("expected first two pushes to succeed")
	}
	if b.Push(mkFlit(3)) {
		t.Error("expected push to fail once buffer is at capacity")
	}
	if b.FreeSlots() != 0 {
		t.Errorf("FreeSlots() = %d, want 0", b.FreeSlots())
	}
}

func TestFreeSlotsTracksOccupancy(t *testing.T) {
	b := New(4, 100)
	if got := b.FreeSlots(); got != 4 {
		t.Fatalf("FreeSlots() = %d, want 4", got)
	}
	b.Push(mkFlit(1))
	if got := b.FreeSlots(); got != 3 {
		t.Fatalf("FreeSlots() = %d, want 3", got)
	}
	b.Pop()
	if got := b.FreeSlots(); got != 4 {
		t.Fatalf("FreeSlots() = %d, want 4", got)
	}
}

func TestDisableBlocksAdmissionAndReportsFull(t *testing.T) {
	b := New(4, 100)
	b.Disable()
	if b.Push(mkFlit(1)) {
		t.Error("expected Push to fail on a disabled buffer")
	}
	if !b.IsFull() {
		t.Error("expected IsFull() true on a disabled buffer")
	}
	if got := b.FreeSlots(); got != 0 {
		t.Errorf("FreeSlots() = %d, want 0 on a disabled buffer", got)
	}
}

func TestCheckDeadlockTripsAfterThreshold(t *testing.T) {
	b := New(4, 3)
	b.Push(mkFlit(1))
	for i := 0; i < 4; i++ {
		if !b.CheckDeadlock() {
			t.Fatalf("tick %d: CheckDeadlock() = false too early", i)
		}
		b.Tick()
	}
	if b.CheckDeadlock() {
		t.Error("expected CheckDeadlock() = false once headAge exceeds threshold")
	}
}

func TestPopResetsDeadlockWatchdog(t *testing.T) {
	b := New(4, 2)
	b.Push(mkFlit(1))
	b.Tick()
	b.Tick()
	b.Push(mkFlit(2))
	b.Pop()
	if !b.CheckDeadlock() {
		t.Error("expected watchdog reset after Pop exposes a fresh head flit")
	}
}

func TestFrontDoesNotRemove(t *testing.T) {
	b := New(4, 100)
	b.Push(mkFlit(5))
	f, ok := b.Front()
	if !ok || f.SequenceNo != 5 {
		t.Fatalf("Front() = %+v, %v", f, ok)
	}
	if b.Size() != 1 {
		t.Errorf("Size() = %d, want 1 (Front must not remove)", b.Size())
	}
}

func TestStatsCountPushesAndPops(t *testing.T) {
	b := New(4, 100)
	b.Push(mkFlit(1))
	b.Push(mkFlit(2))
	b.Pop()
	st := b.Stats()
	if st.Pushed != 2 || st.Popped != 1 {
		t.Errorf("Stats() = %+v, want {Pushed:2 Popped:1}", st)
	}
}
