// Copyright 2025 the stored-go authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stored_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	stored "github.com/DEMCON/stored-go"
	"github.com/DEMCON/stored-go/protocol"
)

func TestSyncWelcome(t *testing.T) {
	t.Parallel()

	store1 := newTestStore(t)
	store2 := newTestStore(t)
	stored.Set[int32](store1.Find("/default int32"), 42)

	s1 := stored.NewSynchronizer()
	s2 := stored.NewSynchronizer()
	s1.Map(store1.Store)
	s2.Map(store2.Store)

	loop := protocol.NewLoopback(4096)
	s1.Connect(loop.A())
	c2 := s2.Connect(loop.B())

	// store2 wants the authoritative copy held by store1's side.
	s2.SyncFrom(store2.Store, c2)
	loop.Process()

	require.Equal(t, int32(42), stored.Get[int32](store2.Find("/default int32")))
}

func TestSyncUpdate(t *testing.T) {
	t.Parallel()

	store1 := newTestStore(t)
	store2 := newTestStore(t)

	s1 := stored.NewSynchronizer()
	s2 := stored.NewSynchronizer()
	s1.Map(store1.Store)
	s2.Map(store2.Store)

	loop := protocol.NewLoopback(4096)
	s1.Connect(loop.A())
	c2 := s2.Connect(loop.B())
	s2.SyncFrom(store2.Store, c2)
	loop.Process()

	// A write on either side reaches the other after process().
	stored.Set[int32](store1.Find("/default int32"), 5)
	s1.Process(store1.Store)
	loop.Process()
	require.Equal(t, int32(5), stored.Get[int32](store2.Find("/default int32")))

	stored.Set[float64](store2.Find("/default double"), 2.5)
	s2.Process(store2.Store)
	loop.Process()
	require.Equal(t, 2.5, stored.Get[float64](store1.Find("/default double")))

	// Without new writes, process() emits nothing.
	s1.ProcessAll()
	require.True(t, loop.AtoB().Empty())
}

func TestSyncNoEcho(t *testing.T) {
	t.Parallel()

	store1 := newTestStore(t, stored.WithChangeOnlyHooks())
	store2 := newTestStore(t, stored.WithChangeOnlyHooks())

	s1 := stored.NewSynchronizer()
	s2 := stored.NewSynchronizer()
	s1.Map(store1.Store)
	s2.Map(store2.Store)

	loop := protocol.NewLoopback(4096)
	s1.Connect(loop.A())
	c2 := s2.Connect(loop.B())
	s2.SyncFrom(store2.Store, c2)
	loop.Process()

	stored.Set[int32](store1.Find("/default int32"), 5)
	s1.Process(store1.Store)
	loop.ProcessB()

	// The update arrived at store2; processing store2 must not bounce it
	// back to store1's channel.
	require.Equal(t, int32(5), stored.Get[int32](store2.Find("/default int32")))
	s2.Process(store2.Store)
	require.True(t, loop.BtoA().Empty())
}

func TestSyncCounts(t *testing.T) {
	t.Parallel()

	// Mirrors the hook arithmetic of the original: five local writes, one
	// process, and the peer sees exactly one update application.
	store1 := newTestStore(t)
	store2 := newTestStore(t)
	h1 := newCountingHooks()
	h1.install(store1.Store)
	h2 := newCountingHooks()
	h2.install(store2.Store)

	s1 := stored.NewSynchronizer()
	s2 := stored.NewSynchronizer()
	s1.Map(store1.Store)
	s2.Map(store2.Store)

	loop := protocol.NewLoopback(4096)
	s1.Connect(loop.A())
	c2 := s2.Connect(loop.B())
	s2.SyncFrom(store2.Store, c2)
	loop.Process()

	key := store1.Find("/default int32").Key()
	require.Equal(t, 0, h1.changed[key])
	require.Equal(t, 1, h2.changed[key]) // because of Welcome

	for i := int32(1); i <= 5; i++ {
		stored.Set(store1.Find("/default int32"), i)
	}
	s1.Process(store1.Store)
	loop.Process()

	require.Equal(t, 5, h1.changed[key]) // local writes
	require.Equal(t, 2, h2.changed[key]) // one Welcome, one Update
}

// A chain of three nodes: a write at one end reaches the far end through
// the middle, and in a change-only configuration every node applies it
// exactly once.
func TestSyncChain(t *testing.T) {
	t.Parallel()

	mk := func() (*testStore, *stored.Synchronizer, *countingHooks) {
		st := newTestStore(t, stored.WithChangeOnlyHooks())
		h := newCountingHooks()
		h.install(st.Store)
		s := stored.NewSynchronizer()
		s.Map(st.Store)
		return st, s, h
	}
	stA, sA, _ := mk()
	stB, sB, hB := mk()
	stC, sC, hC := mk()

	ab := protocol.NewLoopback(4096)
	bc := protocol.NewLoopback(4096)
	sA.Connect(ab.A())
	cBA := sB.Connect(ab.B())
	sB.Connect(bc.A())
	cCB := sC.Connect(bc.B())

	sB.SyncFrom(stB.Store, cBA)
	ab.Process()
	sC.SyncFrom(stC.Store, cCB)
	bc.Process()

	stored.Set[int32](stA.Find("/default int32"), 77)
	pump := func() {
		for range 4 {
			sA.ProcessAll()
			sB.ProcessAll()
			sC.ProcessAll()
			ab.Process()
			bc.Process()
		}
	}
	pump()

	require.Equal(t, int32(77), stored.Get[int32](stB.Find("/default int32")))
	require.Equal(t, int32(77), stored.Get[int32](stC.Find("/default int32")))

	key := stA.Find("/default int32").Key()
	require.Equal(t, 1, hB.changed[key])
	require.Equal(t, 1, hC.changed[key])
}

// A ring topology: updates travel both ways around but die where the bytes
// are already known, so the ring converges and nothing circulates forever.
func TestSyncRing(t *testing.T) {
	t.Parallel()

	mk := func() (*testStore, *stored.Synchronizer, *countingHooks) {
		st := newTestStore(t, stored.WithChangeOnlyHooks())
		h := newCountingHooks()
		h.install(st.Store)
		s := stored.NewSynchronizer()
		s.Map(st.Store)
		return st, s, h
	}
	stA, sA, _ := mk()
	stB, sB, hB := mk()
	stC, sC, hC := mk()

	ab := protocol.NewLoopback(4096)
	bc := protocol.NewLoopback(4096)
	ca := protocol.NewLoopback(4096)
	sA.Connect(ab.A())
	cBA := sB.Connect(ab.B())
	sB.Connect(bc.A())
	cCB := sC.Connect(bc.B())
	sC.Connect(ca.A())
	cAC := sA.Connect(ca.B())

	sB.SyncFrom(stB.Store, cBA)
	ab.Process()
	sC.SyncFrom(stC.Store, cCB)
	bc.Process()
	sA.SyncFrom(stA.Store, cAC)
	ca.Process()

	stored.Set[int32](stA.Find("/default int32"), 99)

	quiet := 0
	for range 16 {
		sA.ProcessAll()
		sB.ProcessAll()
		sC.ProcessAll()
		ab.Process()
		bc.Process()
		ca.Process()
		if ab.AtoB().Empty() && ab.BtoA().Empty() &&
			bc.AtoB().Empty() && bc.BtoA().Empty() &&
			ca.AtoB().Empty() && ca.BtoA().Empty() {
			quiet++
		}
	}
	require.Positive(t, quiet)

	key := stA.Find("/default int32").Key()
	require.Equal(t, int32(99), stored.Get[int32](stB.Find("/default int32")))
	require.Equal(t, int32(99), stored.Get[int32](stC.Find("/default int32")))
	require.Equal(t, 1, hB.changed[key])
	require.Equal(t, 1, hC.changed[key])
}

func TestSyncMaxMessageSize(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	s := stored.NewSynchronizer()
	s.Map(store.Store)

	// Any message fits a loopback sized to the bound.
	bound := s.MaxMessageSize()
	require.Greater(t, bound, store.Size())
}

func TestSyncDisconnect(t *testing.T) {
	t.Parallel()

	store1 := newTestStore(t)
	store2 := newTestStore(t)
	s1 := stored.NewSynchronizer()
	s2 := stored.NewSynchronizer()
	s1.Map(store1.Store)
	s2.Map(store2.Store)

	loop := protocol.NewLoopback(4096)
	s1.Connect(loop.A())
	c2 := s2.Connect(loop.B())
	s2.SyncFrom(store2.Store, c2)
	loop.Process()

	s2.Disconnect(c2)
	loop.Process()

	// The bye removed the mapping on side 1: further writes stay local.
	stored.Set[int32](store1.Find("/default int32"), 123)
	s1.Process(store1.Store)
	loop.Process()
	require.Equal(t, int32(0), stored.Get[int32](store2.Find("/default int32")))
}
