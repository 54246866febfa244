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

package stored

import (
	"bytes"

	"github.com/DEMCON/stored-go/internal/xunsafe"
)

// Func is a function cell. It is invoked on every access with set=false for
// reads (fill buf) and set=true for writes (consume buf), returning the
// number of bytes produced or accepted.
type Func func(set bool, buf []byte) int

// StoreData is the compile-time image of a store, as a generator (or the
// schema package) emits it. Directory is the lookup directory, usually
// skip-compressed; LongDirectory optionally keeps full names for listing.
type StoreData struct {
	Name          string
	Hash          string
	Buffer        []byte
	Directory     []byte
	LongDirectory []byte
	Functions     []Func
}

// Store is a runtime instance of a store: it owns a copy of the buffer
// image and dispatches accesses through the hook chain and the function
// table.
//
// A Store must not be accessed from multiple goroutines concurrently; share
// state across goroutines with a [Synchronizer] over a FIFO loopback
// instead.
type Store struct {
	data   StoreData
	buffer []byte
	hooks  Hooks
	cfg    Config
}

// NewStore instantiates a store from its data image.
func NewStore(data StoreData, opts ...Option) *Store {
	cfg := DefaultConfig()
	for _, o := range opts {
		o.apply(&cfg)
	}
	return &Store{
		data:   data,
		buffer: append([]byte(nil), data.Buffer...),
		hooks:  NopHooks{},
		cfg:    cfg,
	}
}

// Name returns the store's name, like "/ExampleStore".
func (s *Store) Name() string { return s.data.Name }

// Hash identifies the store's schema; two stores with equal hashes have an
// identical cell layout.
func (s *Store) Hash() string { return s.data.Hash }

// Config returns the store's configuration.
func (s *Store) Config() Config { return s.cfg }

// Size returns the buffer size in bytes.
func (s *Store) Size() int { return len(s.buffer) }

// Find looks up a cell by name, which may be abbreviated as long as it is
// unambiguous. The returned variant is invalid if there is no unique match.
func (s *Store) Find(name string) Variant {
	e, ok := Lookup(s.data.Directory, name)
	if !ok {
		return Variant{}
	}
	return s.variant(e)
}

// Resolve is [Store.Find] with the failure reason: [ErrAmbiguous] when the
// name matches several cells, [ErrNotFound] otherwise.
func (s *Store) Resolve(name string) (Variant, error) {
	e, n := lookup(s.data.Directory, name)
	switch n {
	case 0:
		return Variant{}, ErrNotFound
	case 1:
		return s.variant(e), nil
	default:
		return Variant{}, ErrAmbiguous
	}
}

// List invokes fn for every cell. With FullNames configured the names are
// exact; otherwise skip-compressed characters read as '?'.
func (s *Store) List(fn func(name string, v Variant)) {
	dir := s.data.Directory
	if s.cfg.FullNames && s.data.LongDirectory != nil {
		dir = s.data.LongDirectory
	}
	List(dir, func(name string, e Entry) {
		fn(name, s.variant(e))
	})
}

func (s *Store) variant(e Entry) Variant {
	if !e.Type.IsFunction() && e.Offset+e.Size > len(s.buffer) {
		return Variant{}
	}
	return Variant{store: s, typ: e.Type, offset: e.Offset, size: e.Size}
}

// WrapHooks pushes a layer onto the store's hook chain. The wrapper
// receives the current chain and must forward to it.
func (s *Store) WrapHooks(wrap func(base Hooks) Hooks) {
	s.hooks = wrap(s.hooks)
}

// KeyOf returns the stable key of the cell whose bytes are buf. Hook
// implementations use this to identify the cell they are being called for.
func (s *Store) KeyOf(buf []byte) int {
	return int(xunsafe.AddrOf(buf) - xunsafe.AddrOf(s.buffer))
}

// getData copies a data cell out, bracketed by the read hooks.
func (s *Store) getData(t Type, cell, dst []byte) int {
	if s.cfg.EnableHooks {
		s.hooks.EntryRO(t, cell)
		defer s.hooks.ExitRO(t, cell)
	}
	return copy(dst, cell)
}

// setData writes a data cell, bracketed by the write hooks. fill zeroes the
// cell's tail beyond src (string semantics).
func (s *Store) setData(t Type, cell, src []byte, fill bool) int {
	if !s.cfg.EnableHooks {
		n := copy(cell, src)
		if fill {
			clear(cell[n:])
		}
		return n
	}

	s.hooks.EntryX(t, cell)

	changed := true
	if s.cfg.HookSetOnChangeOnly {
		changed = !bytes.Equal(cell[:min(len(src), len(cell))], src[:min(len(src), len(cell))])
		if fill && !changed {
			for _, b := range cell[len(src):] {
				if b != 0 {
					changed = true
					break
				}
			}
		}
	}

	n := copy(cell, src)
	if fill {
		clear(cell[n:])
	}

	s.hooks.ExitX(t, cell, changed)
	if changed {
		s.hooks.Changed(t, cell)
	}
	return n
}

// callFunction dispatches a function cell access.
func (s *Store) callFunction(index int, set bool, buf []byte) int {
	if index >= len(s.data.Functions) || s.data.Functions[index] == nil {
		return 0
	}
	return s.data.Functions[index](set, buf)
}

// applyRaw overwrites a cell without running the hook chain, reporting
// whether the bytes changed. The synchronizer uses this to apply remote
// updates without journalling them back to their origin.
func (s *Store) applyRaw(offset int, data []byte) (changed bool, ok bool) {
	if offset < 0 || offset+len(data) > len(s.buffer) {
		return false, false
	}
	cell := s.buffer[offset : offset+len(data)]
	changed = !bytes.Equal(cell, data)
	copy(cell, data)
	return changed, true
}

// cellAt returns the buffer slice of a data cell.
func (s *Store) cellAt(offset, size int) []byte {
	return s.buffer[offset : offset+size : offset+size]
}
