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
	"encoding/binary"
	"slices"
)

// StoreJournal tracks which cells of a store changed, and when, in units of
// an abstract sequence counter. The synchronizer keeps one journal per
// mapped store and one consumed-up-to sequence per connection; everything a
// connection has not seen yet becomes its next update message.
type StoreJournal struct {
	store *Store
	seq   uint64

	// Data cells in key order, fixed at construction.
	cells []journalCell
	// Pending changes: key -> seq of the change.
	changes map[int]uint64

	keyWidth int
	maxMsg   int
}

type journalCell struct {
	key  int
	size int
	typ  Type
}

func newStoreJournal(s *Store) *StoreJournal {
	j := &StoreJournal{
		store:   s,
		seq:     1,
		changes: make(map[int]uint64),
	}

	List(s.data.Directory, func(_ string, e Entry) {
		if !e.Type.IsFunction() {
			j.cells = append(j.cells, journalCell{key: e.Offset, size: e.Size, typ: e.Type})
		}
	})
	slices.SortFunc(j.cells, func(a, b journalCell) int { return a.key - b.key })

	j.keyWidth = widthFor(len(s.buffer))
	welcome := 1 + 4 + len(s.buffer)
	update := 1 + 2 + len(j.cells)*2*j.keyWidth + len(s.buffer)
	hello := 1 + len(s.Hash()) + 1 + 2
	j.maxMsg = max(welcome, update, hello)
	return j
}

// widthFor returns the record field width holding values up to n.
func widthFor(n int) int {
	switch {
	case n <= 0xff:
		return 1
	case n <= 0xffff:
		return 2
	case n <= 0xffffffff:
		return 4
	default:
		return 8
	}
}

// Store returns the journalled store.
func (j *StoreJournal) Store() *Store { return j.store }

// MaxMessageSize returns an upper bound on any synchronizer message for
// this store, for sizing channels.
func (j *StoreJournal) MaxMessageSize() int { return j.maxMsg }

// bumpSeq opens a new sequence unit and returns it.
func (j *StoreJournal) bumpSeq() uint64 {
	j.seq++
	return j.seq
}

// record marks a cell changed in the current sequence unit.
func (j *StoreJournal) record(key int) {
	j.changes[key] = j.seq
}

// hasChangesSince reports whether an update since seq would be non-empty.
func (j *StoreJournal) hasChangesSince(seq uint64) bool {
	for _, s := range j.changes {
		if s >= seq {
			return true
		}
	}
	return false
}

// encodeUpdates appends the update records changed at or after seq: per
// record the cell key, length and bytes, all fields keyWidth wide and
// big-endian.
func (j *StoreJournal) encodeUpdates(seq uint64, out []byte) []byte {
	for _, c := range j.cells {
		if s, ok := j.changes[c.key]; !ok || s < seq {
			continue
		}
		out = j.appendField(out, uint64(c.key))
		out = j.appendField(out, uint64(c.size))
		out = append(out, j.store.buffer[c.key:c.key+c.size]...)
	}
	return out
}

func (j *StoreJournal) appendField(out []byte, v uint64) []byte {
	switch j.keyWidth {
	case 1:
		return append(out, byte(v))
	case 2:
		return binary.BigEndian.AppendUint16(out, uint16(v))
	case 4:
		return binary.BigEndian.AppendUint32(out, uint32(v))
	default:
		return binary.BigEndian.AppendUint64(out, v)
	}
}

func (j *StoreJournal) field(in []byte) (uint64, []byte, bool) {
	if len(in) < j.keyWidth {
		return 0, nil, false
	}
	var v uint64
	switch j.keyWidth {
	case 1:
		v = uint64(in[0])
	case 2:
		v = uint64(binary.BigEndian.Uint16(in))
	case 4:
		v = uint64(binary.BigEndian.Uint32(in))
	default:
		v = binary.BigEndian.Uint64(in)
	}
	return v, in[j.keyWidth:], true
}

// applyUpdates decodes and applies update records, journalling actual
// changes at the current sequence unit so they propagate to the other
// connections. The changed hook fires per applied cell, subject to
// HookSetOnChangeOnly.
func (j *StoreJournal) applyUpdates(in []byte) bool {
	for len(in) > 0 {
		key, rest, ok := j.field(in)
		if !ok {
			return false
		}
		size, rest, ok := j.field(rest)
		if !ok || uint64(len(rest)) < size {
			return false
		}
		j.applyCell(int(key), rest[:size])
		in = rest[size:]
	}
	return true
}

// applyBuffer overwrites the whole store from a welcome message.
func (j *StoreJournal) applyBuffer(buf []byte) bool {
	if len(buf) != len(j.store.buffer) {
		return false
	}
	for _, c := range j.cells {
		j.applyCell(c.key, buf[c.key:c.key+c.size])
	}
	return true
}

func (j *StoreJournal) applyCell(key int, data []byte) {
	c, ok := j.cellByKey(key)
	if !ok || len(data) > c.size {
		// Not a cell boundary; an update must never straddle cells.
		return
	}

	changed, ok := j.store.applyRaw(key, data)
	if !ok {
		return
	}
	if changed {
		j.record(key)
	}

	s := j.store
	if s.cfg.EnableHooks && (changed || !s.cfg.HookSetOnChangeOnly) {
		s.hooks.Changed(c.typ, s.buffer[key:key+len(data)])
	}
}

func (j *StoreJournal) cellByKey(key int) (journalCell, bool) {
	i, ok := slices.BinarySearchFunc(j.cells, key, func(c journalCell, k int) int {
		return c.key - k
	})
	if !ok {
		return journalCell{}, false
	}
	return j.cells[i], true
}

// journalHooks feeds the journal from the store's hook chain.
type journalHooks struct {
	Hooks
	j *StoreJournal
}

func (h journalHooks) ExitX(t Type, buf []byte, changed bool) {
	h.Hooks.ExitX(t, buf, changed)
	if changed {
		h.j.record(h.j.store.KeyOf(buf))
	}
}
