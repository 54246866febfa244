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

package schema

import (
	"fmt"
	"sort"

	"github.com/DEMCON/stored-go/internal/vlq"
)

// buildDirectory serializes the binary search trie over the cells' names.
// The full variant spells out every name character so listing can
// reconstruct names; the short variant compresses unambiguous runs into
// skip tokens, which is what makes abbreviated lookups work.
func buildDirectory(cells []cell, full bool) ([]byte, error) {
	b := &dirBuilder{full: full}

	items := make([]*cell, len(cells))
	for i := range cells {
		items[i] = &cells[i]
	}

	root := b.build(items, 0, false)
	if b.err != nil {
		return nil, b.err
	}

	root.measure()
	return root.serialize(nil), nil
}

type dirBuilder struct {
	full bool
	err  error
}

// dnode is one expression of the directory grammar.
type dnode struct {
	// Exactly one form: leaf != nil, char != 0, skip != 0, or slash.
	leaf  []byte
	char  byte
	skip  int
	slash bool

	eq, lt, gt *dnode

	lw, gw int // widths of the jump VLQs of a char node
	size   int
}

func (b *dirBuilder) fail(format string, args ...any) *dnode {
	if b.err == nil {
		b.err = fmt.Errorf("schema: "+format, args...)
	}
	return &dnode{leaf: []byte{}}
}

// build encodes items from depth on. discriminate forces the first
// position to be a matching node: a branch target must reject characters
// that belong to neither side, so its own character may not hide in a skip.
func (b *dirBuilder) build(items []*cell, depth int, discriminate bool) *dnode {
	if len(items) == 1 && depth == len(items[0].def.Name) {
		return &dnode{leaf: leafPayload(items[0])}
	}

	distinct := make([]byte, 0, 8)
	for _, it := range items {
		if len(it.def.Name) <= depth {
			return b.fail("%q is a prefix of another name", it.def.Name)
		}
		c := it.def.Name[depth]
		if !contains(distinct, c) {
			distinct = append(distinct, c)
		}
	}

	if len(distinct) == 1 {
		switch c := distinct[0]; {
		case c == '/':
			return &dnode{slash: true, eq: b.build(items, depth+1, false)}
		case b.full || discriminate:
			return &dnode{char: c, eq: b.build(items, depth+1, false)}
		default:
			n := b.runLength(items, depth)
			return &dnode{skip: n, eq: b.build(items, depth+n, false)}
		}
	}

	// Pick the median of the non-'/' characters; '/' cannot carry jumps,
	// so it is always reached through a branch.
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })
	pivots := distinct[:0:0]
	for _, c := range distinct {
		if c != '/' {
			pivots = append(pivots, c)
		}
	}
	pivot := pivots[len(pivots)/2]

	var ltItems, eqItems, gtItems []*cell
	for _, it := range items {
		switch c := it.def.Name[depth]; {
		case c == pivot:
			eqItems = append(eqItems, it)
		case c < pivot:
			ltItems = append(ltItems, it)
		default:
			gtItems = append(gtItems, it)
		}
	}

	n := &dnode{char: pivot, eq: b.build(eqItems, depth+1, false)}
	if len(ltItems) > 0 {
		n.lt = b.build(ltItems, depth, true)
	}
	if len(gtItems) > 0 {
		n.gt = b.build(gtItems, depth, true)
	}
	return n
}

// runLength measures how many characters all items share from depth on,
// bounded by the skip token's maximum of 0x1f.
func (b *dirBuilder) runLength(items []*cell, depth int) int {
	n := 0
	for n < 0x1f {
		pos := depth + n
		c := byte(0)
		for _, it := range items {
			name := it.def.Name
			if len(name) <= pos || name[pos] == '/' {
				return max(n, 1)
			}
			if c == 0 {
				c = name[pos]
			} else if name[pos] != c {
				return max(n, 1)
			}
		}
		n++
	}
	return n
}

func contains(s []byte, c byte) bool {
	for _, x := range s {
		if x == c {
			return true
		}
	}
	return false
}

func leafPayload(c *cell) []byte {
	out := []byte{0x80 | byte(c.typ)}
	if !c.typ.IsFixed() {
		out = vlq.Append(out, uint64(c.size))
	}
	return vlq.Append(out, uint64(c.offset))
}

// measure computes the encoded size of every node. The jump widths and the
// sizes they jump over depend on each other, so char nodes iterate to a
// fixpoint; widths only ever grow.
func (n *dnode) measure() int {
	switch {
	case n.leaf != nil:
		n.size = len(n.leaf)
	case n.slash || n.skip != 0:
		n.size = 1 + n.eq.measure()
	default:
		eq := n.eq.measure()
		lt, gt := 0, 0
		if n.lt != nil {
			lt = n.lt.measure()
		}
		if n.gt != nil {
			gt = n.gt.measure()
		}

		n.lw, n.gw = 1, 1
		for {
			jl, jg := n.jumps(eq, lt)
			lw, gw := vlq.Len(jl), vlq.Len(jg)
			if lw == n.lw && gw == n.gw {
				break
			}
			n.lw, n.gw = lw, gw
		}
		n.size = 1 + n.lw + n.gw + eq + lt + gt
	}
	return n.size
}

// jumps returns the two jump values of a char node, relative to the last
// byte of their own encoding. The eq expression follows the jumps
// immediately, then the lt block, then the gt block.
func (n *dnode) jumps(eqSize, ltSize int) (jl, jg uint64) {
	if n.lt != nil {
		jl = uint64(1 + n.gw + eqSize)
	}
	if n.gt != nil {
		jg = uint64(1 + eqSize + ltSize)
	}
	return jl, jg
}

func (n *dnode) serialize(out []byte) []byte {
	switch {
	case n.leaf != nil:
		return append(out, n.leaf...)
	case n.slash:
		return n.eq.serialize(append(out, '/'))
	case n.skip != 0:
		return n.eq.serialize(append(out, byte(n.skip)))
	default:
		eqSize, ltSize := n.eq.size, 0
		if n.lt != nil {
			ltSize = n.lt.size
		}
		jl, jg := n.jumps(eqSize, ltSize)

		out = append(out, n.char)
		out = vlq.Append(out, jl)
		out = vlq.Append(out, jg)
		out = n.eq.serialize(out)
		if n.lt != nil {
			out = n.lt.serialize(out)
		}
		if n.gt != nil {
			out = n.gt.serialize(out)
		}
		return out
	}
}
