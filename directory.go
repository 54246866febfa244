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
	"github.com/DEMCON/stored-go/internal/vlq"
)

// A directory is an immutable byte string describing a binary search over
// name characters:
//
//	expr ::= '/' expr                      hierarchy separator
//	       | char jmp_l jmp_g expr e_l e_g compare char, VLQ jumps on </>
//	       | skip expr                     skip 1..0x1f non-/ characters
//	       | var                           leaf: type [size] offset
//	       | 0                             end
//
// A jump is added to the position of its own last byte, so a jump of zero
// lands on its 0x00 byte, which reads as end. Leaves have bit 7 of the type
// byte set; blob and string leaves carry an explicit size.

// Entry describes a cell found in a directory. For function cells Offset is
// an index into the store's function table instead of a buffer offset.
type Entry struct {
	Type   Type
	Size   int
	Offset int
}

// Lookup finds name in a directory. It is a pure function over the
// directory bytes.
//
// Names may be abbreviated: a lookup succeeds if and only if exactly one
// leaf is reachable given the supplied characters.
func Lookup(directory []byte, name string) (Entry, bool) {
	e, n := lookup(directory, name)
	return e, n == 1
}

// lookup reports how many leaves the supplied name reaches: 0, 1, or 2 for
// "several".
func lookup(directory []byte, name string) (Entry, int) {
	p, i := 0, 0
	for p < len(directory) {
		b := directory[p]
		switch {
		case b == 0:
			return Entry{}, 0
		case b >= 0x80:
			return decodeEntry(directory, p), 1
		case i >= len(name):
			return countLeaves(directory, p, 2)
		case b == '/':
			for i < len(name) && name[i] != '/' {
				i++
			}
			if i == len(name) {
				return countLeaves(directory, p, 2)
			}
			i++
			p++
		case b <= 0x1f:
			for n := int(b); n > 0 && i < len(name) && name[i] != '/'; n-- {
				i++
			}
			p++
		default:
			jl, afterL := vlq.Decode(directory, p+1)
			jg, afterG := vlq.Decode(directory, afterL)
			switch c := name[i]; {
			case c == b:
				i++
				p = afterG
			case c < b:
				p = afterL - 1 + int(jl)
			default:
				p = afterG - 1 + int(jg)
			}
		}
	}
	return Entry{}, 0
}

// countLeaves counts the leaves reachable from p, giving up at limit. An
// exhausted name still resolves when exactly one leaf remains reachable.
func countLeaves(directory []byte, p, limit int) (Entry, int) {
	var found Entry
	count := 0
	for p < len(directory) && count < limit {
		b := directory[p]
		switch {
		case b == 0:
			return found, count
		case b >= 0x80:
			return decodeEntry(directory, p), count + 1
		case b == '/' || b <= 0x1f:
			p++
		default:
			jl, afterL := vlq.Decode(directory, p+1)
			jg, afterG := vlq.Decode(directory, afterL)
			if e, n := countLeaves(directory, afterL-1+int(jl), limit-count); n > 0 {
				found = e
				count += n
			}
			if count >= limit {
				return found, count
			}
			if e, n := countLeaves(directory, afterG-1+int(jg), limit-count); n > 0 {
				found = e
				count += n
			}
			p = afterG
		}
	}
	return found, count
}

func decodeEntry(directory []byte, p int) Entry {
	typ := Type(directory[p] &^ 0x80)
	p++

	var size uint64
	if typ.IsFixed() {
		size = uint64(typ.Size())
	} else {
		size, p = vlq.Decode(directory, p)
	}
	offset, _ := vlq.Decode(directory, p)

	return Entry{Type: typ, Size: int(size), Offset: int(offset)}
}

// List walks all leaves of a directory, invoking fn with the reconstructed
// name of every cell. Characters hidden by skip tokens are reported as '?';
// use the full-name directory if exact names matter.
func List(directory []byte, fn func(name string, e Entry)) {
	listDir(directory, 0, nil, fn)
}

func listDir(directory []byte, p int, name []byte, fn func(string, Entry)) {
	for p < len(directory) {
		b := directory[p]
		switch {
		case b == 0:
			return
		case b >= 0x80:
			fn(string(name), decodeEntry(directory, p))
			return
		case b <= 0x1f:
			for range int(b) {
				name = append(name, '?')
			}
			p++
		case b == '/':
			name = append(name, '/')
			p++
		default:
			jl, afterL := vlq.Decode(directory, p+1)
			jg, afterG := vlq.Decode(directory, afterL)
			listDir(directory, afterL-1+int(jl), name, fn)
			listDir(directory, afterG-1+int(jg), name, fn)
			name = append(name, b)
			p = afterG
		}
	}
}
