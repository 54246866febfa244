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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"

	stored "github.com/DEMCON/stored-go"
)

// Compile turns a definition into a store image. funcs supplies the
// implementation of every function cell by name; missing entries leave a
// nil slot that reads and writes as empty.
//
// The caller's definition is not modified.
func Compile(def *Def, funcs map[string]stored.Func) (stored.StoreData, error) {
	def = def.Clone()
	if err := def.validate(); err != nil {
		return stored.StoreData{}, err
	}

	cells, size, err := layout(def)
	if err != nil {
		return stored.StoreData{}, err
	}

	buffer := make([]byte, size)
	table := make([]stored.Func, 0, len(def.Cells))
	for _, c := range cells {
		if c.typ.IsFunction() {
			table = append(table, funcs[c.def.Name])
			continue
		}
		if c.def.Init != nil {
			if err := encodeInit(buffer[c.offset:c.offset+c.size], c); err != nil {
				return stored.StoreData{}, err
			}
		}
	}

	short, err := buildDirectory(cells, false)
	if err != nil {
		return stored.StoreData{}, err
	}
	long, err := buildDirectory(cells, true)
	if err != nil {
		return stored.StoreData{}, err
	}

	return stored.StoreData{
		Name:          def.Name,
		Hash:          hash(def, cells),
		Buffer:        buffer,
		Directory:     short,
		LongDirectory: long,
		Functions:     table,
	}, nil
}

// MustCompile is [Compile] for static definitions; it panics on error.
func MustCompile(def *Def, funcs map[string]stored.Func) stored.StoreData {
	data, err := Compile(def, funcs)
	if err != nil {
		panic(err)
	}
	return data
}

// cell is a laid-out cell: its resolved type and buffer offset (or
// function index).
type cell struct {
	def    *Cell
	typ    stored.Type
	size   int
	offset int
}

// layout assigns buffer offsets, widest cells first so that every numeric
// cell is naturally aligned, and function indices in definition order.
func layout(def *Def) ([]cell, int, error) {
	cells := make([]cell, len(def.Cells))
	fnIndex := 0
	for i := range def.Cells {
		c := &def.Cells[i]
		t, err := c.cellType()
		if err != nil {
			return nil, 0, err
		}
		size := c.Size
		if t.IsFixed() {
			size = t.Size()
		}
		cells[i] = cell{def: c, typ: t, size: size}
		if t.IsFunction() {
			cells[i].offset = fnIndex
			fnIndex++
		}
	}

	data := make([]*cell, 0, len(cells))
	for i := range cells {
		if !cells[i].typ.IsFunction() {
			data = append(data, &cells[i])
		}
	}
	sort.SliceStable(data, func(i, j int) bool {
		return align(data[i]) > align(data[j])
	})

	offset := 0
	for _, c := range data {
		c.offset = offset
		offset += c.size
	}
	return cells, offset, nil
}

func align(c *cell) int {
	if c.typ.IsFixed() {
		return c.size
	}
	return 1
}

func encodeInit(raw []byte, c cell) error {
	bad := func() error {
		return descErr(stored.ErrFormat, "%q: bad initial value %v", c.def.Name, c.def.Init)
	}

	switch c.typ.Data() {
	case stored.Blob:
		s, ok := c.def.Init.(string)
		if !ok {
			return bad()
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return bad()
		}
		if len(b) > len(raw) {
			return descErr(stored.ErrOverflow, "%q: %d initial bytes in a %d byte cell", c.def.Name, len(b), len(raw))
		}
		copy(raw, b)
	case stored.String:
		s, ok := c.def.Init.(string)
		if !ok {
			return bad()
		}
		if len(s) > len(raw) {
			return descErr(stored.ErrOverflow, "%q: %d initial bytes in a %d byte cell", c.def.Name, len(s), len(raw))
		}
		copy(raw, s)
	default:
		bits, err := initBits(c)
		if err != nil {
			return err
		}
		switch len(raw) {
		case 1:
			raw[0] = byte(bits)
		case 2:
			binary.NativeEndian.PutUint16(raw, uint16(bits))
		case 4:
			binary.NativeEndian.PutUint32(raw, uint32(bits))
		case 8:
			binary.NativeEndian.PutUint64(raw, bits)
		}
	}
	return nil
}

// initBits renders a YAML scalar as the cell's native bit pattern.
func initBits(c cell) (uint64, error) {
	t := c.typ.Data()

	var f float64
	switch v := c.def.Init.(type) {
	case bool:
		if t != stored.Bool {
			return 0, descErr(stored.ErrFormat, "%q: bool initializer for %v", c.def.Name, t)
		}
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		if t.IsInt() {
			return uint64(int64(v)), nil
		}
		f = float64(v)
	case int64:
		if t.IsInt() {
			return uint64(v), nil
		}
		f = float64(v)
	case uint64:
		if t.IsInt() {
			return v, nil
		}
		f = float64(v)
	case float64:
		if t.IsInt() && v == math.Trunc(v) {
			return uint64(int64(v)), nil
		}
		f = v
	default:
		return 0, descErr(stored.ErrFormat, "%q: bad initial value %v", c.def.Name, c.def.Init)
	}

	switch t {
	case stored.Float:
		return uint64(math.Float32bits(float32(f))), nil
	case stored.Double:
		return math.Float64bits(f), nil
	default:
		return 0, descErr(stored.ErrFormat, "%q: bad initial value %v", c.def.Name, c.def.Init)
	}
}

// hash fingerprints the schema: two stores with the same hash have the
// same cells at the same offsets. The buffer content does not contribute.
func hash(def *Def, cells []cell) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(h, "%s\n", def.Name)
	for _, c := range cells {
		fmt.Fprintf(h, "%s\x00%02x %x %x\n", c.def.Name, uint8(c.typ), c.size, c.offset)
	}
	return hex.EncodeToString(h.Sum(nil))
}
