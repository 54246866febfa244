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

// Variant is a type-erased handle to a cell: the store, the type tag, and
// the cell's offset and length (for function cells, the function index).
//
// Variants are small values; copy them freely. They borrow the store and
// are valid for the store's lifetime.
type Variant struct {
	store  *Store
	typ    Type
	offset int
	size   int
}

// Valid reports whether the variant refers to a cell.
func (v Variant) Valid() bool { return v.store != nil && v.typ != Invalid }

// Type returns the cell's type tag.
func (v Variant) Type() Type { return v.typ }

// Len returns the cell's length in bytes.
func (v Variant) Len() int { return v.size }

// Store returns the store this variant points into.
func (v Variant) Store() *Store { return v.store }

// Key returns the cell's stable identity within its store: the buffer
// offset for data cells, and a disjoint numbering beyond the buffer for
// function cells.
func (v Variant) Key() int {
	if !v.Valid() {
		return -1
	}
	if v.typ.IsFunction() {
		return len(v.store.buffer) + v.offset
	}
	return v.offset
}

// Get reads the cell into dst, returning the number of bytes produced. Data
// cells run the read hooks; function cells dispatch into the store's
// function table.
func (v Variant) Get(dst []byte) int {
	if !v.Valid() {
		return 0
	}
	if v.typ.IsFunction() {
		return v.store.callFunction(v.offset, false, dst)
	}
	return v.store.getData(v.typ, v.store.cellAt(v.offset, v.size), dst)
}

// Set writes the cell from src, returning the number of bytes consumed.
// Fixed-width cells require exactly their size; a string shorter than the
// cell zeroes the tail; a blob write may be partial. Data cells run the
// write hooks.
func (v Variant) Set(src []byte) int {
	if !v.Valid() {
		return 0
	}
	if v.typ.IsFunction() {
		return v.store.callFunction(v.offset, true, src)
	}
	if v.typ.IsFixed() && len(src) != v.size {
		return 0
	}
	if len(src) > v.size {
		return 0
	}
	fill := v.typ.Data() == String
	return v.store.setData(v.typ, v.store.cellAt(v.offset, v.size), src, fill)
}

// Value reads a cell's value converted to T, reporting why that is not
// possible: [ErrInvalid] for an invalid variant, [ErrTypeSize] for a cell
// without a fixed-width value.
func Value[T Number](v Variant) (T, error) {
	var zero T
	switch {
	case !v.Valid():
		return zero, ErrInvalid
	case !v.typ.IsFixed():
		return zero, ErrTypeSize
	}
	raw := make([]byte, v.size)
	if v.Get(raw) != v.size {
		return zero, ErrTypeSize
	}
	return scalarTo[T](decodeScalar(v.typ, raw)), nil
}

// Get reads a cell's value converted to T with saturating semantics.
// Returns the zero value for invalid variants and non-fixed cells.
func Get[T Number](v Variant) T {
	var zero T
	if !v.Valid() || !v.typ.IsFixed() {
		return zero
	}
	raw := make([]byte, v.size)
	if v.Get(raw) != v.size {
		return zero
	}
	return scalarTo[T](decodeScalar(v.typ, raw))
}

// Set writes a cell's value converted from T with saturating semantics.
func Set[T Number](v Variant, val T) {
	if !v.Valid() || !v.typ.IsFixed() {
		return
	}
	raw := make([]byte, v.size)
	encodeScalar(v.typ, raw, scalarOf(val))
	v.Set(raw)
}
