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
	"math"
)

// Cell bytes are stored host-native; only the wire format is big-endian.

// hostLittle reports whether the host is little-endian, in which case wire
// conversion of numeric cells reverses the bytes.
var hostLittle = func() bool {
	return binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 1
}()

// loadRaw reads a fixed-width cell value from its native representation.
func loadRaw(t Type, raw []byte) uint64 {
	switch t.Size() {
	case 1:
		return uint64(raw[0])
	case 2:
		return uint64(binary.NativeEndian.Uint16(raw))
	case 4:
		return uint64(binary.NativeEndian.Uint32(raw))
	case 8:
		return binary.NativeEndian.Uint64(raw)
	}
	return 0
}

// storeRaw writes a fixed-width cell value in its native representation.
func storeRaw(t Type, raw []byte, v uint64) {
	switch t.Size() {
	case 1:
		raw[0] = byte(v)
	case 2:
		binary.NativeEndian.PutUint16(raw, uint16(v))
	case 4:
		binary.NativeEndian.PutUint32(raw, uint32(v))
	case 8:
		binary.NativeEndian.PutUint64(raw, v)
	}
}

// scalar is the exact value of a fixed-width cell, decoupled from its width.
type scalar struct {
	f      float64
	i      int64
	u      uint64
	signed bool
	float  bool
}

func decodeScalar(t Type, raw []byte) scalar {
	bits := loadRaw(t, raw)
	switch {
	case t.Data() == Float:
		return scalar{float: true, f: float64(math.Float32frombits(uint32(bits)))}
	case t.Data() == Double:
		return scalar{float: true, f: math.Float64frombits(bits)}
	case t.IsSigned():
		// Sign-extend from the cell's width.
		shift := 64 - uint(t.Size())*8
		return scalar{signed: true, i: int64(bits<<shift) >> shift}
	default:
		return scalar{u: bits}
	}
}

func encodeScalar(t Type, raw []byte, s scalar) {
	switch {
	case t.Data() == Float:
		storeRaw(t, raw, uint64(math.Float32bits(float32(s.toFloat()))))
	case t.Data() == Double:
		storeRaw(t, raw, math.Float64bits(s.toFloat()))
	case t.Data() == Bool:
		var v uint64
		if s.toBool() {
			v = 1
		}
		storeRaw(t, raw, v)
	case t.IsSigned():
		storeRaw(t, raw, uint64(s.toInt(uint(t.Size())*8)))
	default:
		storeRaw(t, raw, s.toUint(uint(t.Size())*8))
	}
}

func (s scalar) toFloat() float64 {
	switch {
	case s.float:
		return s.f
	case s.signed:
		return float64(s.i)
	default:
		return float64(s.u)
	}
}

func (s scalar) toBool() bool {
	switch {
	case s.float:
		return s.f != 0 && !math.IsNaN(s.f)
	case s.signed:
		return s.i != 0
	default:
		return s.u != 0
	}
}

// toInt converts to a signed integer of the given width, saturating at the
// representable range. NaN maps to 0.
func (s scalar) toInt(bits uint) int64 {
	maxv := int64(1)<<(bits-1) - 1
	minv := -int64(1) << (bits - 1)
	switch {
	case s.float:
		f := math.Round(s.f)
		switch {
		case math.IsNaN(f):
			return 0
		case f >= float64(maxv):
			return maxv
		case f <= float64(minv):
			return minv
		default:
			return int64(f)
		}
	case s.signed:
		return min(max(s.i, minv), maxv)
	default:
		if s.u > uint64(maxv) {
			return maxv
		}
		return int64(s.u)
	}
}

// toUint converts to an unsigned integer of the given width, saturating.
func (s scalar) toUint(bits uint) uint64 {
	maxv := uint64(1)<<(bits-1)<<1 - 1
	switch {
	case s.float:
		f := math.Round(s.f)
		switch {
		case math.IsNaN(f) || f <= 0:
			return 0
		case f >= float64(maxv):
			return maxv
		default:
			return uint64(f)
		}
	case s.signed:
		if s.i < 0 {
			return 0
		}
		return min(uint64(s.i), maxv)
	default:
		return min(s.u, maxv)
	}
}

func scalarOf[T Number](val T) scalar {
	switch v := any(val).(type) {
	case bool:
		if v {
			return scalar{u: 1}
		}
		return scalar{}
	case int8:
		return scalar{signed: true, i: int64(v)}
	case int16:
		return scalar{signed: true, i: int64(v)}
	case int32:
		return scalar{signed: true, i: int64(v)}
	case int64:
		return scalar{signed: true, i: v}
	case uint8:
		return scalar{u: uint64(v)}
	case uint16:
		return scalar{u: uint64(v)}
	case uint32:
		return scalar{u: uint64(v)}
	case uint64:
		return scalar{u: v}
	case float32:
		return scalar{float: true, f: float64(v)}
	case float64:
		return scalar{float: true, f: v}
	}
	return scalar{}
}

func scalarTo[T Number](s scalar) T {
	var out T
	switch any(out).(type) {
	case bool:
		out = any(s.toBool()).(T)
	case int8:
		out = any(int8(s.toInt(8))).(T)
	case int16:
		out = any(int16(s.toInt(16))).(T)
	case int32:
		out = any(int32(s.toInt(32))).(T)
	case int64:
		out = any(s.toInt(64)).(T)
	case uint8:
		out = any(uint8(s.toUint(8))).(T)
	case uint16:
		out = any(uint16(s.toUint(16))).(T)
	case uint32:
		out = any(uint32(s.toUint(32))).(T)
	case uint64:
		out = any(s.toUint(64)).(T)
	case float32:
		out = any(float32(s.toFloat())).(T)
	case float64:
		out = any(s.toFloat()).(T)
	}
	return out
}

// As converts a value between any two fixed-width cell value types with
// saturating semantics: out-of-range values clamp to the destination's
// representable range, NaN maps to 0.
func As[T Number, F Number](val F) T {
	return scalarTo[T](scalarOf(val))
}
