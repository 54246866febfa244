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

// Package vlq implements the unsigned variable-length quantity encoding used
// by the store directory: big-endian groups of seven bits, where every byte
// except the last has the high bit set.
package vlq

// Decode decodes a VLQ starting at b[n], returning the value and the index
// one past its last byte.
//
// Decode never reads past the end of b; a truncated VLQ decodes as if the
// missing continuation bytes were absent. The directory format guarantees
// well-formed input, so no error is reported.
func Decode(b []byte, n int) (uint64, int) {
	var v uint64
	for n < len(b) {
		c := b[n]
		n++
		v = v<<7 | uint64(c&0x7f)
		if c < 0x80 {
			break
		}
	}
	return v, n
}

// Append appends the VLQ encoding of v to b.
func Append(b []byte, v uint64) []byte {
	if v == 0 {
		return append(b, 0)
	}

	var tmp [10]byte
	n := len(tmp)
	tmp[n-1] = byte(v & 0x7f)
	v >>= 7
	for v > 0 {
		n--
		tmp[n-1] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	return append(b, tmp[n-1:]...)
}

// Len returns the number of bytes Append would emit for v.
func Len(v uint64) int {
	n := 1
	for v >>= 7; v > 0; v >>= 7 {
		n++
	}
	return n
}
