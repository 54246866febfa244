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

// Package xunsafe provides raw-address access for the debugger's memory
// commands. The caller is fully responsible for the validity of the
// addresses; nothing here is checked.
package xunsafe

import "unsafe"

// Addr is a raw address.
type Addr uintptr

// AddrOf returns the address of the first byte of b.
func AddrOf(b []byte) Addr {
	return Addr(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}

// Bytes returns a slice of n bytes starting at a.
//
//go:nosplit
func (a Addr) Bytes(n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(a))), n) // Don't worry about it.
}

// Load copies n bytes starting at a into a fresh slice.
func (a Addr) Load(n int) []byte {
	out := make([]byte, n)
	copy(out, a.Bytes(n))
	return out
}

// Store copies b to the memory starting at a.
func (a Addr) Store(b []byte) {
	copy(a.Bytes(len(b)), b)
}
