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

package crc16

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Golden vectors for CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF, no
// reflection, no final XOR). These pin the wire format.
func TestGolden(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint16(0xffff), Checksum(nil))
	require.Equal(t, uint16(0x29b1), Checksum([]byte("123456789")))
	require.Equal(t, uint16(0xe1f0), Checksum([]byte{0x00}))
	require.Equal(t, uint16(0xb915), Checksum([]byte("A")))
}

func TestUpdateStreams(t *testing.T) {
	t.Parallel()

	whole := Checksum([]byte("hello, world"))
	crc := Update(0xffff, []byte("hello, "))
	crc = Update(crc, []byte("world"))
	require.Equal(t, whole, crc)
}
