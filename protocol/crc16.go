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

package protocol

import (
	"github.com/DEMCON/stored-go/internal/crc16"
	"github.com/DEMCON/stored-go/internal/debug"
)

// Crc16Layer appends a big-endian CRC-16 to every message going down and
// verifies and strips it going up. Corrupt frames are dropped silently;
// recovery is a higher layer's job (see [ArqLayer]).
type Crc16Layer struct {
	Base
	crc uint16
}

// NewCrc16Layer returns a new Crc16Layer.
func NewCrc16Layer() *Crc16Layer {
	return &Crc16Layer{crc: 0xffff}
}

// Encode implements [Layer]. Chunks stream through; the CRC trails the
// last one.
func (l *Crc16Layer) Encode(buf []byte, last bool) {
	l.crc = crc16.Update(l.crc, buf)
	if !last {
		l.Base.Encode(buf, false)
		return
	}

	crc := l.crc
	l.crc = 0xffff
	l.Base.Encode(buf, false)
	l.Base.Encode([]byte{byte(crc >> 8), byte(crc)}, true)
}

// Decode implements [Layer].
func (l *Crc16Layer) Decode(buf []byte) {
	if len(buf) < 2 {
		return
	}

	payload := buf[:len(buf)-2]
	want := uint16(buf[len(buf)-2])<<8 | uint16(buf[len(buf)-1])
	if crc16.Checksum(payload) != want {
		debug.Log("crc16", "dropping corrupt frame of %d bytes", len(buf))
		return
	}
	l.Base.Decode(payload)
}

// MTU implements [Layer].
func (l *Crc16Layer) MTU() int {
	m := l.Base.MTU()
	if m == 0 {
		return 0
	}
	if m <= 2 {
		return 1
	}
	return m - 2
}

// Reset implements [Layer].
func (l *Crc16Layer) Reset() {
	l.crc = 0xffff
	l.Base.Reset()
}
