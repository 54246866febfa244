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

// AsciiEscape is the escape byte of [AsciiEscapeLayer]: DEL, the one
// printable-range byte that terminals do not render.
const AsciiEscape = 0x7f

// AsciiEscapeLayer makes frames safe for text channels: on encode, every
// byte outside [0x20..0x7e] and the escape byte itself are replaced by the
// escape byte followed by the original XOR 0x40. Decode inverts.
type AsciiEscapeLayer struct {
	Base
	encodeBuf []byte
	decodeBuf []byte
	escaped   bool
}

// NewAsciiEscapeLayer returns a new AsciiEscapeLayer.
func NewAsciiEscapeLayer() *AsciiEscapeLayer {
	return &AsciiEscapeLayer{}
}

func asciiNeedsEscape(b byte) bool {
	return b < 0x20 || b >= AsciiEscape
}

// Encode implements [Layer].
func (l *AsciiEscapeLayer) Encode(buf []byte, last bool) {
	out := l.encodeBuf[:0]
	for _, b := range buf {
		if asciiNeedsEscape(b) {
			out = append(out, AsciiEscape, b^0x40)
		} else {
			out = append(out, b)
		}
	}
	l.encodeBuf = out[:0]
	l.Base.Encode(out, last)
}

// Decode implements [Layer].
func (l *AsciiEscapeLayer) Decode(buf []byte) {
	out := l.decodeBuf[:0]
	for _, b := range buf {
		switch {
		case l.escaped:
			out = append(out, b^0x40)
			l.escaped = false
		case b == AsciiEscape:
			l.escaped = true
		default:
			out = append(out, b)
		}
	}
	l.decodeBuf = out[:0]
	l.Base.Decode(out)
}

// MTU implements [Layer]. Worst case every byte escapes, so half of the
// layer below.
func (l *AsciiEscapeLayer) MTU() int {
	m := l.Base.MTU()
	if m == 0 {
		return 0
	}
	return m / 2
}

// Reset implements [Layer].
func (l *AsciiEscapeLayer) Reset() {
	l.escaped = false
	l.Base.Reset()
}
