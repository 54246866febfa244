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

import "io"

// Terminal out-of-band framing: debugger frames travel inside an ordinary
// application byte stream, bracketed by APC escape sequences.
const (
	TerminalEsc   = 0x1b
	terminalStart = '_'  // ESC _ opens a debug frame
	terminalEnd   = '\\' // ESC \ closes it
)

// TerminalLayer carries debugger frames out-of-band inside a terminal byte
// stream. On decode, bracketed frames go up and everything else goes to the
// non-debug writer; on encode, the frame is bracketed.
type TerminalLayer struct {
	Base
	nonDebug io.Writer

	frame   []byte
	inFrame bool
	esc     bool
}

// NewTerminalLayer returns a TerminalLayer passing non-debug decode bytes
// to w. A nil writer discards them.
func NewTerminalLayer(w io.Writer) *TerminalLayer {
	if w == nil {
		w = io.Discard
	}
	return &TerminalLayer{nonDebug: w}
}

// Encode implements [Layer].
func (l *TerminalLayer) Encode(buf []byte, last bool) {
	l.Base.Encode([]byte{TerminalEsc, terminalStart}, false)
	l.Base.Encode(buf, false)
	l.Base.Encode([]byte{TerminalEsc, terminalEnd}, last)
}

// Decode implements [Layer].
func (l *TerminalLayer) Decode(buf []byte) {
	for _, b := range buf {
		switch {
		case l.esc:
			l.esc = false
			switch {
			case !l.inFrame && b == terminalStart:
				l.inFrame = true
				l.frame = l.frame[:0]
			case l.inFrame && b == terminalEnd:
				l.inFrame = false
				l.Base.Decode(l.frame)
			case l.inFrame:
				// Not a terminator; the ESC was frame data.
				l.frame = append(l.frame, TerminalEsc, b)
			default:
				_, _ = l.nonDebug.Write([]byte{TerminalEsc, b})
			}
		case b == TerminalEsc:
			l.esc = true
		case l.inFrame:
			l.frame = append(l.frame, b)
		default:
			_, _ = l.nonDebug.Write([]byte{b})
		}
	}
}

// MTU implements [Layer].
func (l *TerminalLayer) MTU() int {
	m := l.Base.MTU()
	if m == 0 {
		return 0
	}
	if m <= 4 {
		return 1
	}
	return m - 4
}

// Reset implements [Layer].
func (l *TerminalLayer) Reset() {
	l.inFrame = false
	l.esc = false
	l.frame = l.frame[:0]
	l.Base.Reset()
}
