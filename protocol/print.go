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
	"fmt"
	"io"
	"strings"
)

// PrintLayer is a pass-through layer that renders all traffic as escaped
// string literals, for watching a live stack.
type PrintLayer struct {
	Base
	w    io.Writer
	name string
}

// NewPrintLayer returns a PrintLayer writing to w. name tags the output
// when multiple stacks print to the same writer.
func NewPrintLayer(w io.Writer, name string) *PrintLayer {
	return &PrintLayer{w: w, name: name}
}

// Decode implements [Layer].
func (l *PrintLayer) Decode(buf []byte) {
	l.print("decode", buf)
	l.Base.Decode(buf)
}

// Encode implements [Layer].
func (l *PrintLayer) Encode(buf []byte, last bool) {
	if last {
		l.print("encode", buf)
	} else {
		l.print("encode...", buf)
	}
	l.Base.Encode(buf, last)
}

func (l *PrintLayer) print(dir string, buf []byte) {
	if l.name != "" {
		fmt.Fprintf(l.w, "%s %s %s\n", l.name, dir, StringLiteral(buf))
	} else {
		fmt.Fprintf(l.w, "%s %s\n", dir, StringLiteral(buf))
	}
}

// StringLiteral renders binary data the way it would read in source code,
// which comes in handy for verbose output of protocol messages.
func StringLiteral(buf []byte) string {
	var s strings.Builder
	s.Grow(len(buf) + 2)
	for _, b := range buf {
		switch b {
		case 0:
			s.WriteString(`\0`)
		case '\r':
			s.WriteString(`\r`)
		case '\n':
			s.WriteString(`\n`)
		case '\t':
			s.WriteString(`\t`)
		case '\\':
			s.WriteString(`\\`)
		default:
			if b < 0x20 || b >= 0x7f {
				fmt.Fprintf(&s, `\x%02x`, b)
			} else {
				s.WriteByte(b)
			}
		}
	}
	return s.String()
}
