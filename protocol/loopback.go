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

// Loopback is a bidirectional in-process channel: two FIFO rings, one per
// direction, with a [Layer] endpoint on each side. Wrap a chain (or a
// debugger, or a synchronizer connection) around [Loopback.A] and another
// around [Loopback.B]; each side may live on its own goroutine, delivery
// happens when that side's Process runs.
type Loopback struct {
	a2b, b2a *Fifo
	a, b     loopbackEnd
}

type loopbackEnd struct {
	Base
	out     *Fifo
	in      *Fifo
	pending []byte
}

// Encode implements [Layer]: the completed message is pushed into the
// outgoing ring.
func (e *loopbackEnd) Encode(buf []byte, last bool) {
	e.pending = append(e.pending, buf...)
	if !last {
		return
	}
	msg := e.pending
	e.pending = e.pending[:0]
	e.out.Push(msg)
}

// NewLoopback returns a loopback with rings of the given byte capacity per
// direction.
func NewLoopback(capacity int) *Loopback {
	l := &Loopback{
		a2b: NewFifo(capacity),
		b2a: NewFifo(capacity),
	}
	l.a.out, l.a.in = l.a2b, l.b2a
	l.b.out, l.b.in = l.b2a, l.a2b
	return l
}

// A returns side a's endpoint layer.
func (l *Loopback) A() Layer { return &l.a }

// B returns side b's endpoint layer.
func (l *Loopback) B() Layer { return &l.b }

// AtoB returns the ring carrying messages from side a to side b, for
// installing an overflow handler or checking capacity.
func (l *Loopback) AtoB() *Fifo { return l.a2b }

// BtoA returns the ring carrying messages from side b to side a.
func (l *Loopback) BtoA() *Fifo { return l.b2a }

// ProcessA delivers messages pending for side a.
func (l *Loopback) ProcessA() int { return l.b2a.RecvAll(&l.a) }

// ProcessB delivers messages pending for side b.
func (l *Loopback) ProcessB() int { return l.a2b.RecvAll(&l.b) }

// Process pumps both directions until they run dry, including any
// responses generated along the way. Single-threaded use only.
func (l *Loopback) Process() {
	for {
		n := l.ProcessA()
		n += l.ProcessB()
		if n == 0 {
			return
		}
	}
}
