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
	"sync/atomic"

	"github.com/DEMCON/stored-go/internal/vlq"
)

// Fifo is a lock-free single-producer/single-consumer byte ring with a
// fixed capacity, framed per message: every push records a length prefix.
// One goroutine may push while one other receives; the indices are the
// only shared state, written with release and read with acquire semantics
// (Go's atomics provide both).
//
// Nothing is allocated after construction.
type Fifo struct {
	buf []byte

	// Free-running; position is the index modulo capacity. head is owned
	// by the consumer, tail by the producer.
	head, tail atomic.Uint64

	overflow func() bool
	scratch  []byte
	prefix   []byte
}

// NewFifo returns a ring holding up to capacity bytes of framed messages.
func NewFifo(capacity int) *Fifo {
	return &Fifo{
		buf:     make([]byte, capacity),
		scratch: make([]byte, capacity),
		prefix:  make([]byte, 0, 10),
	}
}

// SetOverflowHandler installs the producer-side overflow handler: it is
// invoked when a push does not fit and pushing retries as long as it
// returns true. Without a handler, pushes that do not fit are dropped.
func (f *Fifo) SetOverflowHandler(fn func() bool) { f.overflow = fn }

// Space returns the free bytes, including length-prefix overhead.
func (f *Fifo) Space() int {
	return len(f.buf) - int(f.tail.Load()-f.head.Load())
}

// Full reports whether no more bytes fit.
func (f *Fifo) Full() bool { return f.Space() == 0 }

// Empty reports whether there is nothing to receive.
func (f *Fifo) Empty() bool { return f.tail.Load() == f.head.Load() }

// Push appends one message, returning the number of payload bytes
// accepted: len(p) on success, 0 when dropped. A message that can never
// fit is dropped without consulting the overflow handler.
func (f *Fifo) Push(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	need := vlq.Len(uint64(len(p))) + len(p)
	if need > len(f.buf) {
		return 0
	}

	for f.Space() < need {
		if f.overflow == nil || !f.overflow() {
			return 0
		}
	}

	tail := f.tail.Load()
	f.prefix = vlq.Append(f.prefix[:0], uint64(len(p)))
	tail = f.write(tail, f.prefix)
	tail = f.write(tail, p)
	f.tail.Store(tail)
	return len(p)
}

func (f *Fifo) write(tail uint64, p []byte) uint64 {
	pos := int(tail % uint64(len(f.buf)))
	n := copy(f.buf[pos:], p)
	copy(f.buf, p[n:])
	return tail + uint64(len(p))
}

// Recv pops at most one message and passes it to sink.Decode, reporting
// whether a message was delivered. The ring space is released before the
// sink runs, so the sink may push a response into the opposite ring.
func (f *Fifo) Recv(sink Layer) bool {
	head := f.head.Load()
	tail := f.tail.Load()
	if head == tail {
		return false
	}

	// Byte-wise VLQ read, it may wrap.
	var size uint64
	for {
		c := f.buf[head%uint64(len(f.buf))]
		head++
		size = size<<7 | uint64(c&0x7f)
		if c < 0x80 {
			break
		}
	}

	pos := int(head % uint64(len(f.buf)))
	n := copy(f.scratch[:size], f.buf[pos:])
	copy(f.scratch[n:size], f.buf)
	f.head.Store(head + size)

	sink.Decode(f.scratch[:size])
	return true
}

// RecvAll drains the ring into sink, returning the number of messages
// delivered.
func (f *Fifo) RecvAll(sink Layer) int {
	n := 0
	for f.Recv(sink) {
		n++
	}
	return n
}
