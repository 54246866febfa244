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

import "github.com/DEMCON/stored-go/internal/debug"

// ArqLayer header bits. Bits 5..0 carry the sequence number; data
// sequences cycle through 1..63, sequence 0 only occurs in the reset
// handshake that starts a connection.
const (
	arqAck   = 0x80
	arqReset = 0x40
	arqSeq   = 0x3f
)

// ArqLayer provides reliable in-order delivery over a lossy frame channel,
// as a stop-and-wait automatic repeat request per direction. Each data
// frame carries a sequence number that the receiver acknowledges by
// echoing; unacknowledged frames are retransmitted on [ArqLayer.Tick],
// duplicates are acknowledged and dropped.
//
// The layer never blocks: messages encoded while a frame is in flight
// queue up and leave as acknowledgements come in. Time is external; call
// Tick at the retransmission granularity.
type ArqLayer struct {
	Base

	retransmitTicks int
	maxRetries      int
	onClosed        func()

	// Send direction.
	sendSeq     uint8 // seq of the next frame to send
	synced      bool  // reset handshake completed
	outstanding []byte
	queue       [][]byte
	encodeBuf   []byte
	ticks       int
	retries     int

	// Receive direction.
	expectSeq uint8 // 0 = accept anything
	closed    bool
}

// ArqOption is a configuration setting for [NewArqLayer].
type ArqOption struct{ apply func(*ArqLayer) }

// WithRetransmit sets the number of ticks before an unacknowledged frame is
// retransmitted and how often before the channel is declared dead.
func WithRetransmit(ticks, retries int) ArqOption {
	return ArqOption{func(l *ArqLayer) {
		l.retransmitTicks = ticks
		l.maxRetries = retries
	}}
}

// WithClosedCallback registers a callback invoked when the channel dies.
func WithClosedCallback(fn func()) ArqOption {
	return ArqOption{func(l *ArqLayer) { l.onClosed = fn }}
}

// NewArqLayer returns a new ArqLayer.
func NewArqLayer(opts ...ArqOption) *ArqLayer {
	l := &ArqLayer{
		retransmitTicks: 10,
		maxRetries:      10,
	}
	for _, o := range opts {
		o.apply(l)
	}
	return l
}

func nextSeq(s uint8) uint8 { return s%63 + 1 }

// Encode implements [Layer].
func (l *ArqLayer) Encode(buf []byte, last bool) {
	if l.closed {
		return
	}
	l.encodeBuf = append(l.encodeBuf, buf...)
	if !last {
		return
	}

	frame := make([]byte, 1+len(l.encodeBuf))
	copy(frame[1:], l.encodeBuf)
	l.encodeBuf = l.encodeBuf[:0]

	if !l.synced && l.outstanding == nil && len(l.queue) == 0 {
		// New connection: open with a reset so the peer drops stale state.
		l.sendSeq = 1
		l.send([]byte{arqReset})
	}
	frame[0] = l.sendSeq
	l.sendSeq = nextSeq(l.sendSeq)

	if l.outstanding != nil {
		l.queue = append(l.queue, frame)
		return
	}
	l.send(frame)
}

func (l *ArqLayer) send(frame []byte) {
	l.outstanding = frame
	l.ticks = 0
	l.retries = 0
	l.Base.Encode(frame, true)
}

// Decode implements [Layer].
func (l *ArqLayer) Decode(buf []byte) {
	if len(buf) == 0 || l.closed {
		return
	}
	hdr := buf[0]

	switch {
	case hdr&arqAck != 0:
		l.decodeAck(hdr)
	case hdr&arqReset != 0:
		// Peer restarted; expect its stream to begin at 1.
		l.expectSeq = 1
		l.Base.Encode([]byte{arqAck | arqReset}, true)
	default:
		seq := hdr & arqSeq
		// Deliver before acknowledging: the ACK may release the peer's next
		// frame, which can arrive before this call returns.
		if l.expectSeq == 0 || seq == l.expectSeq {
			l.expectSeq = nextSeq(seq)
			l.Base.Decode(buf[1:])
		} else {
			debug.Log("arq", "dropping duplicate seq %d (expect %d)", seq, l.expectSeq)
		}
		l.Base.Encode([]byte{arqAck | seq}, true)
	}
}

func (l *ArqLayer) decodeAck(hdr byte) {
	if l.outstanding == nil {
		return
	}
	if hdr&arqReset != 0 {
		if l.outstanding[0]&arqReset == 0 {
			return
		}
		l.synced = true
	} else if hdr&arqSeq != l.outstanding[0]&arqSeq || l.outstanding[0]&arqReset != 0 {
		return
	}

	l.outstanding = nil
	if len(l.queue) > 0 {
		next := l.queue[0]
		l.queue = l.queue[1:]
		l.send(next)
	}
}

// Tick advances the retransmission clock by one step.
func (l *ArqLayer) Tick() {
	if l.closed || l.outstanding == nil {
		return
	}
	l.ticks++
	if l.ticks < l.retransmitTicks {
		return
	}

	l.retries++
	if l.retries > l.maxRetries {
		l.closed = true
		debug.Log("arq", "channel dead after %d retries", l.maxRetries)
		if l.onClosed != nil {
			l.onClosed()
		}
		return
	}
	l.ticks = 0
	l.Base.Encode(l.outstanding, true)
}

// Closed reports whether the channel has exhausted its retries.
func (l *ArqLayer) Closed() bool { return l.closed }

// Idle reports whether no frame is in flight or queued; the next Encode
// goes out immediately.
func (l *ArqLayer) Idle() bool { return l.outstanding == nil && len(l.queue) == 0 }

// MTU implements [Layer].
func (l *ArqLayer) MTU() int {
	m := l.Base.MTU()
	if m == 0 {
		return 0
	}
	if m <= 1 {
		return 1
	}
	return m - 1
}

// Flush implements [Layer].
func (l *ArqLayer) Flush() bool {
	return l.Idle() && l.Base.Flush()
}

// Reset implements [Layer]: back to an unsynchronized connection.
func (l *ArqLayer) Reset() {
	l.outstanding = nil
	l.queue = nil
	l.encodeBuf = l.encodeBuf[:0]
	l.synced = false
	l.closed = false
	l.expectSeq = 0
	l.ticks = 0
	l.retries = 0
	l.Base.Reset()
}
