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

// Segmentation markers, the last byte of every segment.
const (
	SegmentContinue = 'C'
	SegmentEnd      = 'E'
)

// SegmentationLayer splits outbound messages into segments that fit the
// channel's MTU and reassembles inbound segments. Every segment ends in a
// marker byte; 'E' closes the message. Upward it advertises an unbounded
// MTU.
type SegmentationLayer struct {
	Base
	mtu int

	encodeBuf []byte
	decodeBuf []byte
	segBuf    []byte
}

// NewSegmentationLayer returns a SegmentationLayer with the given segment
// size, including the marker byte. A size of 0 takes the MTU of the layer
// below, queried for every message.
func NewSegmentationLayer(mtu int) *SegmentationLayer {
	return &SegmentationLayer{mtu: mtu}
}

func (l *SegmentationLayer) segmentSize() int {
	m := l.mtu
	if m == 0 {
		m = l.Base.MTU()
	}
	if m < 2 {
		// No usable bound; a message becomes one segment.
		return 0
	}
	return m
}

// Encode implements [Layer].
func (l *SegmentationLayer) Encode(buf []byte, last bool) {
	l.encodeBuf = append(l.encodeBuf, buf...)
	if !last {
		return
	}

	msg := l.encodeBuf
	l.encodeBuf = l.encodeBuf[:0]

	// Every segment is a complete frame for the layers below, so each one
	// gets its own CRC, sequence number and framing.
	if m := l.segmentSize(); m != 0 {
		for len(msg) > m-1 {
			l.segBuf = append(append(l.segBuf[:0], msg[:m-1]...), SegmentContinue)
			l.Base.Encode(l.segBuf, true)
			msg = msg[m-1:]
		}
	}
	l.segBuf = append(append(l.segBuf[:0], msg...), SegmentEnd)
	l.Base.Encode(l.segBuf, true)
}

// Decode implements [Layer].
func (l *SegmentationLayer) Decode(buf []byte) {
	if len(buf) == 0 {
		return
	}

	marker := buf[len(buf)-1]
	l.decodeBuf = append(l.decodeBuf, buf[:len(buf)-1]...)

	switch marker {
	case SegmentContinue:
	case SegmentEnd:
		msg := l.decodeBuf
		l.decodeBuf = l.decodeBuf[:0]
		l.Base.Decode(msg)
	default:
		// Malformed segment; drop the partial message.
		l.decodeBuf = l.decodeBuf[:0]
	}
}

// MTU implements [Layer]: segmentation lifts the channel's bound.
func (l *SegmentationLayer) MTU() int { return 0 }

// Reset implements [Layer].
func (l *SegmentationLayer) Reset() {
	l.encodeBuf = l.encodeBuf[:0]
	l.decodeBuf = l.decodeBuf[:0]
	l.Base.Reset()
}
