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

// Package lzs implements the streaming LZSS codec used by the compress
// protocol layer, following the heatshrink bitstream layout: MSB-first bits,
// a 1 tag bit for a literal (8 bits) and a 0 tag bit for a back-reference
// (window bits of distance-1, lookahead bits of length-2).
//
// Both coder halves follow heatshrink's sink/poll calling convention so the
// layer can drive them chunk-wise without blocking.
package lzs

// Default coder parameters. The window is 2^Window bytes of history, a
// back-reference covers at most 2^Lookahead+1 bytes.
const (
	Window    = 8
	Lookahead = 4
)

const minMatch = 2

// Encoder is a streaming LZSS encoder.
type Encoder struct {
	window, lookahead int

	hist []byte // search window, at most 1<<window bytes
	in   []byte // pending input
	out  []byte // encoded bits, drained by Poll

	acc  uint32 // bit accumulator, MSB-first
	bits int
}

// NewEncoder returns an encoder with the given parameters, in bits.
func NewEncoder(window, lookahead int) *Encoder {
	e := &Encoder{window: window, lookahead: lookahead}
	e.hist = make([]byte, 0, 1<<window)
	return e
}

// Sink buffers more input. It never fails; the pending buffer grows
// monotonically to the largest chunk seen.
func (e *Encoder) Sink(p []byte) {
	e.in = append(e.in, p...)
	e.process(false)
}

// Poll moves up to len(out) encoded bytes into out, returning the count.
func (e *Encoder) Poll(out []byte) int {
	n := copy(out, e.out)
	e.out = e.out[:copy(e.out, e.out[n:])]
	return n
}

// Finish encodes all pending input, pads the bitstream to a byte boundary
// and resets the stream state. Drain with Poll afterwards.
func (e *Encoder) Finish() {
	e.process(true)
	if e.bits > 0 {
		e.out = append(e.out, byte(e.acc<<(8-e.bits)))
		e.acc, e.bits = 0, 0
	}
	e.hist = e.hist[:0]
}

func (e *Encoder) putBits(v uint32, n int) {
	for n > 0 {
		n--
		e.acc = e.acc<<1 | (v>>n)&1
		e.bits++
		if e.bits == 8 {
			e.out = append(e.out, byte(e.acc))
			e.acc, e.bits = 0, 0
		}
	}
}

func (e *Encoder) process(finish bool) {
	maxMatch := 1<<e.lookahead + 1

	// Keep a full lookahead available unless finishing, so a match is never
	// cut short by chunk boundaries.
	for len(e.in) > 0 && (finish || len(e.in) >= maxMatch) {
		limit := min(maxMatch, len(e.in))
		dist, length := e.findMatch(limit)

		if length >= minMatch {
			e.putBits(0, 1)
			e.putBits(uint32(dist-1), e.window)
			e.putBits(uint32(length-minMatch), e.lookahead)
		} else {
			length = 1
			e.putBits(1, 1)
			e.putBits(uint32(e.in[0]), 8)
		}

		e.hist = append(e.hist, e.in[:length]...)
		if excess := len(e.hist) - 1<<e.window; excess > 0 {
			e.hist = e.hist[:copy(e.hist, e.hist[excess:])]
		}
		e.in = e.in[:copy(e.in, e.in[length:])]
	}
}

// findMatch returns the longest match of the pending input within the
// history window, at most limit bytes.
func (e *Encoder) findMatch(limit int) (dist, length int) {
	for d := 1; d <= len(e.hist); d++ {
		start := len(e.hist) - d
		n := 0
		for n < limit {
			// A match may run past the window into the bytes it produces.
			var c byte
			if start+n < len(e.hist) {
				c = e.hist[start+n]
			} else {
				c = e.in[start+n-len(e.hist)]
			}
			if c != e.in[n] {
				break
			}
			n++
		}
		if n > length {
			dist, length = d, n
			if length == limit {
				break
			}
		}
	}
	return dist, length
}

// Decoder is a streaming LZSS decoder.
type Decoder struct {
	window, lookahead int

	hist []byte
	out  []byte

	acc  uint64 // pending bits, MSB-first
	bits int
}

// NewDecoder returns a decoder with the given parameters, in bits. The
// parameters must match the encoder's.
func NewDecoder(window, lookahead int) *Decoder {
	d := &Decoder{window: window, lookahead: lookahead}
	d.hist = make([]byte, 0, 1<<window)
	return d
}

// Sink feeds encoded bytes and decodes as many complete tokens as possible.
func (d *Decoder) Sink(p []byte) {
	for _, b := range p {
		d.acc = d.acc<<8 | uint64(b)
		d.bits += 8
		d.decode()
	}
}

// Poll moves up to len(out) decoded bytes into out, returning the count.
func (d *Decoder) Poll(out []byte) int {
	n := copy(out, d.out)
	d.out = d.out[:copy(d.out, d.out[n:])]
	return n
}

// Finish discards any padding bits and resets the stream state for the next
// message.
func (d *Decoder) Finish() {
	d.acc, d.bits = 0, 0
	d.hist = d.hist[:0]
}

func (d *Decoder) peek(n int) uint32 {
	return uint32(d.acc>>(d.bits-n)) & (1<<n - 1)
}

func (d *Decoder) take(n int) uint32 {
	v := d.peek(n)
	d.bits -= n
	d.acc &= 1<<d.bits - 1
	return v
}

func (d *Decoder) decode() {
	for d.bits > 0 {
		if d.peek(1) == 1 {
			if d.bits < 9 {
				return
			}
			d.take(1)
			d.emit([]byte{byte(d.take(8))})
			continue
		}

		if d.bits < 1+d.window+d.lookahead {
			return
		}
		d.take(1)
		dist := int(d.take(d.window)) + 1
		length := int(d.take(d.lookahead)) + minMatch
		if dist > len(d.hist) {
			// Corrupt stream; drop the rest and let the upper layer
			// discard the frame.
			d.acc, d.bits = 0, 0
			return
		}

		// Byte-wise so the reference may overlap the bytes it produces.
		for range length {
			d.emit([]byte{d.hist[len(d.hist)-dist]})
		}
	}
}

func (d *Decoder) emit(p []byte) {
	d.out = append(d.out, p...)
	d.hist = append(d.hist, p...)
	if excess := len(d.hist) - 1<<d.window; excess > 0 {
		d.hist = d.hist[:copy(d.hist, d.hist[excess:])]
	}
}
