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

// Package protocol implements the Embedded Debugger protocol stack: a
// bidirectional chain of layers between an application (a debugger or
// synchronizer) at the top and a byte transport at the bottom.
//
// Bytes flow up through [Layer.Decode] and down through [Layer.Encode]. A
// logical message may be encoded in chunks; last=true marks its final
// chunk. Layers are composed with [Wrap] or [Stack]; neither side owns the
// other, the aggregate that creates the chain does.
//
// No layer blocks. Working buffers grow monotonically to the largest frame
// seen and are reused. Encoding is not allocation-free: [ArqLayer]
// allocates a fresh frame for every message it encodes.
package protocol

// Layer is one node in the duplex protocol chain.
type Layer interface {
	// Decode accepts bytes flowing up, from the transport toward the
	// application.
	Decode(buf []byte)

	// Encode accepts bytes flowing down, from the application toward the
	// transport. last marks the final chunk of the logical message.
	Encode(buf []byte, last bool)

	// MTU returns the maximum number of bytes this layer accepts per
	// encoded message; 0 means unbounded.
	MTU() int

	// Flush pushes out any pending data, reporting whether everything has
	// left the chain.
	Flush() bool

	// Reset drops all transient state, recursing down the chain.
	Reset()

	SetUp(Layer)
	SetDown(Layer)
	Up() Layer
	Down() Layer
}

// Base provides the pass-through behaviour and the up/down plumbing of a
// layer. Embed it and override what the layer transforms.
type Base struct {
	up, down Layer
}

// Decode passes buf to the layer above.
func (b *Base) Decode(buf []byte) {
	if b.up != nil {
		b.up.Decode(buf)
	}
}

// Encode passes buf to the layer below.
func (b *Base) Encode(buf []byte, last bool) {
	if b.down != nil {
		b.down.Encode(buf, last)
	}
}

// MTU returns the MTU of the layer below.
func (b *Base) MTU() int {
	if b.down != nil {
		return b.down.MTU()
	}
	return 0
}

// Flush flushes the layer below.
func (b *Base) Flush() bool {
	if b.down != nil {
		return b.down.Flush()
	}
	return true
}

// Reset resets the layer below.
func (b *Base) Reset() {
	if b.down != nil {
		b.down.Reset()
	}
}

func (b *Base) SetUp(l Layer)   { b.up = l }
func (b *Base) SetDown(l Layer) { b.down = l }
func (b *Base) Up() Layer       { return b.up }
func (b *Base) Down() Layer     { return b.down }

// Wrap composes two layers: upper's down side becomes lower, lower's up
// side becomes upper.
func Wrap(upper, lower Layer) {
	upper.SetDown(lower)
	lower.SetUp(upper)
}

// Stack composes a whole chain, given top first.
func Stack(layers ...Layer) {
	for i := 0; i+1 < len(layers); i++ {
		Wrap(layers[i], layers[i+1])
	}
}
