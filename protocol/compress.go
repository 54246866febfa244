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

import "github.com/DEMCON/stored-go/internal/lzs"

// CompressLayer compresses the byte stream in both directions with a
// sliding-window LZSS coder. Encoding streams chunk-wise and flushes the
// coder on the last chunk; decoding buffers until a complete message is
// reconstructed. As a stream transform it declares no MTU.
type CompressLayer struct {
	Base
	enc *lzs.Encoder
	dec *lzs.Decoder

	poll      []byte
	decodeBuf []byte
}

// CompressOption is a configuration setting for [NewCompressLayer].
type CompressOption struct{ apply func(*CompressLayer) }

// WithWindow sets the coder parameters: the history window is 2^window
// bytes and a back-reference covers at most 2^lookahead+1 bytes. Both
// sides of a channel must agree.
func WithWindow(window, lookahead int) CompressOption {
	return CompressOption{func(l *CompressLayer) {
		l.enc = lzs.NewEncoder(window, lookahead)
		l.dec = lzs.NewDecoder(window, lookahead)
	}}
}

// NewCompressLayer returns a CompressLayer with the default coder
// parameters.
func NewCompressLayer(opts ...CompressOption) *CompressLayer {
	l := &CompressLayer{
		enc:  lzs.NewEncoder(lzs.Window, lzs.Lookahead),
		dec:  lzs.NewDecoder(lzs.Window, lzs.Lookahead),
		poll: make([]byte, 128),
	}
	for _, o := range opts {
		o.apply(l)
	}
	return l
}

// Encode implements [Layer].
func (l *CompressLayer) Encode(buf []byte, last bool) {
	l.enc.Sink(buf)
	l.pollEncoder()
	if !last {
		return
	}
	l.enc.Finish()
	l.pollEncoder()
	l.Base.Encode(nil, true)
}

func (l *CompressLayer) pollEncoder() {
	for {
		n := l.enc.Poll(l.poll)
		if n == 0 {
			return
		}
		l.Base.Encode(l.poll[:n], false)
	}
}

// Decode implements [Layer]. A decode call carries one complete compressed
// message.
func (l *CompressLayer) Decode(buf []byte) {
	l.dec.Sink(buf)

	l.decodeBuf = l.decodeBuf[:0]
	for {
		n := l.dec.Poll(l.poll)
		if n == 0 {
			break
		}
		l.decodeBuf = append(l.decodeBuf, l.poll[:n]...)
	}
	l.dec.Finish()

	l.Base.Decode(l.decodeBuf)
}

// MTU implements [Layer]: the compressed size is unpredictable, so the
// stream is unbounded.
func (l *CompressLayer) MTU() int { return 0 }

// Reset implements [Layer].
func (l *CompressLayer) Reset() {
	l.enc.Finish()
	for l.enc.Poll(l.poll) > 0 {
	}
	l.dec.Finish()
	l.decodeBuf = l.decodeBuf[:0]
	l.Base.Reset()
}
