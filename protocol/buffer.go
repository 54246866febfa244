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

// BufferLayer accumulates encode chunks and emits the message as one
// downward encode when the last chunk arrives. Decoding passes through.
// Put it above layers that are cheaper per call than per byte.
type BufferLayer struct {
	Base
	pending []byte
}

// NewBufferLayer returns an empty BufferLayer.
func NewBufferLayer() *BufferLayer {
	return &BufferLayer{}
}

// Encode implements [Layer].
func (l *BufferLayer) Encode(buf []byte, last bool) {
	l.pending = append(l.pending, buf...)
	if !last {
		return
	}
	msg := l.pending
	l.pending = l.pending[:0]
	l.Base.Encode(msg, true)
}

// Reset implements [Layer].
func (l *BufferLayer) Reset() {
	l.pending = l.pending[:0]
	l.Base.Reset()
}
