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

package stored

// Stream is a bounded byte buffer the application writes into and the
// debugger's 's' command drains. Data beyond the capacity is dropped; the
// reader sees whatever fit.
type Stream struct {
	buf []byte
}

func newStream(capacity int) *Stream {
	return &Stream{buf: make([]byte, 0, capacity)}
}

// Write implements [io.Writer]. It never fails; bytes that do not fit are
// discarded.
func (s *Stream) Write(p []byte) (int, error) {
	n := min(len(p), cap(s.buf)-len(s.buf))
	s.buf = append(s.buf, p[:n]...)
	return len(p), nil
}

// Len returns the buffered byte count.
func (s *Stream) Len() int { return len(s.buf) }

// drain appends the buffered data to resp and empties the stream.
func (s *Stream) drain(resp []byte) []byte {
	resp = append(resp, s.buf...)
	s.buf = s.buf[:0]
	return resp
}
