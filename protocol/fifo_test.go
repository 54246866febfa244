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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFifoRoundTrip(t *testing.T) {
	t.Parallel()

	f := NewFifo(64)
	sink := &capture{}

	require.Equal(t, 3, f.Push([]byte("abc")))
	require.Equal(t, 0, f.Push(nil)) // empty messages are dropped, not framed
	require.Equal(t, 2, f.Push([]byte("de")))

	require.True(t, f.Recv(sink))
	require.True(t, f.Recv(sink))
	require.False(t, f.Recv(sink))
	require.Equal(t, [][]byte{[]byte("abc"), []byte("de")}, sink.decoded)
	require.True(t, f.Empty())
}

func TestFifoWrapAround(t *testing.T) {
	t.Parallel()

	f := NewFifo(16)
	sink := &capture{}
	msg := []byte("0123456789")

	// Repeated push/pop crosses the ring boundary many times.
	for range 20 {
		require.Equal(t, len(msg), f.Push(msg))
		require.True(t, f.Recv(sink))
	}
	for _, got := range sink.decoded {
		require.Equal(t, msg, got)
	}
}

func TestFifoOverflow(t *testing.T) {
	t.Parallel()

	f := NewFifo(8)
	require.Equal(t, 4, f.Push([]byte("abcd")))

	// Full, no handler: dropped.
	require.Equal(t, 0, f.Push([]byte("efgh")))

	// Handler that drains once, then gives up.
	sink := &capture{}
	tried := false
	f.SetOverflowHandler(func() bool {
		if tried {
			return false
		}
		tried = true
		f.Recv(sink)
		return true
	})
	require.Equal(t, 4, f.Push([]byte("efgh")))
	require.Equal(t, [][]byte{[]byte("abcd")}, sink.decoded)

	// Larger than the ring can ever hold: rejected outright.
	require.Equal(t, 0, f.Push(make([]byte, 32)))
}

func TestFifoSpace(t *testing.T) {
	t.Parallel()

	f := NewFifo(8)
	require.Equal(t, 8, f.Space())
	require.False(t, f.Full())

	f.Push([]byte("abcdefg")) // 7 payload + 1 prefix
	require.Equal(t, 0, f.Space())
	require.True(t, f.Full())
}

func TestFifoConcurrent(t *testing.T) {
	t.Parallel()

	f := NewFifo(64)
	const n = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		retry := func() bool { return true } // spin until the consumer catches up
		f.SetOverflowHandler(retry)
		msg := make([]byte, 5)
		for i := range n {
			msg[0] = byte(i)
			msg[1] = byte(i >> 8)
			for f.Push(msg) == 0 {
			}
		}
	}()

	sink := &capture{}
	for len(sink.decoded) < n {
		f.Recv(sink)
	}
	wg.Wait()

	for i, msg := range sink.decoded {
		require.Len(t, msg, 5)
		require.Equal(t, byte(i), msg[0])
		require.Equal(t, byte(i>>8), msg[1])
	}
}

func TestLoopback(t *testing.T) {
	t.Parallel()

	loop := NewLoopback(256)
	a, b := &capture{}, &capture{}
	Wrap(a, loop.A())
	Wrap(b, loop.B())

	a.Base.Encode([]byte("ping"), true)
	require.Empty(t, b.decoded)
	loop.ProcessB()
	require.Equal(t, [][]byte{[]byte("ping")}, b.decoded)

	b.Base.Encode([]byte("pong"), true)
	loop.Process()
	require.Equal(t, [][]byte{[]byte("pong")}, a.decoded)
}
