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
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArqClean(t *testing.T) {
	t.Parallel()

	a, b := newPipe()
	top1, top2 := &capture{}, &capture{}
	arq1 := NewArqLayer()
	arq2 := NewArqLayer()
	Stack(top1, arq1, a)
	Stack(top2, arq2, b)

	for i := range 100 {
		top1.Base.Encode([]byte{byte(i)}, true)
	}
	require.Len(t, top2.decoded, 100)
	for i, msg := range top2.decoded {
		require.Equal(t, []byte{byte(i)}, msg)
	}
	require.True(t, arq1.Idle())
}

func TestArqDuplicate(t *testing.T) {
	t.Parallel()

	a, b := newPipe()
	top1, top2 := &capture{}, &capture{}
	arq1, arq2 := NewArqLayer(), NewArqLayer()
	Stack(top1, arq1, a)
	Stack(top2, arq2, b)

	top1.Base.Encode([]byte("x"), true)
	require.Len(t, top2.decoded, 1)

	// Replay the data frame: it is acknowledged but not delivered again.
	arq2.Decode([]byte{1, 'x'})
	require.Len(t, top2.decoded, 1)
}

func TestArqRetransmit(t *testing.T) {
	t.Parallel()

	a, b := newPipe()
	drop := true
	a.corrupt = func(msg []byte) []byte {
		if drop {
			drop = false
			return nil
		}
		return msg
	}

	top1, top2 := &capture{}, &capture{}
	arq1 := NewArqLayer(WithRetransmit(2, 5))
	arq2 := NewArqLayer()
	Stack(top1, arq1, a)
	Stack(top2, arq2, b)

	top1.Base.Encode([]byte("hello"), true)
	require.Empty(t, top2.decoded) // reset frame was dropped

	arq1.Tick()
	require.Empty(t, top2.decoded)
	arq1.Tick() // retransmits the reset, the data frame follows
	require.Equal(t, [][]byte{[]byte("hello")}, top2.decoded)
}

func TestArqChannelDeath(t *testing.T) {
	t.Parallel()

	a, b := newPipe()
	a.corrupt = func([]byte) []byte { return nil }

	closed := false
	top1 := &capture{}
	arq1 := NewArqLayer(WithRetransmit(1, 3), WithClosedCallback(func() { closed = true }))
	Stack(top1, arq1, a)
	Wrap(&capture{}, b)

	top1.Base.Encode([]byte("x"), true)
	for range 10 {
		arq1.Tick()
	}
	require.True(t, closed)
	require.True(t, arq1.Closed())
}

// A full stack over a channel that flips bits: every message still arrives
// exactly once, in order, given enough retransmissions.
func TestArqLossyStack(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	flip := func(msg []byte) []byte {
		if rng.Intn(10) == 0 { // 10% of frames take a bit error
			out := append([]byte(nil), msg...)
			out[rng.Intn(len(out))] ^= 1 << rng.Intn(8)
			return out
		}
		return msg
	}

	a, b := newPipe()
	a.corrupt, b.corrupt = flip, flip

	top1, top2 := &capture{}, &capture{}
	arq1 := NewArqLayer(WithRetransmit(1, 100))
	arq2 := NewArqLayer(WithRetransmit(1, 100))
	Stack(top1, NewSegmentationLayer(16), arq1, NewCrc16Layer(), a)
	Stack(top2, NewSegmentationLayer(16), arq2, NewCrc16Layer(), b)

	var want [][]byte
	for i := range 50 {
		msg := []byte(fmt.Sprintf("message %03d with some padding to span segments", i))
		want = append(want, msg)
		top1.Base.Encode(msg, true)

		for j := 0; j < 1000 && !(arq1.Idle() && arq2.Idle()); j++ {
			arq1.Tick()
			arq2.Tick()
		}
	}

	require.Equal(t, want, top2.decoded)
	require.False(t, arq1.Closed())
	require.False(t, arq2.Closed())
}
