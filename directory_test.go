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

package stored_test

import (
	_ "embed"
	"encoding/binary"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	stored "github.com/DEMCON/stored-go"
	"github.com/DEMCON/stored-go/schema"
)

//go:embed testdata/teststore.yaml
var testStoreYAML []byte

// testStore is the Go side of testdata/teststore.yaml, with the function
// cells a generated store would implement as methods.
type testStore struct {
	*stored.Store
	rw float64
}

func newTestStore(t testing.TB, opts ...stored.Option) *testStore {
	t.Helper()

	def, err := schema.Parse(testStoreYAML)
	require.NoError(t, err)

	ts := &testStore{rw: 4}
	data, err := schema.Compile(def, map[string]stored.Func{
		"/f read/write": func(set bool, buf []byte) int {
			if len(buf) < 8 {
				return 0
			}
			if set {
				ts.rw = math.Float64frombits(binary.NativeEndian.Uint64(buf))
			} else {
				binary.NativeEndian.PutUint64(buf, math.Float64bits(ts.rw))
			}
			return 8
		},
		"/f read-only": func(set bool, buf []byte) int {
			if set || len(buf) < 2 {
				return 0
			}
			binary.NativeEndian.PutUint16(buf, stored.As[uint16](ts.rw))
			return 2
		},
	})
	require.NoError(t, err)

	ts.Store = stored.NewStore(data, opts...)
	return ts
}

func TestFindFullMatch(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	for _, name := range []string{
		"/default int8",
		"/default int16",
		"/default int32",
		"/f read/write",
		"/f read-only",
		"/scope/inner bool",
		"/some other scope/some other inner bool",
		"/init float 3",
		"/blob b",
	} {
		require.True(t, store.Find(name).Valid(), "find(%q)", name)
	}
}

func TestFindShortMatch(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.True(t, store.Find("/de......i..8").Valid())
	require.True(t, store.Find("/f.r.../").Valid())
	require.True(t, store.Find("/f.r...-").Valid())
	require.True(t, store.Find("/init f").Valid())
	require.True(t, store.Find("/sc/i.....b").Valid())
	require.True(t, store.Find("/so/s").Valid())
	require.True(t, store.Find("/b").Valid())

	// A unique abbreviation resolves to the same cell as the full name.
	require.Equal(t,
		store.Find("/default int32").Key(),
		store.Find("/de......i..32").Key())
	require.Equal(t,
		store.Find("/f read/write").Key(),
		store.Find("/f.r.../").Key())
}

func TestFindAmbiguous(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.False(t, store.Find("/default int").Valid())
	require.False(t, store.Find("/default ").Valid())
	require.False(t, store.Find("/s/inner bool").Valid())
	require.False(t, store.Find("/f read").Valid())
}

func TestFindBogus(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.False(t, store.Find("").Valid())
	require.False(t, store.Find("/").Valid())
	require.False(t, store.Find("asdf").Valid())
	require.False(t, store.Find("/zzz").Valid())
	require.False(t, store.Find("/default int9").Valid())
}

func TestResolve(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	v, err := store.Resolve("/default int32")
	require.NoError(t, err)
	require.True(t, v.Valid())

	_, err = store.Resolve("/default int")
	require.ErrorIs(t, err, stored.ErrAmbiguous)

	_, err = store.Resolve("/zzz")
	require.ErrorIs(t, err, stored.ErrNotFound)
}

func TestKeysUnique(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	var keys []int
	store.List(func(name string, v stored.Variant) {
		require.True(t, v.Valid(), "list(%q)", name)
		require.Equal(t, v.Key(), store.Find(name).Key(), "find(list(%q))", name)
		keys = append(keys, v.Key())
	})
	require.Len(t, keys, 16)

	slices.Sort(keys)
	require.Equal(t, keys, slices.Compact(keys))
}

func TestListNames(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	var names []string
	store.List(func(name string, v stored.Variant) {
		names = append(names, name)
	})

	require.Contains(t, names, "/default int8")
	require.Contains(t, names, "/f read/write")
	require.Contains(t, names, "/scope/inner int")
	require.Contains(t, names, "/some other scope/some other inner bool")
	require.NotContains(t, names, "/non existent")
}

func TestListShortNames(t *testing.T) {
	t.Parallel()
	store := newTestStore(t, stored.WithoutFullNames())

	// Without full names, skipped runs read as '?', but every cell is
	// still listed, with its hierarchy intact.
	var names []string
	store.List(func(name string, v stored.Variant) {
		require.True(t, v.Valid())
		names = append(names, name)
	})
	require.Len(t, names, 16)

	withQ := 0
	for _, name := range names {
		require.Equal(t, byte('/'), name[0])
		for i := range name {
			if name[i] == '?' {
				withQ++
				break
			}
		}
	}
	require.Positive(t, withQ)
}

// Lookup is a pure function over the directory bytes; a hand-written
// directory works without a store.
func TestLookupRaw(t *testing.T) {
	t.Parallel()

	// "/a" int8 at offset 1, "/b" uint16 at offset 2.
	dir := []byte{
		'/',
		'a', 0x00, 0x03, // greater than 'a': jump to the 'b' node
		0x80 | byte(stored.Int8), 0x01,
		'b', 0x00, 0x00,
		0x80 | byte(stored.Uint16), 0x02,
	}

	e, ok := stored.Lookup(dir, "/a")
	require.True(t, ok)
	require.Equal(t, stored.Int8, e.Type)
	require.Equal(t, 1, e.Offset)
	require.Equal(t, 1, e.Size)

	e, ok = stored.Lookup(dir, "/b")
	require.True(t, ok)
	require.Equal(t, stored.Uint16, e.Type)
	require.Equal(t, 2, e.Offset)

	_, ok = stored.Lookup(dir, "/c")
	require.False(t, ok)
}
