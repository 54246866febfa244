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

package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	stored "github.com/DEMCON/stored-go"
)

func parseOK(t *testing.T, src string) *Def {
	t.Helper()
	def, err := Parse([]byte(src))
	require.NoError(t, err)
	return def
}

func TestParse(t *testing.T) {
	t.Parallel()

	def := parseOK(t, `
name: /S
cells:
  - { name: /a, type: int32, init: 7 }
  - { name: /b, type: blob, size: 3 }
  - { name: /f, type: double, function: true }
`)
	require.Equal(t, "/S", def.Name)
	require.Len(t, def.Cells, 3)
	require.True(t, def.Cells[2].Function)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		src   string
		class error
	}{
		"no slash":     {"name: S\ncells: [{ name: /a, type: int32 }]", stored.ErrFormat},
		"no cells":     {"name: /S\ncells: []", stored.ErrFormat},
		"bad type":     {"name: /S\ncells: [{ name: /a, type: int13 }]", stored.ErrFormat},
		"dup name":     {"name: /S\ncells: [{ name: /a, type: int32 }, { name: /a, type: int8 }]", stored.ErrFormat},
		"prefix name":  {"name: /S\ncells: [{ name: /a, type: int32 }, { name: /ab, type: int8 }]", stored.ErrAmbiguous},
		"sized scalar": {"name: /S\ncells: [{ name: /a, type: int32, size: 4 }]", stored.ErrFormat},
		"unsized blob": {"name: /S\ncells: [{ name: /a, type: blob }]", stored.ErrFormat},
		"bad name":     {"name: /S\ncells: [{ name: a, type: int32 }]", stored.ErrFormat},
		"not yaml":     {"}{", stored.ErrFormat},
	}
	for name, c := range cases {
		_, err := Parse([]byte(c.src))
		require.ErrorIs(t, err, c.class, name)
	}
}

func TestClone(t *testing.T) {
	t.Parallel()

	def := parseOK(t, "name: /S\ncells: [{ name: /a, type: int32 }]")
	clone := def.Clone()
	clone.Cells[0].Name = "/b"
	require.Equal(t, "/a", def.Cells[0].Name)
}

func TestLayoutAlignment(t *testing.T) {
	t.Parallel()

	def := parseOK(t, `
name: /S
cells:
  - { name: /small, type: int8 }
  - { name: /blob, type: blob, size: 3 }
  - { name: /wide, type: double }
  - { name: /mid, type: uint16 }
`)
	data, err := Compile(def, nil)
	require.NoError(t, err)

	store := stored.NewStore(data)
	byName := func(n string) stored.Variant { return store.Find(n) }

	// Widest first: every numeric cell is naturally aligned.
	require.Equal(t, 0, byName("/wide").Key())
	require.Equal(t, 8, byName("/mid").Key())
	require.Equal(t, 0, byName("/mid").Key()%2)
	require.Equal(t, 14, store.Size())
}

func TestCompileInit(t *testing.T) {
	t.Parallel()

	def := parseOK(t, `
name: /S
cells:
  - { name: /i, type: int32, init: -7 }
  - { name: /f, type: float, init: 1.5 }
  - { name: /b, type: bool, init: true }
  - { name: /s, type: string, size: 4, init: hi }
  - { name: /x, type: blob, size: 2, init: "beef" }
`)
	data, err := Compile(def, nil)
	require.NoError(t, err)

	store := stored.NewStore(data)
	require.Equal(t, int32(-7), stored.Get[int32](store.Find("/i")))
	require.Equal(t, float32(1.5), stored.Get[float32](store.Find("/f")))
	require.True(t, stored.Get[bool](store.Find("/b")))

	buf := make([]byte, 2)
	store.Find("/x").Get(buf)
	require.Equal(t, []byte{0xbe, 0xef}, buf)
}

func TestCompileRejectsBadInit(t *testing.T) {
	t.Parallel()

	for name, c := range map[string]struct {
		src   string
		class error
	}{
		"string into int": {"name: /S\ncells: [{ name: /a, type: int32, init: nope }]", stored.ErrFormat},
		"float into int":  {"name: /S\ncells: [{ name: /a, type: int32, init: 1.5 }]", stored.ErrFormat},
		"long string":     {"name: /S\ncells: [{ name: /a, type: string, size: 2, init: toolong }]", stored.ErrOverflow},
		"long blob":       {"name: /S\ncells: [{ name: /a, type: blob, size: 2, init: \"beefbeef\" }]", stored.ErrOverflow},
		"odd hex blob":    {"name: /S\ncells: [{ name: /a, type: blob, size: 4, init: abc }]", stored.ErrFormat},
	} {
		def, err := Parse([]byte(c.src))
		require.NoError(t, err, name)
		_, err = Compile(def, nil)
		require.ErrorIs(t, err, c.class, name)
	}
}

func TestHashStability(t *testing.T) {
	t.Parallel()

	src := `
name: /S
cells:
  - { name: /a, type: int32 }
  - { name: /b, type: blob, size: 3 }
`
	d1, err := Compile(parseOK(t, src), nil)
	require.NoError(t, err)
	d2, err := Compile(parseOK(t, src), nil)
	require.NoError(t, err)
	require.Equal(t, d1.Hash, d2.Hash)
	require.Len(t, d1.Hash, 32)

	// The content of the buffer does not matter, the layout does.
	other := `
name: /S
cells:
  - { name: /a, type: int16 }
  - { name: /b, type: blob, size: 3 }
`
	d3, err := Compile(parseOK(t, other), nil)
	require.NoError(t, err)
	require.NotEqual(t, d1.Hash, d3.Hash)
}

func TestDirectoryVariants(t *testing.T) {
	t.Parallel()

	def := parseOK(t, `
name: /S
cells:
  - { name: /alpha one, type: int32 }
  - { name: /alpha two, type: int32 }
  - { name: /beta, type: int8 }
`)
	data, err := Compile(def, nil)
	require.NoError(t, err)

	// Both directories resolve the full names; the short one also accepts
	// abbreviations.
	for _, dir := range [][]byte{data.Directory, data.LongDirectory} {
		for _, name := range []string{"/alpha one", "/alpha two", "/beta"} {
			_, ok := stored.Lookup(dir, name)
			require.True(t, ok, "%q in %x", name, dir)
		}
	}

	_, ok := stored.Lookup(data.Directory, "/a.....o")
	require.True(t, ok)
	_, ok = stored.Lookup(data.Directory, "/a")
	require.False(t, ok, "ambiguous abbreviation")
	_, ok = stored.Lookup(data.Directory, "/b")
	require.True(t, ok)

	// The long directory lists exact names.
	var names []string
	stored.List(data.LongDirectory, func(name string, e stored.Entry) {
		names = append(names, name)
	})
	require.ElementsMatch(t, []string{"/alpha one", "/alpha two", "/beta"}, names)
}
