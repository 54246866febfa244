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

// Package schema compiles store descriptions into store images: the cell
// layout, the binary directories, the initial buffer and the schema hash.
//
// A description is usually written in YAML:
//
//	name: /ExampleStore
//	cells:
//	  - { name: /default int32, type: int32 }
//	  - { name: /initialized float, type: float, init: 2.5 }
//	  - { name: /some blob, type: blob, size: 16 }
//	  - { name: /f read/write, type: double, function: true }
//
// This package plays the role of the store generator at runtime; code
// generators targeting this library must emit the same binary formats.
package schema

import (
	"fmt"
	"strings"

	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v3"

	stored "github.com/DEMCON/stored-go"
)

// Def is a store description.
type Def struct {
	Name  string `yaml:"name"`
	Cells []Cell `yaml:"cells"`
}

// Cell is one cell of a store description.
type Cell struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// Size is the byte length of a blob or string cell.
	Size int `yaml:"size"`
	// Init is the cell's initial value: a number or bool for fixed types, a
	// string for string cells, hex digits for blobs.
	Init any `yaml:"init"`
	// Function marks a function cell; the implementation is supplied to
	// [Compile] by name.
	Function bool `yaml:"function"`
}

// Parse reads a YAML store description.
func Parse(data []byte) (*Def, error) {
	def := new(Def)
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, descErr(stored.ErrFormat, "%v", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// descErr reports a description problem, wrapped in the failure class so
// callers can match it with [errors.Is].
func descErr(class error, format string, args ...any) error {
	return fmt.Errorf("schema: "+format+": %w", append(args, class)...)
}

// Clone returns a deep copy of the definition.
func (d *Def) Clone() *Def {
	out := new(Def)
	if err := deepcopy.Copy(out, d); err != nil {
		panic(err)
	}
	return out
}

var types = map[string]stored.Type{
	"int8":   stored.Int8,
	"uint8":  stored.Uint8,
	"int16":  stored.Int16,
	"uint16": stored.Uint16,
	"int32":  stored.Int32,
	"uint32": stored.Uint32,
	"int64":  stored.Int64,
	"uint64": stored.Uint64,
	"float":  stored.Float,
	"double": stored.Double,
	"bool":   stored.Bool,
	"ptr32":  stored.Pointer32,
	"ptr64":  stored.Pointer64,
	"blob":   stored.Blob,
	"string": stored.String,
}

func (c *Cell) cellType() (stored.Type, error) {
	t, ok := types[c.Type]
	if !ok {
		return stored.Invalid, descErr(stored.ErrFormat, "%q: unknown type %q", c.Name, c.Type)
	}
	if c.Function {
		t |= stored.FlagFunction
	}
	return t, nil
}

func (d *Def) validate() error {
	if !strings.HasPrefix(d.Name, "/") {
		return descErr(stored.ErrFormat, "store name %q must start with '/'", d.Name)
	}
	if len(d.Cells) == 0 {
		return descErr(stored.ErrFormat, "store %q has no cells", d.Name)
	}

	seen := make(map[string]bool, len(d.Cells))
	for i := range d.Cells {
		c := &d.Cells[i]
		t, err := c.cellType()
		if err != nil {
			return err
		}

		if err := validName(c.Name); err != nil {
			return err
		}
		if seen[c.Name] {
			return descErr(stored.ErrFormat, "duplicate cell %q", c.Name)
		}
		seen[c.Name] = true

		switch {
		case t.IsFixed() && c.Size != 0:
			return descErr(stored.ErrFormat, "%q: fixed type %s has no size", c.Name, c.Type)
		case !t.IsFixed() && c.Size <= 0:
			return descErr(stored.ErrFormat, "%q: %s requires a size", c.Name, c.Type)
		}
	}

	// A cell whose full name is a prefix of another cell's could never be
	// found: the exact name would still be ambiguous.
	for i := range d.Cells {
		for j := range d.Cells {
			a, b := d.Cells[i].Name, d.Cells[j].Name
			if i != j && strings.HasPrefix(b, a) {
				return descErr(stored.ErrAmbiguous, "%q is a prefix of %q", a, b)
			}
		}
	}
	return nil
}

func validName(name string) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 {
		return descErr(stored.ErrFormat, "invalid cell name %q", name)
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return descErr(stored.ErrFormat, "cell name %q contains non-printable characters", name)
		}
	}
	return nil
}
