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

import "fmt"

// String implements [fmt.Stringer].
func (t Type) String() string {
	if t == Invalid {
		return "invalid"
	}

	name := ""
	switch t.Data() {
	case Int8:
		name = "int8"
	case Uint8:
		name = "uint8"
	case Int16:
		name = "int16"
	case Uint16:
		name = "uint16"
	case Int32:
		name = "int32"
	case Uint32:
		name = "uint32"
	case Int64:
		name = "int64"
	case Uint64:
		name = "uint64"
	case Float:
		name = "float"
	case Double:
		name = "double"
	case Bool:
		name = "bool"
	case Pointer32:
		name = "ptr32"
	case Pointer64:
		name = "ptr64"
	case Void:
		name = "void"
	case Blob:
		name = "blob"
	case String:
		name = "string"
	default:
		name = fmt.Sprintf("type(%#02x)", uint8(t.Data()))
	}

	if t.IsFunction() {
		return "(" + name + ")"
	}
	return name
}

// String implements [fmt.Stringer].
func (v Variant) String() string {
	if !v.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("<%v:%d@%#x>", v.typ, v.size, v.offset)
}
