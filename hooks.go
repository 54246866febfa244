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

// Hooks brackets every data-cell access of a store. Reads run between
// EntryRO and ExitRO, writes between EntryX and ExitX; Changed follows an
// ExitX that reported a change. buf is the cell's slice of the store
// buffer; [Store.KeyOf] turns it into the cell's stable key.
//
// Implementations wrap the store's current hooks ([Store.WrapHooks]) and
// must invoke the wrapped hooks on the correct side of their own work, so
// that every Entry pairs with exactly one Exit even on failure paths. The
// hook chain is the extension point used for change signalling and by the
// synchronizer's journal.
type Hooks interface {
	EntryRO(t Type, buf []byte)
	ExitRO(t Type, buf []byte)
	EntryX(t Type, buf []byte)
	ExitX(t Type, buf []byte, changed bool)
	Changed(t Type, buf []byte)
}

// NopHooks is the base of every hook chain. Embed it to implement only a
// subset of [Hooks].
type NopHooks struct{}

func (NopHooks) EntryRO(Type, []byte)     {}
func (NopHooks) ExitRO(Type, []byte)      {}
func (NopHooks) EntryX(Type, []byte)      {}
func (NopHooks) ExitX(Type, []byte, bool) {}
func (NopHooks) Changed(Type, []byte)     {}
