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

// Config holds the static configuration of a store and its debugger. Use
// [DefaultConfig] and adjust through [Option] values; a Config is fixed once
// the store or debugger is constructed.
type Config struct {
	// FullNames keeps human-readable names available for listing. Without
	// it, List falls back to the lookup directory and reports skipped name
	// characters as '?'.
	FullNames bool

	// EnableHooks runs the hook chain on every data-cell access; function
	// cells are dispatched without it.
	EnableHooks bool

	// HookSetOnChangeOnly fires the changed hook only when the written
	// bytes differ from the cell's previous content.
	HookSetOnChangeOnly bool

	DebuggerRead           bool
	DebuggerWrite          bool
	DebuggerEcho           bool
	DebuggerList           bool
	DebuggerIdentification bool
	DebuggerVersion        int

	// DebuggerReadMem and DebuggerWriteMem gate the raw memory commands.
	// These sidestep the Go memory model entirely; off unless you are
	// poking at a target you fully control.
	DebuggerReadMem  bool
	DebuggerWriteMem bool

	// DebuggerAlias is the maximum number of aliases.
	DebuggerAlias int
	// DebuggerMacro is the total byte budget for macro definitions.
	DebuggerMacro int

	// DebuggerStreams is the number of stream buffers, each of
	// DebuggerStreamBuffer bytes.
	DebuggerStreams      int
	DebuggerStreamBuffer int

	// AvoidDynamicMemory is carried in the configuration, but no component
	// reads it: working buffers are sized on demand whether or not it is set.
	AvoidDynamicMemory bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FullNames:              true,
		EnableHooks:            true,
		HookSetOnChangeOnly:    false,
		DebuggerRead:           true,
		DebuggerWrite:          true,
		DebuggerEcho:           true,
		DebuggerList:           true,
		DebuggerIdentification: true,
		DebuggerVersion:        2,
		DebuggerReadMem:        false,
		DebuggerWriteMem:       false,
		DebuggerAlias:          0x100,
		DebuggerMacro:          0x1000,
		DebuggerStreams:        1,
		DebuggerStreamBuffer:   1024,
		AvoidDynamicMemory:     true,
	}
}
