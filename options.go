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

// Option is a configuration setting for [NewStore] and [NewDebugger].
type Option struct{ apply func(*Config) }

// WithConfig replaces the whole configuration at once.
func WithConfig(cfg Config) Option {
	return Option{func(c *Config) { *c = cfg }}
}

// WithoutFullNames drops the human-readable name directory; List reports
// skipped characters as '?'.
func WithoutFullNames() Option {
	return Option{func(c *Config) { c.FullNames = false }}
}

// WithoutHooks disables the hook chain. Synchronized stores require hooks.
func WithoutHooks() Option {
	return Option{func(c *Config) { c.EnableHooks = false }}
}

// WithChangeOnlyHooks fires the changed hook only when the written bytes
// differ from the cell's previous content.
func WithChangeOnlyHooks() Option {
	return Option{func(c *Config) { c.HookSetOnChangeOnly = true }}
}

// WithAliasLimit bounds the debugger's alias table.
func WithAliasLimit(n int) Option {
	return Option{func(c *Config) { c.DebuggerAlias = n }}
}

// WithMacroBudget bounds the total bytes of macro definitions.
func WithMacroBudget(n int) Option {
	return Option{func(c *Config) { c.DebuggerMacro = n }}
}

// WithStreams sets the number of debugger streams and the byte size of each.
func WithStreams(count, size int) Option {
	return Option{func(c *Config) {
		c.DebuggerStreams = count
		c.DebuggerStreamBuffer = size
	}}
}

// WithMemoryAccess enables the raw memory read/write commands.
func WithMemoryAccess(read, write bool) Option {
	return Option{func(c *Config) {
		c.DebuggerReadMem = read
		c.DebuggerWriteMem = write
	}}
}
