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

//go:build debug

// Package debug provides the trace log and assertions used while bringing
// up protocol stacks and sync topologies. Both compile away without the
// debug build tag.
package debug

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/timandy/routine"
)

// Enabled is true if the library is being built with the debug tag, which
// enables the trace log.
const Enabled = true

// scopes holds the -stored.debug selection; empty means everything.
var scopes = make(map[string]bool)

func init() {
	flag.Func("stored.debug", "comma-separated trace scopes (arq, crc16, sync, ...)", func(s string) error {
		for _, scope := range strings.Split(s, ",") {
			scopes[scope] = true
		}
		return nil
	})
}

// Log writes one trace line to stderr, tagged with the scope (a layer or
// subsystem name), the goroutine and the call site. Several stacks usually
// trace interleaved, a loopback pumps both of its sides on one goroutine
// and a synchronizer mesh runs one per node, so the tags matter more than a
// timestamp.
func Log(scope, format string, args ...any) {
	if len(scopes) > 0 && !scopes[scope] {
		return
	}
	_, file, line, _ := runtime.Caller(1)

	// One Write per line; stderr is shared between the nodes' goroutines.
	msg := fmt.Sprintf("%-5s g%02d %s:%d: %s\n",
		scope, routine.Goid(), filepath.Base(file), line,
		fmt.Sprintf(format, args...))
	_, _ = os.Stderr.WriteString(msg)
}

// Assert panics if cond is false, but only in debug mode.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("stored: internal assertion failed: "+format, args...))
	}
}
