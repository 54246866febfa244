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

// Package stored implements embedded debuggable data stores.
//
// A store is a collection of named, typed cells laid out in one contiguous
// buffer, indexed by a compact binary [directory]. Cells are accessed through
// [Variant] handles, obtained with [Store.Find]; every data-cell access runs
// through the store's hook chain, which is the single extension point used
// for change signalling and synchronization. Function-cell access does not.
//
// Around stores, the package provides the Embedded Debugger protocol: a
// [Debugger] command interpreter that reads and writes cells over a
// composable chain of protocol layers (see the protocol subpackage), and a
// [Synchronizer] that replicates stores between processes over any such
// chain.
//
// Stores are normally produced by a generator from a store description; the
// schema subpackage compiles such descriptions at runtime and is what the
// tests use. A store instance and its debugger are single-threaded; spread
// work over threads by connecting synchronizers through FIFO loopbacks.
//
// [directory]: https://github.com/DEMCON/libstored
package stored
