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

import "errors"

// Errors returned by store, schema and synchronizer operations. On the wire
// all of these collapse into a single '?' response; the Go API keeps them
// apart, wrapped with detail where there is any (match with [errors.Is]).
var (
	ErrNotFound  = errors.New("object not found")
	ErrAmbiguous = errors.New("name is ambiguous")
	ErrInvalid   = errors.New("invalid variant")
	ErrTypeSize  = errors.New("size does not match type")
	ErrClosed    = errors.New("channel closed")
	ErrOverflow  = errors.New("value does not fit")
	ErrFormat    = errors.New("malformed description")
)
