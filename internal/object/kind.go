// Copyright 2025 Buf Technologies, Inc.
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

// Package object defines the heap's object model: the variant kinds, the
// uniform header every heap object carries, their size_of formulas, and the
// intra-heap edges the collector traces and rewrites.
//
// Grounded on original_source/src/object.c and src/memory.c's sizeOfObject/
// traceObject/updateObjectPointers, adapted to the index-based heap from
// internal/arena's redesign: every object lives at an index into a
// [Heap]'s slot array rather than at a raw byte address.
package object

import (
	"github.com/stoewer/go-strcase"

	"github.com/bufbuild/embervm/internal/arena"
)

// Kind is the tag every heap object's header carries, matching spec.md §3's
// eight runtime object kinds.
type Kind uint8

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindNative
)

func (k Kind) name() string {
	switch k {
	case KindString:
		return "String"
	case KindFunction:
		return "Function"
	case KindClosure:
		return "Closure"
	case KindUpvalue:
		return "Upvalue"
	case KindClass:
		return "Class"
	case KindInstance:
		return "Instance"
	case KindBoundMethod:
		return "BoundMethod"
	case KindNative:
		return "Native"
	default:
		return "Unknown"
	}
}

// String implements fmt.Stringer, rendering kind names in debug-log-GC
// output in snake_case, matching this corpus's use of go-strcase for
// field-name casing in diagnostic text.
func (k Kind) String() string {
	return strcase.SnakeCase(k.name())
}

// Header is the uniform prologue every heap object carries.
//
// Forwarding has the three states spec.md §3 describes:
//   - arena.Null: unreachable — the steady state outside of GC.
//   - self-referential (Forwarding == the object's own index): reached
//     during mark, not yet traced ("gray").
//   - any other valid Ref: live; this is where Phase A decided the object
//     will move to.
type Header struct {
	Kind       Kind
	Forwarding arena.Ref
}
