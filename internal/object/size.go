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

package object

// Logical byte sizes per spec.md §4.2, grounded directly on
// original_source/src/memory.c's sizeOfObject: the header contributes a
// fixed width, every fixed-size kind contributes one more fixed width for
// its payload, and only Closure and String grow with their contents.
const (
	sizeHeader = 8

	pointerSize = 4 // width of one arena.Ref, for the closure-size formula

	sizeBoundMethod = sizeHeader + 16 // Receiver (Value) + Method (Ref)
	sizeClass       = sizeHeader + 8  // Name (Ref) + Methods (table handle)
	sizeFunction    = sizeHeader + 16 // Arity + UpvalueCount + Name (Ref) + Chunk handle
	sizeInstance    = sizeHeader + 8  // Class (Ref) + Fields (table handle)
	sizeNative      = sizeHeader + 8  // Fn (function pointer)
	sizeUpvalue     = sizeHeader + 24 // IsOpen + StackIndex + Closed (Value) + Next (Ref)

	baseClosureSize = sizeHeader + 4 // Function (Ref)
	baseStringSize  = sizeHeader + 8 // Length + Hash
)

// SizeOf returns a slot's logical size, matching exactly what its
// constructor reserved from the arena. Calling this before a slot's payload
// has been populated (mid-allocation) dereferences a nil payload for the
// variable-size kinds; internal/gc only calls SizeOf on slots it has just
// finished walking for Phase A, by which point every live slot's payload is
// fully populated.
func SizeOf(s *Slot) int {
	switch s.Kind {
	case KindBoundMethod:
		return sizeBoundMethod
	case KindClass:
		return sizeClass
	case KindFunction:
		return sizeFunction
	case KindInstance:
		return sizeInstance
	case KindNative:
		return sizeNative
	case KindUpvalue:
		return sizeUpvalue
	case KindClosure:
		return baseClosureSize + len(s.clos.Upvalues)*pointerSize
	case KindString:
		return baseStringSize + int(s.str.Length) + 1
	default:
		return 0
	}
}
