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

import (
	"github.com/bufbuild/embervm/internal/arena"
	"github.com/bufbuild/embervm/internal/table"
	"github.com/bufbuild/embervm/internal/value"
)

// StringData is the payload of a KindString object.
//
// Bytes is stored with a trailing NUL the way original_source/src/object.c's
// ObjString keeps one, purely so a debugger dumping the arena sees the same
// byte layout the original does; Go code should use the Text method rather
// than trust the terminator.
type StringData struct {
	Length uint32
	Hash   uint32 // FNV-1a 32-bit, precomputed once at construction
	Bytes  []byte // length Length+1, NUL-terminated
}

// Text returns the string's content without the trailing NUL.
func (s *StringData) Text() string { return string(s.Bytes[:s.Length]) }

// Chunk is a function's compiled body: bytecode plus its constant pool.
//
// Unlike header-chain objects, Chunk's Code and Constants are ordinary,
// independently growable Go slices living outside the arena's walked
// region — mirroring original_source/src/chunk.c, where a Chunk's
// dynamically-reallocated arrays are never counted by sizeOfObject and are
// never traversed by the header-chain walk, only reached via
// traceObject(function) marking each constant individually. Function's own
// size_of is therefore fixed, per spec.md §4.2.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// FunctionData is the payload of a KindFunction object.
type FunctionData struct {
	Arity        int
	UpvalueCount int
	Name         arena.Ref // KindString, or arena.Null for a top-level script
	Chunk        Chunk
}

// ClosureData is the payload of a KindClosure object: a function plus the
// upvalues it captured at creation time.
type ClosureData struct {
	Function arena.Ref // KindFunction
	Upvalues []arena.Ref
}

// UpvalueData is the payload of a KindUpvalue object.
//
// StackIndex/Closed implement the open/closed split from spec.md §3: while
// open, the upvalue aliases a live stack slot (StackIndex, since a raw Go
// pointer into a slice that may reallocate during Push isn't safe to keep
// around); once closed, the value has been copied out into Closed and
// StackIndex is no longer meaningful.
//
// Next threads every open upvalue into one singly linked list so the
// collector can walk and rewrite it as a root; see spec.md §4.5's
// "open_upvalues" root. The list's head is rewritten as a root and every
// node's Next by UpdatePointers, so both the head and the interior links
// are kept current across compaction.
type UpvalueData struct {
	IsOpen     bool
	StackIndex int
	Closed     value.Value
	Next       arena.Ref // KindUpvalue, or arena.Null at the list's end
}

// ClassData is the payload of a KindClass object.
type ClassData struct {
	Name    arena.Ref // KindString
	Methods *table.Table
}

// InstanceData is the payload of a KindInstance object.
type InstanceData struct {
	Class  arena.Ref // KindClass
	Fields *table.Table
}

// BoundMethodData is the payload of a KindBoundMethod object: a receiver
// value bound to one of its class's closures.
type BoundMethodData struct {
	Receiver value.Value
	Method   arena.Ref // KindClosure
}

// NativeFn is a host-provided routine callable from the hosted language.
type NativeFn func(args []value.Value) (value.Value, error)

// NativeData is the payload of a KindNative object. Natives hold no edges
// into the heap, matching original_source/src/object.c's newNative(NativeFn):
// the host function captures whatever state it needs outside the managed
// heap entirely, so Trace/UpdatePointers treat KindNative as a leaf with
// nothing to mark or rewrite.
type NativeData struct {
	Fn NativeFn
}
