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
	"github.com/bufbuild/embervm/internal/value"
)

// Trace invokes mark for every Ref-typed edge and markValue for every
// Value-typed edge reachable in one step from the object at ref, per the
// trace table in spec.md §4.5.
//
// This is traceObject from original_source/src/memory.c, fixed to also walk
// a Function's constant pool: the original leaves that case a no-op with a
// stray "// TODO" below it, which silently misses any object reachable only
// through a nested function's constants (a common shape once closures
// capture other functions). spec.md calls this out as a bug this
// implementation must not reproduce.
func (h *Heap) Trace(ref arena.Ref, mark func(arena.Ref), markValue func(value.Value)) {
	s := &h.Slots[ref]
	switch s.Kind {
	case KindBoundMethod:
		markValue(s.bound.Receiver)
		mark(s.bound.Method)
	case KindClass:
		mark(s.cls.Name)
		s.cls.Methods.Mark(mark, markValue)
	case KindClosure:
		mark(s.clos.Function)
		for _, up := range s.clos.Upvalues {
			mark(up)
		}
	case KindFunction:
		mark(s.fn.Name)
		for _, c := range s.fn.Chunk.Constants {
			markValue(c)
		}
	case KindInstance:
		mark(s.inst.Class)
		s.inst.Fields.Mark(mark, markValue)
	case KindUpvalue:
		markValue(s.up.Closed)
	case KindNative, KindString:
		// Leaves of the object graph: no outgoing edges.
	}
}

// UpdatePointers rewrites every Ref-typed and Value-typed edge out of the
// object at ref to its post-compaction target, per spec.md's Phase U.
//
// The Upvalue case rewrites Next as well as Closed: original_source's
// updateObjectPointers only updates an upvalue's closed value and leaves
// the list-threading pointer alone, which is the second bug spec.md's
// Design Notes flag (open_upvalues becomes a dangling chain after the first
// compaction that moves any upvalue). Fixing it here, uniformly for every
// upvalue rather than only the list head, is what lets internal/gc rewrite
// the list's head once as an ordinary root and get the interior links for
// free.
func (h *Heap) UpdatePointers(ref arena.Ref, rewriteRef func(arena.Ref) arena.Ref, rewriteValue func(value.Value) value.Value) {
	s := &h.Slots[ref]
	switch s.Kind {
	case KindBoundMethod:
		s.bound.Receiver = rewriteValue(s.bound.Receiver)
		s.bound.Method = rewriteRef(s.bound.Method)
	case KindClass:
		s.cls.Name = rewriteRef(s.cls.Name)
		s.cls.Methods.UpdatePointers(rewriteRef, rewriteValue)
	case KindClosure:
		s.clos.Function = rewriteRef(s.clos.Function)
		for i, up := range s.clos.Upvalues {
			s.clos.Upvalues[i] = rewriteRef(up)
		}
	case KindFunction:
		s.fn.Name = rewriteRef(s.fn.Name)
		for i, c := range s.fn.Chunk.Constants {
			s.fn.Chunk.Constants[i] = rewriteValue(c)
		}
	case KindInstance:
		s.inst.Class = rewriteRef(s.inst.Class)
		s.inst.Fields.UpdatePointers(rewriteRef, rewriteValue)
	case KindUpvalue:
		s.up.Closed = rewriteValue(s.up.Closed)
		s.up.Next = rewriteRef(s.up.Next)
	case KindNative, KindString:
	}
}
