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
	"hash/fnv"

	"github.com/bufbuild/embervm/internal/arena"
	"github.com/bufbuild/embervm/internal/dbg"
	"github.com/bufbuild/embervm/internal/table"
	"github.com/bufbuild/embervm/internal/value"
)

// Heap pairs the bump allocator with the slot array it governs: [0, Next)
// of Slots holds every object the arena has ever handed out an index for,
// live or dead, laid out contiguously with no gaps, per spec.md §4.1.
type Heap struct {
	Arena *arena.Arena
	Slots []Slot
}

// NewHeap creates an empty heap with the given arena capacity and initial
// collection threshold, both in logical bytes.
func NewHeap(capacity, initialNextGC int) *Heap {
	return &Heap{Arena: arena.New(capacity, initialNextGC)}
}

// HashBytes computes the FNV-1a 32-bit hash spec.md §4.3 requires strings
// to carry, using the standard library's hash/fnv rather than a hand-rolled
// loop: FNV-1a has no ecosystem-specific implementation worth reaching for
// over the one the language ships.
func HashBytes(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

// alloc reserves one new slot of the given kind and logical size, appending
// a fresh Slot and returning both its Ref and a pointer to it for the
// caller to populate.
func (h *Heap) alloc(collect arena.Collect, kind Kind, size int) (arena.Ref, *Slot, error) {
	ref, err := h.Arena.Reserve(collect, 0, size)
	if err != nil {
		return arena.Null, nil, err
	}
	dbg.Assert(int(ref) == len(h.Slots), "object: heap ref %d does not match next slot index %d", ref, len(h.Slots))
	h.Slots = append(h.Slots, Slot{Header: Header{Kind: kind, Forwarding: arena.Null}})
	return ref, &h.Slots[ref], nil
}

// NewString allocates a string object copying the given bytes.
func (h *Heap) NewString(collect arena.Collect, data []byte, hash uint32) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindString, baseStringSize+len(data)+1)
	if err != nil {
		return arena.Null, err
	}
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	slot.str = &StringData{Length: uint32(len(data)), Hash: hash, Bytes: buf}
	return ref, nil
}

// TakeString allocates a string object that takes ownership of data rather
// than copying it, mirroring original_source's takeString: the caller must
// not retain or mutate data afterwards.
func (h *Heap) TakeString(collect arena.Collect, data []byte, hash uint32) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindString, baseStringSize+len(data)+1)
	if err != nil {
		return arena.Null, err
	}
	buf := append(data, 0)
	slot.str = &StringData{Length: uint32(len(data)), Hash: hash, Bytes: buf}
	return ref, nil
}

// NewFunction allocates an empty function object; its Chunk is populated by
// the caller afterward.
func (h *Heap) NewFunction(collect arena.Collect) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindFunction, sizeFunction)
	if err != nil {
		return arena.Null, err
	}
	slot.fn = &FunctionData{Name: arena.Null}
	return ref, nil
}

// NewClosure allocates a closure with upvalueCount empty upvalue slots and
// no function yet. Function and the upvalue slots are left for the caller
// to fill in after the call returns: a Ref for the closed-over function
// supplied here would be read before Reserve's own collect trigger runs,
// and so could be stale (pointing at the pre-compaction slot) by the time
// it was stored — see vm.NewClosure for the rooted read-back that avoids
// this.
func (h *Heap) NewClosure(collect arena.Collect, upvalueCount int) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindClosure, baseClosureSize+upvalueCount*pointerSize)
	if err != nil {
		return arena.Null, err
	}
	ups := make([]arena.Ref, upvalueCount)
	for i := range ups {
		ups[i] = arena.Null
	}
	slot.clos = &ClosureData{Function: arena.Null, Upvalues: ups}
	return ref, nil
}

// NewOpenUpvalue allocates an upvalue aliasing the stack slot at
// stackIndex, with no successor yet. The caller links it into the
// open-upvalue list after the call returns, re-deriving the splice point
// from the list's current state rather than from a Ref read before the
// allocating call: a "next" Ref supplied here would be read before
// Reserve's own collect trigger runs, and so could be stale by the time it
// was stored (see vm.CaptureUpvalue).
func (h *Heap) NewOpenUpvalue(collect arena.Collect, stackIndex int) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindUpvalue, sizeUpvalue)
	if err != nil {
		return arena.Null, err
	}
	slot.up = &UpvalueData{IsOpen: true, StackIndex: stackIndex, Next: arena.Null}
	return ref, nil
}

// NewClass allocates a class object with an empty method table and no name
// yet; the caller fills in Name after the call returns, reading it back
// from a rooted location rather than the Ref it held before the call (see
// vm.NewClass), for the same staleness reason as NewClosure's Function.
func (h *Heap) NewClass(collect arena.Collect, hash table.Hasher) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindClass, sizeClass)
	if err != nil {
		return arena.Null, err
	}
	slot.cls = &ClassData{Name: arena.Null, Methods: table.New(hash)}
	return ref, nil
}

// NewInstance allocates an instance with an empty field table and no class
// yet; the caller fills in Class after the call returns, for the same
// staleness reason as NewClosure's Function (see vm.NewInstance).
func (h *Heap) NewInstance(collect arena.Collect, hash table.Hasher) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindInstance, sizeInstance)
	if err != nil {
		return arena.Null, err
	}
	slot.inst = &InstanceData{Class: arena.Null, Fields: table.New(hash)}
	return ref, nil
}

// NewBoundMethod allocates a bound method with no receiver or method bound
// yet; the caller fills both in after the call returns, for the same
// staleness reason as NewClosure's Function (see vm.NewBoundMethod).
func (h *Heap) NewBoundMethod(collect arena.Collect) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindBoundMethod, sizeBoundMethod)
	if err != nil {
		return arena.Null, err
	}
	slot.bound = &BoundMethodData{Receiver: value.Nil, Method: arena.Null}
	return ref, nil
}

// NewNative allocates a native function object wrapping fn.
func (h *Heap) NewNative(collect arena.Collect, fn NativeFn) (arena.Ref, error) {
	ref, slot, err := h.alloc(collect, KindNative, sizeNative)
	if err != nil {
		return arena.Null, err
	}
	slot.native = &NativeData{Fn: fn}
	return ref, nil
}
