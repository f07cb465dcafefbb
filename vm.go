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

// Package vm owns the runtime state spec.md §1 assigns to the VM proper:
// the value stack, the call-frame stack, the open-upvalue list, the
// globals table, the intern set, and the cached "init" string. It wires
// internal/object, internal/table, internal/intern, and internal/gc
// together behind the allocation and rooting protocol a compiler/
// interpreter loop (explicitly out of scope here, per spec.md §1) would
// call into.
package vm

import (
	"os"

	"github.com/bufbuild/embervm/internal/arena"
	"github.com/bufbuild/embervm/internal/config"
	"github.com/bufbuild/embervm/internal/dbg"
	"github.com/bufbuild/embervm/internal/gc"
	"github.com/bufbuild/embervm/internal/intern"
	"github.com/bufbuild/embervm/internal/object"
	"github.com/bufbuild/embervm/internal/table"
	"github.com/bufbuild/embervm/internal/value"
)

const stackMax = 256 * (frameMax + 1)
const frameMax = 64

// Frame is one active call: the closure being executed and the base index
// into VM.Stack its locals start at. The bytecode-interpretation loop that
// advances a Frame's instruction pointer is out of scope here (spec.md §1);
// Frame exists so the collector has a closure Ref to root per active call.
type Frame struct {
	Closure arena.Ref
	Base    int
}

// VM is the runtime: the heap plus every structure spec.md §4.4 names as a
// root.
type VM struct {
	heap      *object.Heap
	Collector *gc.Collector
	globals   *table.Table
	strings   *intern.Set
	Logger    *dbg.Logger

	Stack    []value.Value
	StackTop int

	Frames     []Frame
	FrameCount int

	OpenUpvalues arena.Ref

	// InitString is the interned "init" string used for constructor
	// lookup, per spec.md §1; cached once so every instantiation avoids
	// re-interning it.
	InitString arena.Ref

	// CompilerRoots lets an embedding compiler register extra Refs (for
	// example, in-progress function objects not yet reachable from any
	// other root) that must survive a collection triggered mid-compile.
	// This is the mark_compiler_roots callback spec.md §1 names as the
	// compiler's half of the allocation interface.
	CompilerRoots []arena.Ref
}

// New creates a VM from cfg, ready to accept allocations.
func New(cfg config.Config) *VM {
	heap := object.NewHeap(cfg.Heap.CapacityBytes, cfg.Heap.InitialNextGC)
	heap.Arena.StressGC = cfg.Heap.StressGC
	heap.Arena.DebugLogGC = cfg.Heap.DebugLogGC

	logger := dbg.NewLogger(os.Stderr, cfg.Heap.DebugLogGC)

	vm := &VM{
		heap:         heap,
		Collector:    gc.New(logger),
		globals:      table.New(func(r arena.Ref) uint32 { return heap.Slots[r].AsString().Hash }),
		Logger:       logger,
		Stack:        make([]value.Value, stackMax),
		Frames:       make([]Frame, frameMax),
		OpenUpvalues: arena.Null,
		InitString:   arena.Null,
	}
	vm.strings = intern.New(heap)

	init, err := vm.strings.Intern(vm.collect, []byte("init"))
	dbg.Assert(err == nil, "vm: failed to intern \"init\" at startup: %v", err)
	vm.InitString = init

	return vm
}

// collect is the arena.Collect callback passed to every heap allocation:
// it runs a full collection against this VM's own roots. spec.md §4.1
// requires this to be the same code path whether collection was triggered
// by StressGC or by crossing next_gc — CollectGarbage and every internal
// allocation call this one method.
func (vm *VM) collect() {
	vm.Collector.Collect(vm)
}

// CollectGarbage runs a collection cycle immediately, regardless of
// threshold. Exposed for an embedder (or a test) that wants to force one
// deterministically.
func (vm *VM) CollectGarbage() {
	vm.collect()
}

// Push publishes a value onto the stack. Per spec.md §4.1's allocation
// protocol, a value must be pushed (or otherwise rooted) before any
// subsequent allocation that could trigger a collection, or the collector
// has no way to discover it.
func (vm *VM) Push(v value.Value) {
	dbg.Assert(vm.StackTop < len(vm.Stack), "vm: stack overflow")
	vm.Stack[vm.StackTop] = v
	vm.StackTop++
}

// Pop removes and returns the top stack value.
func (vm *VM) Pop() value.Value {
	dbg.Assert(vm.StackTop > 0, "vm: stack underflow")
	vm.StackTop--
	return vm.Stack[vm.StackTop]
}

// Peek returns the value distance slots from the top without removing it.
func (vm *VM) Peek(distance int) value.Value {
	idx := vm.StackTop - 1 - distance
	dbg.Assert(idx >= 0, "vm: peek out of range")
	return vm.Stack[idx]
}
