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

package vm

import (
	"github.com/bufbuild/embervm/internal/arena"
	"github.com/bufbuild/embervm/internal/intern"
	"github.com/bufbuild/embervm/internal/object"
	"github.com/bufbuild/embervm/internal/table"
	"github.com/bufbuild/embervm/internal/value"
)

// VM implements gc.RootSource. This file is the VM's half of the boundary
// spec.md §4.4 draws between the collector (which only ever calls these
// methods) and the runtime state the collector must never reach into
// directly.

func (vm *VM) Heap() *object.Heap    { return vm.heap }
func (vm *VM) Globals() *table.Table { return vm.globals }
func (vm *VM) Strings() *intern.Set  { return vm.strings }

// MarkRoots marks every root spec.md §4.4 names: the live stack prefix,
// every active frame's closure, the open-upvalue list (walked head to
// tail, each node marking the next before following it), the
// compiler-registered roots, and the cached init string.
func (vm *VM) MarkRoots(mark func(arena.Ref), markValue func(value.Value)) {
	for i := 0; i < vm.StackTop; i++ {
		markValue(vm.Stack[i])
	}
	for i := 0; i < vm.FrameCount; i++ {
		mark(vm.Frames[i].Closure)
	}
	for up := vm.OpenUpvalues; up.Valid(); {
		mark(up)
		up = vm.heap.Slots[up].AsUpvalue().Next
	}
	for _, r := range vm.CompilerRoots {
		mark(r)
	}
	mark(vm.InitString)
}

// RewriteRoots installs each root's post-compaction Ref. The open-upvalue
// list's head is rewritten here, explicitly, as an ordinary root — the
// list's interior Next links are rewritten generically by
// object.Heap.UpdatePointers for every live KindUpvalue slot, so the whole
// chain comes out consistent without this method needing to walk it.
func (vm *VM) RewriteRoots(rewriteRef func(arena.Ref) arena.Ref, rewriteValue func(value.Value) value.Value) {
	for i := 0; i < vm.StackTop; i++ {
		vm.Stack[i] = rewriteValue(vm.Stack[i])
	}
	for i := 0; i < vm.FrameCount; i++ {
		vm.Frames[i].Closure = rewriteRef(vm.Frames[i].Closure)
	}
	vm.OpenUpvalues = rewriteRef(vm.OpenUpvalues)
	for i, r := range vm.CompilerRoots {
		vm.CompilerRoots[i] = rewriteRef(r)
	}
	vm.InitString = rewriteRef(vm.InitString)
}
