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
	"github.com/bufbuild/embervm/internal/object"
	"github.com/bufbuild/embervm/internal/value"
)

func (vm *VM) hasher() func(arena.Ref) uint32 {
	return func(r arena.Ref) uint32 { return vm.heap.Slots[r].AsString().Hash }
}

// NewFunction allocates an empty function object; the caller fills in its
// Chunk once compilation (out of scope here) finishes.
func (vm *VM) NewFunction() (arena.Ref, error) {
	return vm.heap.NewFunction(vm.collect)
}

// NewClosure allocates a closure over fn with upvalueCount empty upvalue
// slots for the caller to populate via CaptureUpvalue.
//
// fn is pushed onto the stack before the allocation and read back off the
// stack afterward, rather than stored directly: the allocation itself may
// trigger a collection that moves fn, and only a rooted location (the
// stack, rewritten by every root-rewriting pass) is guaranteed to still
// hold the right Ref once the call returns. Per spec.md §4.1's
// publish-before-trigger protocol.
func (vm *VM) NewClosure(fn arena.Ref, upvalueCount int) (arena.Ref, error) {
	vm.Push(value.Obj(fn))
	ref, err := vm.heap.NewClosure(vm.collect, upvalueCount)
	fn = vm.Pop().Obj
	if err != nil {
		return arena.Null, err
	}
	vm.heap.Slots[ref].AsClosure().Function = fn
	return ref, nil
}

// NewClass allocates a class named name, per the rooted read-back NewClosure
// documents.
func (vm *VM) NewClass(name arena.Ref) (arena.Ref, error) {
	vm.Push(value.Obj(name))
	ref, err := vm.heap.NewClass(vm.collect, vm.hasher())
	name = vm.Pop().Obj
	if err != nil {
		return arena.Null, err
	}
	vm.heap.Slots[ref].AsClass().Name = name
	return ref, nil
}

// NewInstance allocates an instance of class, per the rooted read-back
// NewClosure documents.
func (vm *VM) NewInstance(class arena.Ref) (arena.Ref, error) {
	vm.Push(value.Obj(class))
	ref, err := vm.heap.NewInstance(vm.collect, vm.hasher())
	class = vm.Pop().Obj
	if err != nil {
		return arena.Null, err
	}
	vm.heap.Slots[ref].AsInstance().Class = class
	return ref, nil
}

// NewBoundMethod allocates a bound method pairing receiver with method, per
// the rooted read-back NewClosure documents. Both operands are pushed
// before allocating and popped back off (in reverse order) afterward.
func (vm *VM) NewBoundMethod(receiver value.Value, method arena.Ref) (arena.Ref, error) {
	vm.Push(receiver)
	vm.Push(value.Obj(method))
	ref, err := vm.heap.NewBoundMethod(vm.collect)
	method = vm.Pop().Obj
	receiver = vm.Pop()
	if err != nil {
		return arena.Null, err
	}
	bound := vm.heap.Slots[ref].AsBoundMethod()
	bound.Receiver = receiver
	bound.Method = method
	return ref, nil
}

// NewNative allocates a native function object wrapping fn. Per spec.md §3,
// natives hold no internal heap edges; a caller that wants a printable name
// for a native keeps it outside the managed heap (for example, in a
// compile-time symbol table), not as a field of the object itself.
func (vm *VM) NewNative(fn object.NativeFn) (arena.Ref, error) {
	return vm.heap.NewNative(vm.collect, fn)
}
