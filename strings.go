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
	"github.com/bufbuild/embervm/internal/value"
)

// CopyString interns a string copied from data, per original_source's
// copyString: the caller's buffer is left untouched.
func (vm *VM) CopyString(data []byte) (arena.Ref, error) {
	return vm.strings.Intern(vm.collect, data)
}

// TakeString interns a string that takes ownership of data, per
// original_source's takeString: used when the caller built data itself
// (for example, string concatenation) and has no further use for it.
func (vm *VM) TakeString(data []byte) (arena.Ref, error) {
	return vm.strings.InternTaken(vm.collect, data)
}

// Concatenate builds the string a ++ b and interns the result.
//
// a and b are pushed back onto the stack for the duration of the byte copy
// and the eventual allocation: both are ordinary arena.Ref values held only
// in this function's local variables otherwise, which are invisible to
// [gc.Collector] — if building the concatenated buffer's own allocation
// (or a later unrelated one) triggered a collection before the result is
// interned, an unrooted operand would be collected out from under this
// call. This is spec.md §4.1's "publish before trigger" protocol, grounded
// on original_source/src/vm.c's concatenate, which pushes both operands
// for the same reason before calling takeString.
func (vm *VM) Concatenate(a, b arena.Ref) (arena.Ref, error) {
	vm.Push(value.Obj(a))
	vm.Push(value.Obj(b))
	defer func() {
		vm.Pop()
		vm.Pop()
	}()

	as := vm.heap.Slots[a].AsString()
	bs := vm.heap.Slots[b].AsString()

	buf := make([]byte, 0, as.Length+bs.Length)
	buf = append(buf, as.Bytes[:as.Length]...)
	buf = append(buf, bs.Bytes[:bs.Length]...)

	return vm.TakeString(buf)
}
