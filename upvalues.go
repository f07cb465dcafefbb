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

import "github.com/bufbuild/embervm/internal/arena"

// CaptureUpvalue returns the open upvalue aliasing stackIndex, creating one
// and threading it onto OpenUpvalues if none exists yet. The list stays
// sorted by descending StackIndex, matching original_source/src/vm.c's
// captureUpvalue, so CloseUpvalues can stop its walk as soon as it passes
// the closing boundary instead of scanning the whole list.
func (vm *VM) CaptureUpvalue(stackIndex int) (arena.Ref, error) {
	if existing, ok := vm.findOpenUpvalue(stackIndex); ok {
		return existing, nil
	}

	created, err := vm.heap.NewOpenUpvalue(vm.collect, stackIndex)
	if err != nil {
		return arena.Null, err
	}

	// The allocation above may have triggered a collection, which rewrites
	// OpenUpvalues and every node's Next in place but has no way to reach
	// (and so cannot fix up) a prev/cur pair computed from a walk that
	// happened before the call. The splice point must therefore be found
	// fresh, from the list's current state, not carried across the
	// allocating call.
	var prev arena.Ref = arena.Null
	cur := vm.OpenUpvalues
	for cur.Valid() {
		up := vm.heap.Slots[cur].AsUpvalue()
		if up.StackIndex < stackIndex {
			break
		}
		prev = cur
		cur = up.Next
	}

	vm.heap.Slots[created].AsUpvalue().Next = cur
	if prev.Valid() {
		vm.heap.Slots[prev].AsUpvalue().Next = created
	} else {
		vm.OpenUpvalues = created
	}
	return created, nil
}

// findOpenUpvalue scans the open-upvalue list for one already aliasing
// stackIndex, without allocating: safe to call at any point since it makes
// no allocation that could trigger a collection mid-walk.
func (vm *VM) findOpenUpvalue(stackIndex int) (arena.Ref, bool) {
	cur := vm.OpenUpvalues
	for cur.Valid() {
		up := vm.heap.Slots[cur].AsUpvalue()
		if up.StackIndex == stackIndex {
			return cur, true
		}
		if up.StackIndex < stackIndex {
			break
		}
		cur = up.Next
	}
	return arena.Null, false
}

// CloseUpvalues closes every open upvalue whose StackIndex is at least
// fromStackIndex, copying the stack's current value into Closed and
// unlinking it from the open list. Called when a block or call frame whose
// locals may have been captured goes out of scope.
func (vm *VM) CloseUpvalues(fromStackIndex int) {
	for vm.OpenUpvalues.Valid() {
		up := vm.heap.Slots[vm.OpenUpvalues].AsUpvalue()
		if up.StackIndex < fromStackIndex {
			break
		}
		up.Closed = vm.Stack[up.StackIndex]
		up.IsOpen = false
		vm.OpenUpvalues = up.Next
		up.Next = arena.Null
	}
}
