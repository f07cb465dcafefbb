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

// DefineGlobal binds name to v, overwriting any existing binding.
func (vm *VM) DefineGlobal(name arena.Ref, v value.Value) {
	vm.globals.Set(name, v)
}

// GetGlobal looks up name, returning false if it is unbound.
func (vm *VM) GetGlobal(name arena.Ref) (value.Value, bool) {
	return vm.globals.Get(name)
}

// SetGlobal reassigns an already-bound global, returning false (and
// leaving Globals untouched) if name has no existing binding — assigning
// to an undeclared global is the hosted language's job to reject, not this
// table's.
func (vm *VM) SetGlobal(name arena.Ref, v value.Value) bool {
	if _, ok := vm.globals.Get(name); !ok {
		return false
	}
	vm.globals.Set(name, v)
	return true
}
