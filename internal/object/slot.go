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

import "github.com/bufbuild/embervm/internal/dbg"

// Slot is one entry in a [Heap]'s object array: a Header plus exactly one
// populated payload, selected by Header.Kind. Only one of the payload
// pointers is ever non-nil for a given Slot.
type Slot struct {
	Header

	str    *StringData
	fn     *FunctionData
	clos   *ClosureData
	up     *UpvalueData
	cls    *ClassData
	inst   *InstanceData
	bound  *BoundMethodData
	native *NativeData
}

func (s *Slot) AsString() *StringData {
	dbg.Assert(s.Kind == KindString, "object: AsString on a %s slot", s.Kind)
	return s.str
}

func (s *Slot) AsFunction() *FunctionData {
	dbg.Assert(s.Kind == KindFunction, "object: AsFunction on a %s slot", s.Kind)
	return s.fn
}

func (s *Slot) AsClosure() *ClosureData {
	dbg.Assert(s.Kind == KindClosure, "object: AsClosure on a %s slot", s.Kind)
	return s.clos
}

func (s *Slot) AsUpvalue() *UpvalueData {
	dbg.Assert(s.Kind == KindUpvalue, "object: AsUpvalue on a %s slot", s.Kind)
	return s.up
}

func (s *Slot) AsClass() *ClassData {
	dbg.Assert(s.Kind == KindClass, "object: AsClass on a %s slot", s.Kind)
	return s.cls
}

func (s *Slot) AsInstance() *InstanceData {
	dbg.Assert(s.Kind == KindInstance, "object: AsInstance on a %s slot", s.Kind)
	return s.inst
}

func (s *Slot) AsBoundMethod() *BoundMethodData {
	dbg.Assert(s.Kind == KindBoundMethod, "object: AsBoundMethod on a %s slot", s.Kind)
	return s.bound
}

func (s *Slot) AsNative() *NativeData {
	dbg.Assert(s.Kind == KindNative, "object: AsNative on a %s slot", s.Kind)
	return s.native
}
