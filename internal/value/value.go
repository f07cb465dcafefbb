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

// Package value defines the VM's tagged value representation: the things
// that live on the stack, in table entries, and in constant arrays.
//
// A Value is deliberately pointer-free: the Obj case holds an [arena.Ref]
// index, not a Go pointer, so a Value can be copied, stored in a slice, or
// embedded inline inside another heap object's array (a Function's
// constant pool, a table's entries) without the host's own
// collector needing to trace through it specially, and without aliasing
// concerns during the heap's own compaction.
package value

import (
	"fmt"

	"github.com/bufbuild/embervm/internal/arena"
)

// Tag discriminates which field of a Value is meaningful.
type Tag uint8

const (
	TagNil Tag = iota
	TagBool
	TagNumber
	TagObj
)

// Value is a dynamically-typed VM value.
type Value struct {
	Tag    Tag
	Bool   bool
	Number float64
	Obj    arena.Ref // valid only when Tag == TagObj
}

// Nil is the singleton nil value.
var Nil = Value{Tag: TagNil}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Tag: TagBool, Bool: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{Tag: TagNumber, Number: n} }

// Obj wraps a reference to a heap object.
func Obj(ref arena.Ref) Value { return Value{Tag: TagObj, Obj: ref} }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.Tag == TagNil }

// IsObj reports whether v references a heap object.
func (v Value) IsObj() bool { return v.Tag == TagObj }

// IsFalsey implements the hosted language's truthiness rule: nil and false
// are falsey, everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.Tag == TagNil || (v.Tag == TagBool && !v.Bool)
}

// Equal implements value equality. Objects compare by reference identity,
// which is sound because strings are interned (see internal/intern):
// two Values referencing equal string contents always share one Ref.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNil:
		return true
	case TagBool:
		return a.Bool == b.Bool
	case TagNumber:
		return a.Number == b.Number
	case TagObj:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String implements fmt.Stringer for debug output. It cannot render object
// contents (that requires the heap); it prints just the reference.
func (v Value) String() string {
	switch v.Tag {
	case TagNil:
		return "nil"
	case TagBool:
		return fmt.Sprintf("%t", v.Bool)
	case TagNumber:
		return fmt.Sprintf("%g", v.Number)
	case TagObj:
		return fmt.Sprintf("obj(%d)", v.Obj)
	default:
		return "<invalid value>"
	}
}
