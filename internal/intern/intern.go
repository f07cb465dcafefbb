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

// Package intern implements string interning: the guarantee that any two
// strings with equal content in the running program share exactly one
// heap object, so [value.Equal] can compare strings by reference identity.
//
// Grounded on original_source/src/vm.c's vm.strings table and src/object.c's
// copyString/takeString, which always probe the intern table before
// allocating a new ObjString. The set's own entries are keyed by Ref but
// hashed by content, which is what lets internal/gc rewrite them in place
// during compaction without rehashing: see internal/table's UpdatePointers.
package intern

import (
	"github.com/bufbuild/embervm/internal/arena"
	"github.com/bufbuild/embervm/internal/object"
	"github.com/bufbuild/embervm/internal/table"
	"github.com/bufbuild/embervm/internal/value"
)

// Set is the runtime's string intern table: a [table.Table] whose keys are
// string Refs, values are always nil, and whose Hasher reads a string's
// precomputed content hash rather than its Ref.
type Set struct {
	heap  *object.Heap
	table *table.Table
}

// New creates an empty intern set backed by heap, whose strings supply
// their own precomputed hash for probing.
func New(heap *object.Heap) *Set {
	s := &Set{heap: heap}
	s.table = table.New(func(key arena.Ref) uint32 {
		return heap.Slots[key].AsString().Hash
	})
	return s
}

// Table exposes the underlying table for the collector's generic Mark/
// PruneUnreachableKeys/UpdatePointers hooks.
func (s *Set) Table() *table.Table { return s.table }

// Find looks up an already-interned string by content, per spec.md §4.3:
// (length, hash) first, then a byte-for-byte comparison only on a
// candidate match.
func (s *Set) Find(data []byte, hash uint32) (arena.Ref, bool) {
	return s.table.FindString(hash, func(candidate arena.Ref) bool {
		str := s.heap.Slots[candidate].AsString()
		return str.Length == uint32(len(data)) && str.Hash == hash && string(str.Bytes[:str.Length]) == string(data)
	})
}

// Intern returns the Ref for data, allocating and registering a new string
// only if no equal content is already interned.
func (s *Set) Intern(collect arena.Collect, data []byte) (arena.Ref, error) {
	hash := object.HashBytes(data)
	if ref, ok := s.Find(data, hash); ok {
		return ref, nil
	}
	ref, err := s.heap.NewString(collect, data, hash)
	if err != nil {
		return arena.Null, err
	}
	s.table.Set(ref, value.Nil)
	return ref, nil
}

// InternTaken is Intern for callers that already own data outright (for
// example, a string built by concatenation) and want to avoid the copy
// Intern's NewString performs when no match is found.
func (s *Set) InternTaken(collect arena.Collect, data []byte) (arena.Ref, error) {
	hash := object.HashBytes(data)
	if ref, ok := s.Find(data, hash); ok {
		return ref, nil
	}
	ref, err := s.heap.TakeString(collect, data, hash)
	if err != nil {
		return arena.Null, err
	}
	s.table.Set(ref, value.Nil)
	return ref, nil
}
