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

// Package arena implements the heap's bump allocator: a single counter that
// hands out monotonically increasing object indices, plus the byte
// accounting that decides when the caller must run a collection.
//
// # Design
//
// A systems implementation of this heap lays object headers out contiguously
// in one byte buffer addressed by raw pointers, with forwarding addresses
// computed in place during compaction. That shape doesn't survive the trip
// to a memory-safe host: a forwarding "pointer" would alias the arena's own
// backing storage, and any real pointer smuggled into a byte region that
// gets physically memmove'd during sliding would go untraced by the host's
// own collector — precisely the hazard this corpus's own low-level arena
// package calls out in its doc comment ("arenas are designed to only return
// pointers to data with pointer-free shape").
//
// spec.md's Design Notes prescribe the fix directly: every managed
// reference becomes an index (a [Ref]) into a slot array rather than a byte
// offset into raw memory. internal/object owns that slot array; this
// package owns only the bump counter and allocation policy (collection
// triggers, capacity, byte accounting) that spec.md §4.1 assigns to the
// arena. Compaction becomes an index remap over ordinary, host-GC-visible
// Go values instead of a byte-level memmove — the aliasing and
// pointer-visibility hazards disappear, while every invariant spec.md
// states in terms of "bytes" and "addresses" still holds literally:
// bytes_allocated and next_gc remain real byte counts (via
// internal/object's size_of), bytes_allocated still equals Σ size_of(o)
// over the slots in [0, Next), and
// OutOfMemory still fires on real capacity pressure. Only the
// representation of "address" changed, from pointer to slot index.
package arena

import "github.com/pkg/errors"

// Ref is an arena-relative reference: an index into the heap's slot array.
// The zero value is a valid reference to the first slot; use Null for "no
// object".
type Ref int32

// Null is the reference that points at nothing: the "unreachable" state of
// a forwarding slot, and the value of any pointer field with no object.
const Null Ref = -1

// Valid reports whether r denotes an actual slot in the heap.
func (r Ref) Valid() bool { return r >= 0 }

// ErrOutOfMemory is returned when the arena cannot satisfy a request even
// after the most recent collection. The vm package returns it, wrapped, to
// the caller of the allocating method; it does not terminate the process.
var ErrOutOfMemory = errors.New("out of memory")

// Arena is the heap's bump allocator state: the high-water mark over the
// slot array, the byte-accounting counters that drive collection policy,
// and the two debug knobs from spec.md §6.
type Arena struct {
	// Next is the number of slots currently in use, and the index the next
	// allocation will receive. Plays the role of spec.md's bump pointer.
	Next Ref

	// Capacity is the maximum number of live+dead bytes_allocated may reach
	// before allocation fails with ErrOutOfMemory.
	Capacity int

	// BytesAllocated is the total live+dead logical byte size of every slot
	// in [0, Next), per internal/object's size_of formulas.
	BytesAllocated int

	// NextGC is the bytes_allocated threshold that triggers the next
	// collection.
	NextGC int

	// StressGC forces a collection on every allocating call, per spec.md §6.
	StressGC bool

	// DebugLogGC records the debug-log-GC setting, per spec.md §6. Nothing
	// reads it: tracing is switched on and off by the collector's
	// dbg.Logger, not by this field.
	DebugLogGC bool
}

// New creates an arena with the given byte capacity and initial GC
// threshold.
func New(capacity, initialNextGC int) *Arena {
	return &Arena{Capacity: capacity, NextGC: initialNextGC}
}

// Collect is the callback the arena invokes when an allocation decides a
// collection is due. internal/gc supplies the real implementation; this
// package never imports internal/gc (which itself imports this one).
type Collect func()

// Reserve accounts for a new allocation of newSize logical bytes, replacing
// an existing allocation of oldSize bytes (zero for a brand-new object),
// runs collect per spec.md §4.1's trigger policy, and returns the index of
// a freshly bumped slot.
//
// oldSize/newSize mirror spec.md's allocate(old, old_size, new_size): a
// constructor reserving space for a brand-new object passes oldSize 0.
//
// The trigger check reads BytesAllocated+delta rather than committing the
// delta first: collect, when it runs, ends by setting BytesAllocated to a
// freshly recomputed live total (Phase S's AfterCollect) that by
// construction excludes the very allocation Reserve is in the middle of
// satisfying — it isn't a Slot yet. Committing the delta only after collect
// returns is what keeps bytes_allocated equal to Σ size_of over [0, Next)
// the instant Reserve hands back a Ref, matching spec.md §3's invariant; adding
// it first, the way original_source/src/memory.c's reallocate does for its
// running-counter-plus-sweep-decrement accounting, would have collect's
// reset silently erase it here.
func (a *Arena) Reserve(collect Collect, oldSize, newSize int) (Ref, error) {
	delta := newSize - oldSize

	if newSize > oldSize {
		switch {
		case a.StressGC:
			collect()
		case a.BytesAllocated+delta > a.NextGC:
			collect()
		}
	}

	a.BytesAllocated += delta

	if newSize == 0 {
		return Null, nil
	}

	if a.BytesAllocated > a.Capacity {
		return Null, errors.Wrap(ErrOutOfMemory, "arena: reserve")
	}

	ref := a.Next
	a.Next++
	return ref, nil
}

// Grow adjusts the byte-accounting counters for growing an allocation that
// does not receive a new Ref. It runs the same trigger policy as Reserve
// but never advances Next. internal/table's growth does not call it: table
// entry arrays sit outside the arena's byte accounting.
func (a *Arena) Grow(collect Collect, oldSize, newSize int) error {
	delta := newSize - oldSize
	if newSize > oldSize {
		switch {
		case a.StressGC:
			collect()
		case a.BytesAllocated+delta > a.NextGC:
			collect()
		}
	}
	a.BytesAllocated += delta
	if a.BytesAllocated > a.Capacity {
		return errors.Wrap(ErrOutOfMemory, "arena: grow")
	}
	return nil
}

// AfterCollect installs the post-compaction state per spec.md §4.5 Phase S:
// next resets to the live count, bytes_allocated to the live size, and
// next_gc doubles the live size.
func (a *Arena) AfterCollect(liveCount Ref, liveBytes int) {
	a.Next = liveCount
	a.BytesAllocated = liveBytes
	a.NextGC = liveBytes * 2
}
