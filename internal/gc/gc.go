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

// Package gc implements the heap's mark-compact collector: the four phases
// from spec.md §4.5 (Mark, Address-compute, Update, Slide), driven from an
// explicit gray-object worklist rather than the repeated full-heap rescans
// original_source/src/memory.c's markObject/collectGarbage use to reach a
// fixpoint. spec.md's Design Notes call the rescan approach out directly as
// something a cleaner implementation should replace with a worklist; doing
// so also sidesteps the original's "already gray" check, which relies on
// comparing a raw pointer against itself and doesn't translate cleanly to
// an index-based heap in the first place.
package gc

import (
	"github.com/google/uuid"

	"github.com/bufbuild/embervm/internal/arena"
	"github.com/bufbuild/embervm/internal/dbg"
	"github.com/bufbuild/embervm/internal/intern"
	"github.com/bufbuild/embervm/internal/object"
	"github.com/bufbuild/embervm/internal/table"
	"github.com/bufbuild/embervm/internal/value"
)

// RootSource is implemented by the VM: the collector never reaches into VM
// state directly, only through these five hooks, matching the "roots are
// whatever the embedder says they are" boundary from spec.md §4.4.
type RootSource interface {
	// Heap returns the heap being collected.
	Heap() *object.Heap

	// Globals returns the global-variable table, marked and rewritten like
	// any other reachable table.
	Globals() *table.Table

	// Strings returns the intern set, pruned (never marked) after Mark and
	// rewritten during Update.
	Strings() *intern.Set

	// MarkRoots calls mark for every Ref-typed root and markValue for every
	// Value-typed root: the VM stack, call frames, the open-upvalue list,
	// compiler roots, and the cached "init" string.
	MarkRoots(mark func(arena.Ref), markValue func(value.Value))

	// RewriteRoots calls rewriteRef/rewriteValue to install each root's
	// post-compaction Ref, once Phase A has decided where everything
	// moves. Must rewrite the same roots MarkRoots marks, including the
	// open-upvalue list's head — unlike original_source's
	// updateObjectPointers, which leaves vm.openUpvalues itself stale.
	RewriteRoots(rewriteRef func(arena.Ref) arena.Ref, rewriteValue func(value.Value) value.Value)
}

// Collector runs collection cycles against a [RootSource]. It is not safe
// for concurrent use: spec.md §5 describes a single-threaded, cooperative
// collector with no concurrent mutator.
type Collector struct {
	gray   []arena.Ref
	logger *dbg.Logger
}

// New creates a collector that writes debug-log-GC tracing to logger.
// Passing a disabled logger (see internal/dbg) is the zero-cost default.
func New(logger *dbg.Logger) *Collector {
	return &Collector{logger: logger}
}

// Collect runs one full collection cycle: Mark, Address-compute, Update,
// Slide, in that order, against roots' heap and roots themselves.
func (c *Collector) Collect(roots RootSource) {
	heap := roots.Heap()
	cycle := uuid.New().String()
	before := heap.Arena.BytesAllocated
	c.logger.Log("gc", "begin cycle %s (bytes_allocated=%d)", cycle, before)

	c.mark(heap, roots)
	liveCount, liveBytes := c.computeAddresses(heap)
	c.update(heap, roots, liveCount)
	c.slide(heap, liveCount)
	heap.Arena.AfterCollect(liveCount, liveBytes)

	c.logger.Log("gc", "end cycle %s (bytes_allocated %d -> %d, next_gc=%d)",
		cycle, before, heap.Arena.BytesAllocated, heap.Arena.NextGC)
}

// mark implements Phase M: mark every root, then trace the gray worklist to
// a fixpoint, then prune the intern set of every string that wasn't
// reached.
func (c *Collector) mark(heap *object.Heap, roots RootSource) {
	c.gray = c.gray[:0]

	markRef := func(r arena.Ref) { c.markRef(heap, r) }
	markValue := func(v value.Value) { c.markValue(heap, v) }

	roots.MarkRoots(markRef, markValue)
	roots.Globals().Mark(markRef, markValue)

	for len(c.gray) > 0 {
		r := c.gray[len(c.gray)-1]
		c.gray = c.gray[:len(c.gray)-1]
		c.logger.Log("gc", "trace %d (%s)", r, heap.Slots[r].Kind)
		heap.Trace(r, markRef, markValue)
	}

	roots.Strings().Table().PruneUnreachableKeys(func(r arena.Ref) bool {
		return heap.Slots[r].Forwarding.Valid()
	})
}

// markRef marks the object at r gray if it isn't already marked, per
// spec.md §4.5: a Forwarding field transitions from Null (unmarked) to
// self-referential (marked, not yet traced) exactly once per cycle.
func (c *Collector) markRef(heap *object.Heap, r arena.Ref) {
	if !r.Valid() {
		return
	}
	s := &heap.Slots[r]
	if s.Forwarding.Valid() {
		return
	}
	c.logger.Log("gc", "mark %d (%s)", r, s.Kind)
	s.Forwarding = r
	c.gray = append(c.gray, r)
}

func (c *Collector) markValue(heap *object.Heap, v value.Value) {
	if v.IsObj() {
		c.markRef(heap, v.Obj)
	}
}

// computeAddresses implements Phase A: walk every slot in allocation order,
// and for each live one (Forwarding still holds its own old index from
// Phase M), assign Forwarding to its new, compacted index.
func (c *Collector) computeAddresses(heap *object.Heap) (liveCount arena.Ref, liveBytes int) {
	to := arena.Ref(0)
	for from := arena.Ref(0); int(from) < len(heap.Slots); from++ {
		s := &heap.Slots[from]
		if !s.Forwarding.Valid() {
			continue
		}
		s.Forwarding = to
		liveBytes += object.SizeOf(s)
		to++
	}
	return to, liveBytes
}

// update implements Phase U: rewrite every live object's outgoing edges and
// every root, reading from each object's still-unmoved old position (slide
// hasn't run yet, so Forwarding fields are still addressable at the
// object's original index).
func (c *Collector) update(heap *object.Heap, roots RootSource, liveCount arena.Ref) {
	rewriteRef := func(r arena.Ref) arena.Ref { return c.rewriteRef(heap, r) }
	rewriteValue := func(v value.Value) value.Value { return c.rewriteValue(heap, v) }

	roots.RewriteRoots(rewriteRef, rewriteValue)
	roots.Globals().UpdatePointers(rewriteRef, rewriteValue)
	roots.Strings().Table().UpdatePointers(rewriteRef, rewriteValue)

	for from := arena.Ref(0); int(from) < len(heap.Slots); from++ {
		if heap.Slots[from].Forwarding.Valid() {
			heap.UpdatePointers(from, rewriteRef, rewriteValue)
		}
	}
}

func (c *Collector) rewriteRef(heap *object.Heap, r arena.Ref) arena.Ref {
	if !r.Valid() {
		return r
	}
	return heap.Slots[r].Forwarding
}

func (c *Collector) rewriteValue(heap *object.Heap, v value.Value) value.Value {
	if v.IsObj() {
		return value.Obj(c.rewriteRef(heap, v.Obj))
	}
	return v
}

// slide implements Phase S: reassemble the slot array in compacted order.
// Building a fresh backing array is the Go-native equivalent of
// original_source's forward in-place memmove: both preserve relative
// ordering among surviving objects, but a fresh slice sidesteps memmove's
// "destination index never exceeds source index" aliasing requirement
// entirely, since there is no shared backing storage to alias.
func (c *Collector) slide(heap *object.Heap, liveCount arena.Ref) {
	fresh := make([]object.Slot, liveCount)
	for from := range heap.Slots {
		s := heap.Slots[from]
		if !s.Forwarding.Valid() {
			continue
		}
		to := s.Forwarding
		s.Forwarding = arena.Null
		fresh[to] = s
	}
	heap.Slots = fresh
}
