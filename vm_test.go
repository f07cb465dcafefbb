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

package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bufbuild/embervm/internal/arena"
	"github.com/bufbuild/embervm/internal/config"
	"github.com/bufbuild/embervm/internal/value"
	vm "github.com/bufbuild/embervm"
)

func newVM(t *testing.T) *vm.VM {
	t.Helper()
	cfg := config.Default()
	cfg.Heap.CapacityBytes = 1 << 16
	cfg.Heap.InitialNextGC = 1 << 15
	return vm.New(cfg)
}

func TestPushPopPeek(t *testing.T) {
	m := newVM(t)
	m.Push(value.Number(1))
	m.Push(value.Number(2))
	require.Equal(t, value.Number(2), m.Peek(0))
	require.Equal(t, value.Number(2), m.Pop())
	require.Equal(t, value.Number(1), m.Pop())
}

func TestCopyStringInternsEqualContent(t *testing.T) {
	m := newVM(t)
	a, err := m.CopyString([]byte("hello"))
	require.NoError(t, err)
	b, err := m.CopyString([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestConcatenateBuildsAndInterns(t *testing.T) {
	m := newVM(t)
	a, err := m.CopyString([]byte("foo"))
	require.NoError(t, err)
	b, err := m.CopyString([]byte("bar"))
	require.NoError(t, err)

	result, err := m.Concatenate(a, b)
	require.NoError(t, err)
	require.Equal(t, "foobar", m.Heap().Slots[result].AsString().Text())
}

func TestConcatenateSurvivesCollectionTriggeredMidBuild(t *testing.T) {
	m := newVM(t)

	// a is only reachable through this local variable until it is pushed:
	// root it before turning on stress mode, or the very next allocation
	// would reclaim it out from under this test.
	a, err := m.CopyString([]byte("alpha"))
	require.NoError(t, err)
	m.Push(value.Obj(a))

	m.Heap().Arena.StressGC = true // force a collection on every allocation

	b, err := m.CopyString([]byte("beta"))
	require.NoError(t, err)
	m.Push(value.Obj(b))

	result, err := m.Concatenate(a, b)
	require.NoError(t, err)
	require.Equal(t, "alphabeta", m.Heap().Slots[result].AsString().Text())

	m.Pop()
	m.Pop()
}

func TestGlobalsDefineGetSet(t *testing.T) {
	m := newVM(t)
	name, err := m.CopyString([]byte("x"))
	require.NoError(t, err)

	_, ok := m.GetGlobal(name)
	require.False(t, ok)

	m.DefineGlobal(name, value.Number(1))
	v, ok := m.GetGlobal(name)
	require.True(t, ok)
	require.Equal(t, value.Number(1), v)

	require.True(t, m.SetGlobal(name, value.Number(2)))
	v, _ = m.GetGlobal(name)
	require.Equal(t, value.Number(2), v)

	unknown, err := m.CopyString([]byte("y"))
	require.NoError(t, err)
	require.False(t, m.SetGlobal(unknown, value.Number(3)))
}

func TestCaptureAndCloseUpvalue(t *testing.T) {
	m := newVM(t)
	m.Push(value.Number(42))

	up, err := m.CaptureUpvalue(0)
	require.NoError(t, err)
	same, err := m.CaptureUpvalue(0)
	require.NoError(t, err)
	require.Equal(t, up, same, "capturing the same stack slot twice must return the same upvalue")

	m.CloseUpvalues(0)
	require.False(t, m.OpenUpvalues.Valid())
	require.Equal(t, value.Number(42), m.Heap().Slots[up].AsUpvalue().Closed)
}

func TestClassMethodLookupSurvivesCollection(t *testing.T) {
	m := newVM(t)
	className, err := m.CopyString([]byte("Greeter"))
	require.NoError(t, err)
	methodName, err := m.CopyString([]byte("greet"))
	require.NoError(t, err)

	// Allocate and drop a string nobody roots, ahead of the class and its
	// method, so the collection below has garbage to compact away and the
	// objects allocated after it move to lower indices.
	_, err = m.CopyString([]byte("unreferenced"))
	require.NoError(t, err)

	class, err := m.NewClass(className)
	require.NoError(t, err)
	fn, err := m.NewFunction()
	require.NoError(t, err)
	closure, err := m.NewClosure(fn, 0)
	require.NoError(t, err)
	m.Heap().Slots[class].AsClass().Methods.Set(methodName, value.Obj(closure))
	m.DefineGlobal(className, value.Obj(class))

	m.CollectGarbage()

	// A Ref held only in a local variable across a collection is not
	// rewritten — only roots are. Re-derive every Ref through content
	// lookup afterwards rather than trusting className/methodName/class
	// above, which may now be stale.
	className, err = m.CopyString([]byte("Greeter"))
	require.NoError(t, err)
	methodName, err = m.CopyString([]byte("greet"))
	require.NoError(t, err)

	got, ok := m.GetGlobal(className)
	require.True(t, ok)
	require.True(t, got.IsObj())
	method, ok := m.Heap().Slots[got.Obj].AsClass().Methods.Get(methodName)
	require.True(t, ok)
	require.True(t, method.IsObj())
}

func TestCollectGarbageReclaimsUnreachableObjects(t *testing.T) {
	m := newVM(t)
	beforeCount := len(m.Heap().Slots) // the interned "init" string

	_, err := m.CopyString([]byte("unreachable"))
	require.NoError(t, err)
	require.Equal(t, beforeCount+1, len(m.Heap().Slots))

	m.CollectGarbage()
	require.Equal(t, beforeCount, len(m.Heap().Slots))
}

func TestOutOfMemoryIsReturnedNotPanicked(t *testing.T) {
	// Sized to fit the "init" string interned at startup but not the
	// second, larger allocation below, even after the collection that
	// allocation triggers finds nothing reclaimable (InitString is itself
	// a root).
	cfg := config.Default()
	cfg.Heap.CapacityBytes = 30
	cfg.Heap.InitialNextGC = 16
	m := vm.New(cfg)

	_, err := m.CopyString([]byte("this string will not fit"))
	require.ErrorIs(t, err, arena.ErrOutOfMemory)
}

func TestInitStringInternedAtStartup(t *testing.T) {
	m := newVM(t)
	require.True(t, m.InitString.Valid())
	require.Equal(t, "init", m.Heap().Slots[m.InitString].AsString().Text())
}
