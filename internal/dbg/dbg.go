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

// Package dbg provides the assertion and logging helpers the heap, table,
// and collector packages use. Assert panics are reserved for violations of
// this repo's own invariants (a slot read as the wrong kind, a table
// capacity that is not a power of two); they are never used to validate
// caller input.
package dbg

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// Assert panics with the given message if cond is false. Used throughout
// internal/object, internal/table, and the vm package to state invariants that,
// if violated, indicate a bug in the collector rather than bad input.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic("embervm: assertion failed: " + fmt.Sprintf(format, args...))
	}
}

// Logger receives debug-GC trace lines. A nil *Logger discards everything,
// matching the spec's debug-log-GC flag being off by default.
type Logger struct {
	out     io.Writer
	color   bool
	enabled atomic.Bool
}

// NewLogger returns a Logger writing to w. Output is colorized only if w is
// a terminal, mirroring how the rest of this corpus gates ANSI escapes on
// golang.org/x/term.IsTerminal.
func NewLogger(w io.Writer, enabled bool) *Logger {
	l := &Logger{out: w}
	if f, ok := w.(*os.File); ok {
		l.color = term.IsTerminal(int(f.Fd()))
	}
	l.enabled.Store(enabled)
	return l
}

// SetEnabled turns logging on or off at runtime (the stress/debug flags can
// be flipped between collections in tests).
func (l *Logger) SetEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.enabled.Store(enabled)
}

// Log writes one debug-GC line: op left-aligned in a 12-column field, a
// space, then format(args...). op is a short tag (internal/gc passes "gc"
// and puts the event, such as "mark" or "trace", in the message), matching
// the original source's printf-style GC trace output.
func (l *Logger) Log(op, format string, args ...any) {
	if l == nil || !l.enabled.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.color {
		fmt.Fprintf(l.out, "\x1b[2m%-12s\x1b[0m %s\n", op, msg)
		return
	}
	fmt.Fprintf(l.out, "%-12s %s\n", op, msg)
}
