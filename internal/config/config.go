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

// Package config loads the boot-time knobs spec.md §6 assigns to the
// embedder: arena capacity, the initial collection threshold, and the two
// debug flags (stress-GC, debug-log-GC).
package config

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Heap holds the tunables [object.NewHeap] and [gc.Collector] need at boot.
type Heap struct {
	// CapacityBytes is the arena's hard ceiling before allocation fails
	// with ErrOutOfMemory. Required; must be positive.
	CapacityBytes int `yaml:"capacity_bytes"`

	// InitialNextGC is the bytes_allocated threshold that triggers the
	// first collection. Defaults to CapacityBytes/2 if zero.
	InitialNextGC int `yaml:"initial_next_gc"`

	// StressGC forces a collection on every allocating call, per spec.md
	// §6's stress-test mode.
	StressGC bool `yaml:"stress_gc"`

	// DebugLogGC enables GC trace logging to stderr.
	DebugLogGC bool `yaml:"debug_log_gc"`
}

// Config is the full boot configuration.
type Config struct {
	Heap Heap `yaml:"heap"`
}

// Default returns the configuration embervm starts with when no config
// file is supplied.
func Default() Config {
	const defaultCapacity = 64 << 20
	return Config{Heap: Heap{
		CapacityBytes: defaultCapacity,
		InitialNextGC: defaultCapacity / 2,
	}}
}

// Load reads and validates a YAML configuration from r.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	// Cleared so that an omitted initial_next_gc is derived from the
	// decoded capacity by Validate rather than kept from Default's.
	cfg.Heap.InitialNextGC = 0
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether cfg's values are usable, filling in any
// zero-valued derived default (InitialNextGC) before checking.
func (c *Config) Validate() error {
	if c.Heap.CapacityBytes <= 0 {
		return errors.New("config: heap.capacity_bytes must be positive")
	}
	if c.Heap.InitialNextGC <= 0 {
		c.Heap.InitialNextGC = c.Heap.CapacityBytes / 2
	}
	if c.Heap.InitialNextGC > c.Heap.CapacityBytes {
		return errors.New("config: heap.initial_next_gc must not exceed heap.capacity_bytes")
	}
	return nil
}
