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

package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bufbuild/embervm/internal/config"
)

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`heap:
  capacity_bytes: 1048576
  stress_gc: true
`))
	require.NoError(t, err)
	require.Equal(t, 1048576, cfg.Heap.CapacityBytes)
	require.Equal(t, 1048576/2, cfg.Heap.InitialNextGC)
	require.True(t, cfg.Heap.StressGC)
	require.False(t, cfg.Heap.DebugLogGC)
}

func TestLoadEmptyUsesBuiltinDefault(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoadRejectsZeroCapacity(t *testing.T) {
	_, err := config.Load(strings.NewReader(`heap:
  capacity_bytes: 0
`))
	require.Error(t, err)
}

func TestLoadRejectsNextGCAboveCapacity(t *testing.T) {
	_, err := config.Load(strings.NewReader(`heap:
  capacity_bytes: 100
  initial_next_gc: 200
`))
	require.Error(t, err)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := config.Load(strings.NewReader(`heap:
  capacity_bytes: 100
  bogus_field: true
`))
	require.Error(t, err)
}
