package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/ir"
)

// createTestStore opens a fresh store that is closed when the test ends.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:       id,
		Name:     "amides",
		Template: "amide",
		Strategy: "cartesian(last_fastest)",
		Sizes:    []int{3, 4},
		Library:  []byte(`{"format":"rxnenum/library"}`),
		Workers:  1,
	}
}

// createTestResult creates a matched result with one product per step.
func createTestResult(step uint64, pos ...int) *ir.Result {
	return &ir.Result{
		Step:     step,
		Position: pos,
		Groups: [][]ir.Product{{
			{Structure: "CC(=O)NC", Sources: []string{"acid-0", "amine-0"}},
		}},
		Matched: true,
	}
}
