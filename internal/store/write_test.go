package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/ir"
)

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	run.StartStep = 4
	run.EndStep = 8
	run.Worker = 1
	run.Workers = 3

	if err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	var sizes string
	var start, end int64
	err := s.db.QueryRow(`SELECT sizes, start_step, end_step FROM runs WHERE id = ?`, run.ID).
		Scan(&sizes, &start, &end)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if sizes != "[3,4]" {
		t.Errorf("sizes = %q, want %q", sizes, "[3,4]")
	}
	if start != 4 || end != 8 {
		t.Errorf("range = [%d, %d), want [4, 8)", start, end)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	require.NoError(t, s.WriteRun(ctx, run))

	run.Name = "renamed"
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "amides", got.Name, "first write wins")

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWriteRun_DefaultsWorkers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	run.Workers = 0
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Workers)
}

func TestWriteCheckpoint_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))

	cp := Checkpoint{RunID: "run-1", Step: 10, State: []byte("first")}
	require.NoError(t, s.WriteCheckpoint(ctx, cp))

	cp.State = []byte("second")
	require.NoError(t, s.WriteCheckpoint(ctx, cp))

	got, err := s.LatestCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got.State)
}

func TestWriteCheckpoint_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteCheckpoint(context.Background(), Checkpoint{RunID: "missing", State: []byte("x")})
	assert.Error(t, err)
}

func TestWriteResult_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))

	require.NoError(t, s.WriteResult(ctx, "run-1", createTestResult(0, 0, 0), ""))
	require.NoError(t, s.WriteResult(ctx, "run-1", createTestResult(0, 0, 0), "ignored"))

	records, err := s.ReadResults(ctx, "run-1", ResultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Error)
}

func TestWriteResult_StoresDigest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))

	res := createTestResult(3, 0, 3)
	require.NoError(t, s.WriteResult(ctx, "run-1", res, ""))

	want, err := ir.ResultDigest(res)
	require.NoError(t, err)

	records, err := s.ReadResults(ctx, "run-1", ResultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, want, records[0].Digest)
}

func TestWriteResult_StepOutOfRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1")))

	err := s.WriteResult(ctx, "run-1", createTestResult(1<<63, 0, 0), "")
	assert.ErrorContains(t, err, "exceeds storable range")
}
