package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoversWalk(t *testing.T) {
	dir := writeSpecs(t, nil)

	out, err := execute(NewPartitionCommand(&RootOptions{Format: "json"}), dir, "--workers", "4")
	require.NoError(t, err)

	var result PartitionResult
	decodeData(t, out, &result)
	assert.Equal(t, "amides", result.Library)
	assert.Equal(t, uint64(6), result.Total)
	require.Len(t, result.Ranges, 4)

	var next uint64
	for i, r := range result.Ranges {
		assert.Equal(t, i, r.Worker)
		assert.Equal(t, next, r.Start, "ranges must be contiguous")
		assert.Equal(t, r.End-r.Start, r.Len)
		next = r.End
	}
	assert.Equal(t, uint64(6), next)
	assert.Equal(t, []int{0, 0}, result.Ranges[0].Position)
}

func TestPartitionText(t *testing.T) {
	dir := writeSpecs(t, nil)

	out, err := execute(NewPartitionCommand(&RootOptions{Format: "text"}), dir, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Library amides: 6 step(s) over 2 worker(s)")
	assert.Contains(t, out, "worker 0: [0, 3) 3 step(s), from [0 0]")
	assert.Contains(t, out, "worker 1: [3, 6) 3 step(s), from [1 0]")
}

func TestPartitionFilteredUnsupported(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"filtered.cue": filteredLibrary})

	out, err := execute(NewPartitionCommand(&RootOptions{Format: "text"}), dir, "--library", "acetamides", "--workers", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInvalidStrategy)
}
