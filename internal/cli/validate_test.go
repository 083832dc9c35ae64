package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidSpecs(t *testing.T) {
	dir := writeSpecs(t, nil)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All specs valid")
	assert.Contains(t, out, "amide: 2 reactant(s) [acid, amine] → 1 product(s) [amide]")
	assert.Contains(t, out, "amides: amide over 2 pool(s), cartesian(last_fastest)")
}

func TestValidateValidSpecsJSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"filtered.cue": filteredLibrary})

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	require.Len(t, result.Templates, 1)
	assert.True(t, result.Templates[0].Filter)
	assert.Len(t, result.Libraries, 2)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no CUE files found")
}

func TestValidateBadExpression(t *testing.T) {
	dir := t.TempDir()
	spec := `
package test

template: broken: {
	reactants: [{name: "a", match: "c.structure =="}]
	products: [{name: "p", expr: "r[0].structure"}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte(spec), 0644))

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, ErrCodeInvalidExpression)
}

func TestValidateUnknownTemplateReference(t *testing.T) {
	dir := t.TempDir()
	spec := `
package test

library: orphans: {
	template: "missing"
	pools: ["a.smi"]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orphan.cue"), []byte(spec), 0644))

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateMissingProducts(t *testing.T) {
	dir := t.TempDir()
	spec := `
package test

template: empty: {
	reactants: [{name: "a"}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.cue"), []byte(spec), 0644))

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeTemplateProducts)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"name", ErrCodeTemplateName},
		{"reactants[0].name", ErrCodeTemplateReactants},
		{"products", ErrCodeTemplateProducts},
		{"filter", ErrCodeInvalidExpression},
		{"template", ErrCodeLibraryTemplate},
		{"pools[1]", ErrCodeLibraryPools},
		{"params.reagent_max_match_count", ErrCodeInvalidParams},
		{"strategy.kind", ErrCodeInvalidStrategy},
		{"elsewhere", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
