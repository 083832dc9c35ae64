package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/ir"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_SMILES(t *testing.T) {
	path := writeFile(t, "amines.smi", `# primary amines
NCc1ccccc1 benzylamine
CCN

NC1CCCCC1 cyclohexylamine hydrochloride salt
`)

	cands, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cands, 3)

	assert.Equal(t, ir.Candidate{ID: "benzylamine", Structure: "NCc1ccccc1"}, cands[0])
	assert.Equal(t, "amines-1", cands[1].ID, "missing ids are generated from the file stem")
	assert.Equal(t, ir.IRObject{"name": ir.IRString("hydrochloride salt")}, cands[2].Props)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "acids.yaml", `
- id: acetic
  structure: CC(=O)O
  props:
    mw_mg: 60052
    vendor: acme
- structure: OC(=O)c1ccccc1
`)

	cands, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, "acetic", cands[0].ID)
	assert.Equal(t, ir.IRObject{"mw_mg": ir.IRInt(60052), "vendor": ir.IRString("acme")}, cands[0].Props)
	assert.Equal(t, "acids-1", cands[1].ID)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "pool.json", `[
		{"id": "a", "structure": "C", "props": {"tags": ["cheap", "stock"], "count": 3}},
		{"id": "b", "structure": "CC"}
	]`)

	cands, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, ir.IRObject{
		"tags":  ir.IRArray{ir.IRString("cheap"), ir.IRString("stock")},
		"count": ir.IRInt(3),
	}, cands[0].Props)
	assert.Nil(t, cands[1].Props)
}

func TestLoad_JSONL(t *testing.T) {
	path := writeFile(t, "pool.jsonl", `{"id":"x","structure":"O"}

{"id":"y","structure":"N"}
`)

	cands, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, []string{cands[0].ID, cands[1].ID})
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name, file, content, want string
	}{
		{"float prop", "p.json", `[{"id":"a","structure":"C","props":{"mw":60.05}}]`, "floats are forbidden"},
		{"null prop", "p.yaml", "- id: a\n  structure: C\n  props:\n    mw: null\n", "null is forbidden"},
		{"empty structure", "p.jsonl", `{"id":"a","structure":"  "}`, "line 1: empty structure"},
		{"duplicate ids", "p.smi", "C a\nCC b\nCCC a\n", "duplicate candidate ids: a"},
		{"bad jsonl line", "p.jsonl", "{\"id\":\"a\",\"structure\":\"C\"}\n{oops}\n", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_UnknownExtension(t *testing.T) {
	_, err := Load(writeFile(t, "pool.sdf", "whatever"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.smi"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_NormalizesNFC(t *testing.T) {
	decomposed := "e\u0301"
	cands, err := Parse(strings.NewReader("C "+decomposed+"\n"), FormatSMILES, "s")
	require.NoError(t, err)

	assert.Equal(t, "\u00e9", cands[0].ID)
}

func TestParse_EmptyYAML(t *testing.T) {
	cands, err := Parse(strings.NewReader(""), FormatYAML, "s")
	require.NoError(t, err)
	assert.Empty(t, cands)
}
