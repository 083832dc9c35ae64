package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const amideSpec = `
package test

template: amide: {
	reactants: [
		{name: "acid", match: "c.structure.endsWith('C(=O)O')"},
		{name: "amine", match: "c.structure.startsWith('N')"},
	]
	products: [
		{name: "amide", expr: "r[0].structure.replace('C(=O)O', 'C(=O)') + r[1].structure"},
	]
	filter: "r[0].id != 'malonic'"
}

library: amides: {
	template: "amide"
	pools: ["acids.smi", "amines.smi"]
}
`

const filteredLibrary = `
package test

library: acetamides: {
	template: "amide"
	pools: ["acids.smi", "amines.smi"]
	strategy: kind: "filtered"
}
`

const acidsPool = `# carboxylic acids
CC(=O)O acetic
OC(=O)CC(=O)O malonic
c1ccccc1 benzene
`

const aminesPool = `NC methylamine
NCC ethylamine
NCCC propylamine
`

// writeSpecs creates a specs directory with the amide template, the
// amides library and both pools. extra files are written alongside.
func writeSpecs(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "specs")
	require.NoError(t, os.MkdirAll(dir, 0755))

	files := map[string]string{
		"amide.cue":  amideSpec,
		"acids.smi":  acidsPool,
		"amines.smi": aminesPool,
	}
	for name, content := range extra {
		files[name] = content
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// execute runs cmd with args and returns its standard output. Logs and
// cobra's own messages are discarded.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData unmarshals the data payload of a JSON CLI response.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.CLIResponse
}
