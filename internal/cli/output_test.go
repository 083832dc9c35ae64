package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/compiler"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(CountResult{Library: "amides", Permutations: 6}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "amides", resp.Data.(map[string]any)["library"])
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error(ErrCodePoolLoad, "pool acids.smi: empty", map[string]int{"role": 0}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodePoolLoad, resp.Error.Code)
	assert.Equal(t, "pool acids.smi: empty", resp.Error.Message)
	assert.Equal(t, map[string]any{"role": float64(0)}, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{"quiet", false, "Error [E011]: run abc not found\n"},
		{"verbose", true, "Error [E011]: run abc not found\nDetails: abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := &OutputFormatter{Format: "text", Writer: &buf, Verbose: tt.verbose}
			require.NoError(t, f.Error(ErrCodeRunNotFound, "run abc not found", "abc"))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := f.Fail(ExitCommandError, ErrCodeNotFound, "specs directory not found: x")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.EqualError(t, err, "E005: specs directory not found: x")
	assert.Equal(t, "Error [E005]: specs directory not found: x\n", buf.String())
}

func TestOutputFormatter_FailLoad(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.FailLoad(&LoadError{Code: ErrCodeNoLibrary, Message: `library "x" not found`})
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decodeData(t, buf.String(), nil)
	assert.Equal(t, ErrCodeNoLibrary, resp.Error.Code)

	buf.Reset()
	err = f.FailLoad(errors.New("boom"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp = decodeData(t, buf.String(), nil)
	assert.Equal(t, ErrCodeGeneric, resp.Error.Code)
}

func TestNewFormatter(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	f := newFormatter(&RootOptions{Format: "json", Verbose: true}, cmd)
	assert.True(t, f.JSON())
	assert.True(t, f.Verbose)
	assert.Same(t, &out, f.Writer)
}

func TestCLIResponse_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(CLIResponse{Status: "ok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	data, err = json.Marshal(CLIError{Code: compiler.ErrTemplateNoProduct, Message: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"`+compiler.ErrTemplateNoProduct+`","message":"m"}`, string(data))
}
