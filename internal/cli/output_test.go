package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitCommandError, "bad path")
	assert.Equal(t, "bad path", err.Error())
	assert.Nil(t, errors.Unwrap(err))

	cause := errors.New("disk full")
	wrapped := WrapExitError(ExitFailure, "write failed", cause)
	assert.Equal(t, "write failed: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "x"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "x")), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"a": 1}, "a is 1"))
	assert.Equal(t, "a is 1\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Error(CodeBadInput, "line 3: missing kind", "ignored without verbose"))
	assert.Equal(t, "Error [E001]: line 3: missing kind\n", buf.String())
}

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"a": 1}, "ignored"))

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data["a"])

	buf.Reset()
	require.NoError(t, f.Error(CodeSettle, "effects did not settle", map[string]int{"in_flight": 2}))

	var errResp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &errResp))
	assert.Equal(t, "error", errResp.Status)
	require.NotNil(t, errResp.Error)
	assert.Equal(t, CodeSettle, errResp.Error.Code)
	assert.Equal(t, "effects did not settle", errResp.Error.Message)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("seq %d", 1)
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("seq %d", 1)
	assert.Empty(t, out.String(), "verbose output must not corrupt JSON on stdout")
	assert.Equal(t, "seq 1\n", errOut.String())

	noErr := &OutputFormatter{Format: "text", Writer: out, Verbose: true}
	noErr.VerboseLog("fallback")
	assert.Equal(t, "fallback\n", out.String())
}
