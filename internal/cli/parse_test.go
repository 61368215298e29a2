package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	out, _, err := execute(t, "parse", "/school{code}")
	require.NoError(t, err)
	assert.Contains(t, out, "school")
	assert.Contains(t, out, "code")
}

func TestParseCommand_Tokens(t *testing.T) {
	out, _, err := execute(t, "parse", "--tokens", "/school?campus='old'")
	require.NoError(t, err)
	assert.Contains(t, out, "'old'")
	assert.Contains(t, out, "end of input")
}

func TestParseCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "parse", "/school")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ParseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "/school", resp.Data.Query)
	assert.Contains(t, resp.Data.Tree, "school")
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		query string
		code  string
	}{
		{"/school{code", "PARSE_ERROR"},
		{"/school?code='art", "SCAN_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			out, _, err := execute(t, "parse", tt.query)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, tt.code)
		})
	}
}
