package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateCommand(t *testing.T) {
	out, _, err := execute(t, "--catalog", schoolCatalog, "translate", "/school{code}")
	require.NoError(t, err)
	assert.Contains(t, out, `FROM "school" AS "school"`)
	assert.True(t, strings.HasSuffix(out, ";\n"))
}

func TestTranslateCommand_Dialects(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"sqlite", "LIMIT 2"},
		{"pgsql", `"demo"."school"`},
		{"mysql", "`demo`.`school`"},
		{"mssql", "TOP 2"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			out, _, err := execute(t, "--catalog", schoolCatalog, "--dialect", tt.dialect, "translate", "/school.limit(2)")
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTranslateCommand_NestedJSON(t *testing.T) {
	out, _, err := execute(t, "--catalog", schoolCatalog, "--format", "json",
		"translate", "/school{code, /department{code}}")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   TranslateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sqlite", resp.Data.Dialect)
	assert.Equal(t, "school", resp.Data.Title)
	assert.Len(t, resp.Data.SQL, 2)
	assert.NotEmpty(t, resp.Data.Plan)
}

func TestTranslateCommand_Params(t *testing.T) {
	out, _, err := execute(t, "--catalog", schoolCatalog, "translate", "-p", "c=old", "/school?campus=$c")
	require.NoError(t, err)
	assert.Contains(t, out, "'old'")
}

func TestTranslateCommand_BindError(t *testing.T) {
	out, _, err := execute(t, "--catalog", schoolCatalog, "--format", "json", "translate", "/schol")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BIND_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "schol")
}

func TestTranslateCommand_NoCatalog(t *testing.T) {
	out, _, err := execute(t, "translate", "/school")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeCatalog)
	assert.Contains(t, out, "no catalog")
}

func TestTranslateCommand_MissingCatalogFile(t *testing.T) {
	_, _, err := execute(t, "--catalog", "missing.yaml", "translate", "/school")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load catalog")
}
