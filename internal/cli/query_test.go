package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oldSchoolsJSON = `{
  "school": [
    {
      "code": "art"
    },
    {
      "code": "la"
    },
    {
      "code": "ns"
    }
  ]
}
`

func TestQueryCommand_JSON(t *testing.T) {
	db := schoolDB(t)
	out, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "/school?campus='old'{code}")
	require.NoError(t, err)
	assert.Equal(t, oldSchoolsJSON, out)
}

func TestQueryCommand_IntrospectedCatalog(t *testing.T) {
	db := schoolDB(t)
	out, _, err := execute(t, "--db", db, "query", "/school?campus='old'{code}")
	require.NoError(t, err)
	assert.Equal(t, oldSchoolsJSON, out)
}

func TestQueryCommand_Formats(t *testing.T) {
	db := schoolDB(t)

	t.Run("pipe", func(t *testing.T) {
		out, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "/school?campus='old'{code}/:csv")
		require.NoError(t, err)
		assert.Equal(t, "code\nart\nla\nns\n", out)
	})

	t.Run("flag", func(t *testing.T) {
		out, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "-o", "csv", "/school?campus='old'{code}")
		require.NoError(t, err)
		assert.Equal(t, "code\nart\nla\nns\n", out)
	})

	t.Run("sql", func(t *testing.T) {
		out, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "-o", "sql", "/school{code}")
		require.NoError(t, err)
		assert.Contains(t, out, "SELECT")
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "-o", "xml", "/school{code}")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestQueryCommand_Params(t *testing.T) {
	db := schoolDB(t)
	out, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "-p", "c=old", "/school?campus=$c{code}")
	require.NoError(t, err)
	assert.Equal(t, oldSchoolsJSON, out)
}

func TestQueryCommand_Errors(t *testing.T) {
	db := schoolDB(t)

	t.Run("bind", func(t *testing.T) {
		out, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "/schol")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "BIND_ERROR")
	})

	t.Run("csv of nested segment", func(t *testing.T) {
		out, _, err := execute(t, "--catalog", schoolCatalog, "--db", db, "query", "-o", "csv", "/school{code, /department{code}}")
		require.Error(t, err)
		assert.Contains(t, out, "SERIALIZE_ERROR")
	})

	t.Run("no database", func(t *testing.T) {
		out, _, err := execute(t, "--catalog", schoolCatalog, "query", "/school")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "no database configured")
	})
}

func TestQueryCommand_Verbose(t *testing.T) {
	db := schoolDB(t)
	_, errOut, err := execute(t, "-v", "--catalog", schoolCatalog, "--db", db, "query", "/school{code}")
	require.NoError(t, err)
	assert.Contains(t, errOut, "running with dialect=sqlite")
	assert.Contains(t, errOut, `msg="plan executed"`)
}
