package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMark_PositionAndExcerpt(t *testing.T) {
	input := "/school\n{nme}"
	m := NewMark(input, 9, 12)

	line, col := m.Position()
	assert.Equal(t, 2, line)
	assert.Equal(t, 2, col)
	assert.Equal(t, "nme", m.Text())
	assert.Equal(t, "{nme}\n ^^^", m.Excerpt())
}

func TestMark_Union(t *testing.T) {
	input := "/school{name}"
	a := NewMark(input, 1, 7)
	b := NewMark(input, 8, 12)

	u := Union(a, b)
	assert.Equal(t, 1, u.Start)
	assert.Equal(t, 12, u.End)
	assert.Equal(t, a, Union(a, Mark{}))
	assert.Equal(t, b, Union(Mark{}, b))
}

func TestNewMark_Clamps(t *testing.T) {
	m := NewMark("abc", -3, 10)
	assert.Equal(t, 0, m.Start)
	assert.Equal(t, 3, m.End)
}

func TestError_Classification(t *testing.T) {
	err := Errorf(KindBind, NewMark("/x", 1, 2), "unrecognized attribute %q", "x")
	wrapped := fmt.Errorf("translating: %w", err)

	assert.True(t, IsBindError(wrapped))
	assert.False(t, IsScanError(wrapped))
	assert.Equal(t, KindBind, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsBindError(nil))
}

func TestError_Message(t *testing.T) {
	err := Errorf(KindParse, NewMark("/school{", 8, 8), "unexpected end of input")
	assert.Equal(t, "PARSE_ERROR: unexpected end of input (at 1:9)", err.Error())

	detail := err.WithHint("close the selection with '}'").Detail()
	assert.Contains(t, detail, "While processing:")
	assert.Contains(t, detail, "/school{")
	assert.Contains(t, detail, "Hint: close the selection")
}

func TestNewDBError_Unwraps(t *testing.T) {
	cause := errors.New("no such table: school")
	err := NewDBError("SELECT 1", cause)

	require.True(t, IsDBError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Detail(), "SELECT 1")
}
