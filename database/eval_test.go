package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalQueryAndExec(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	res, err := s.Eval(ctx, "INSERT INTO meta (key, value) VALUES ('a', '1'), ('b', '2')")
	require.NoError(t, err)
	assert.False(t, res.IsQuery)
	assert.EqualValues(t, 2, res.RowsAffected)
	assert.Equal(t, "Command executed successfully.", res.Format())

	res, err = s.Eval(ctx, "  select key, value from meta order by key")
	require.NoError(t, err)
	assert.True(t, res.IsQuery)
	assert.Equal(t, []string{"key", "value"}, res.Columns)
	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}}, res.Rows)
	assert.Equal(t, "```\nkey | value\n-------------\na | 1\nb | 2\n```", res.Format())

	res, err = s.Eval(ctx, "SELECT * FROM meta WHERE key = 'zzz'")
	require.NoError(t, err)
	assert.Equal(t, "No results found.", res.Format())

	res, err = s.Eval(ctx, "PRAGMA table_info(meta)")
	require.NoError(t, err)
	assert.True(t, res.IsQuery)
	assert.Len(t, res.Rows, 2)

	_, err = s.Eval(ctx, "SELECT * FROM no_such_table")
	assert.Error(t, err)
}
