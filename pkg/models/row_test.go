package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonpool "github.com/ajitpratap0/nebula-snowflake/pkg/json"
)

func TestRow_PreservesInsertionOrder(t *testing.T) {
	row := NewRow(3)
	row.Set("zeta", 1)
	row.Set("alpha", "a")
	row.Set("mid", nil)
	row.Set("zeta", 2)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, row.Keys())
	assert.Equal(t, 2, row.Value("zeta"))

	v, ok := row.Get("mid")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = row.Get("missing")
	assert.False(t, ok)
}

func TestRow_MarshalJSONOrdered(t *testing.T) {
	row := NewRow(2)
	row.Set("name", "B,C")
	row.Set("id", 2)

	data, err := jsonpool.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"B,C","id":2}`, string(data))
}

func TestRow_UnmarshalJSONSortsKeys(t *testing.T) {
	var row Row
	require.NoError(t, jsonpool.Unmarshal([]byte(`{"b":1,"a":"x"}`), &row))

	assert.Equal(t, []string{"a", "b"}, row.Keys())
	assert.Equal(t, float64(1), row.Value("b"))
}

func TestRow_Pick(t *testing.T) {
	row := RowFromMap(map[string]interface{}{"id": 5, "name": "X", "extra": true})

	picked := row.Pick([]string{"name", "id", "absent"})
	assert.Equal(t, []string{"name", "id", "absent"}, picked.Keys())
	assert.Nil(t, picked.Value("absent"))
	assert.Equal(t, 5, picked.Value("id"))
}

func TestRow_NilSafe(t *testing.T) {
	var row *Row
	assert.Equal(t, 0, row.Len())
	assert.Nil(t, row.Keys())
	assert.Empty(t, row.Map())
}
