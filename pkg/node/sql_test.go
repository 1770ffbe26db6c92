package node

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	"github.com/ajitpratap0/nebula-snowflake/pkg/pool"
)

func TestBuildInsertSQL(t *testing.T) {
	assert.Equal(t, "INSERT INTO t(a,b) VALUES (?,?)", buildInsertSQL("t", []string{"a", "b"}, 1))
	assert.Equal(t, "INSERT INTO db.s.t(a) VALUES (?),(?),(?)", buildInsertSQL("db.s.t", []string{"a"}, 3))
}

func TestBuildUpdateSQL(t *testing.T) {
	assert.Equal(t, "UPDATE t SET id = ?,name = ? WHERE id = ?;",
		buildUpdateSQL("t", []string{"id", "name"}, "id"))
}

func TestWithUpdateKey(t *testing.T) {
	assert.Equal(t, []string{"id", "name"}, withUpdateKey([]string{"name"}, "id"))
	assert.Equal(t, []string{"name", "id"}, withUpdateKey([]string{"name", "id"}, "id"))
	assert.Equal(t, []string{"id"}, withUpdateKey(nil, "id"))
}

func TestBindValue(t *testing.T) {
	row := models.NewRow(1)
	row.Set("k", "v")

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"integral float", float64(42), int64(42)},
		{"fractional float", 1.5, 1.5},
		{"huge float stays float", 1e300, 1e300},
		{"string", "x", "x"},
		{"nil", nil, nil},
		{"bool", true, true},
		{"object", map[string]interface{}{"a": float64(1)}, `{"a":1}`},
		{"array", []interface{}{"a", "b"}, `["a","b"]`},
		{"row", row, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bindValue(tt.in))
		})
	}
}

func TestAppendBinds(t *testing.T) {
	row := models.RowFromMap(map[string]interface{}{"b": "y", "a": float64(1)})
	binds := pool.GetBinds(4)
	defer pool.PutBinds(binds)

	binds.Append("first")
	appendBinds(binds, row, []string{"b", "missing", "a"})
	assert.Equal(t, []interface{}{"first", "y", nil, int64(1)}, binds.Values())
}
