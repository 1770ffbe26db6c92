package node

import (
	"math"

	jsonpool "github.com/ajitpratap0/nebula-snowflake/pkg/json"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	"github.com/ajitpratap0/nebula-snowflake/pkg/pool"
	stringpool "github.com/ajitpratap0/nebula-snowflake/pkg/strings"
)

// Identifiers are written as given. Table and column names come from the
// node's own parameters and are neither quoted nor validated.

// buildInsertSQL returns INSERT INTO table(a,b) VALUES (?,?),(?,?) with one
// placeholder group per row
func buildInsertSQL(table string, columns []string, rows int) string {
	sb := stringpool.NewSQLBuilder(len(table) + rows*(2*len(columns)+3) + 32)
	defer sb.Close()

	sb.WriteQuery("INSERT INTO ").
		WriteQuery(table).
		WriteQuery("(").
		WriteList(columns, ",").
		WriteQuery(") VALUES ")
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteQuery(",")
		}
		sb.WritePlaceholders(len(columns))
	}
	return sb.String()
}

// buildUpdateSQL returns UPDATE table SET a = ?,b = ? WHERE key = ?;
func buildUpdateSQL(table string, columns []string, updateKey string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
	}

	sb := stringpool.NewSQLBuilder(len(table) + len(columns)*16 + 32)
	defer sb.Close()

	sb.WriteQuery("UPDATE ").
		WriteQuery(table).
		WriteQuery(" SET ").
		WriteList(sets, ",").
		WriteQuery(" WHERE ").
		WriteQuery(updateKey).
		WriteQuery(" = ?;")
	return sb.String()
}

// withUpdateKey prepends the key to the column list unless it is already there
func withUpdateKey(columns []string, updateKey string) []string {
	for _, c := range columns {
		if c == updateKey {
			return columns
		}
	}
	return append([]string{updateKey}, columns...)
}

// appendBinds appends the row's values for columns, in column order
func appendBinds(binds *pool.Binds, row *models.Row, columns []string) {
	for _, c := range columns {
		binds.Append(bindValue(row.Value(c)))
	}
}

// bindValue adapts item values to driver binds. Integral JSON numbers bind
// as integers; objects and arrays bind as their JSON text.
func bindValue(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) <= 1<<53 {
			return int64(val)
		}
		return val
	case map[string]interface{}, []interface{}, *models.Row:
		data, err := jsonpool.Marshal(val)
		if err != nil {
			return stringpool.ValueToString(val)
		}
		return string(data)
	default:
		return v
	}
}
