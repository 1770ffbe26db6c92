package workflow

import (
	"regexp"
	"strconv"
	"strings"

	jsonpool "github.com/ajitpratap0/nebula-snowflake/pkg/json"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	stringpool "github.com/ajitpratap0/nebula-snowflake/pkg/strings"
)

var expressionPattern = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// ResolveExpressions replaces {{ $json.path }} placeholders in text with
// values from the item's JSON. Paths use dot segments, quoted brackets
// (["name"]) and numeric indexes ([0]). Missing values become empty
// strings; objects and arrays are inserted as JSON. Placeholders that do
// not start with $json are left as written.
func ResolveExpressions(text string, item Item) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return expressionPattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := expressionPattern.FindStringSubmatch(match)[1]
		path, ok := parsePath(expr)
		if !ok {
			return match
		}
		value, found := lookup(item.JSON, path)
		if !found {
			return ""
		}
		return formatValue(value)
	})
}

type segment struct {
	key   string
	index int
	isIdx bool
}

// parsePath splits "$json.a["b"][0]" into segments
func parsePath(expr string) ([]segment, bool) {
	const root = "$json"
	if !strings.HasPrefix(expr, root) {
		return nil, false
	}
	rest := expr[len(root):]

	var path []segment
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end == -1 {
				end = len(rest)
			}
			if end == 0 {
				return nil, false
			}
			path = append(path, segment{key: strings.TrimSpace(rest[:end])})
			rest = rest[end:]

		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, false
			}
			inner := strings.TrimSpace(rest[1:end])
			rest = rest[end+1:]

			if unquoted, err := strconv.Unquote(inner); err == nil {
				path = append(path, segment{key: unquoted})
				continue
			}
			if len(inner) >= 2 && inner[0] == '\'' && inner[len(inner)-1] == '\'' {
				path = append(path, segment{key: inner[1 : len(inner)-1]})
				continue
			}
			idx, err := strconv.Atoi(inner)
			if err != nil {
				return nil, false
			}
			path = append(path, segment{index: idx, isIdx: true})

		default:
			return nil, false
		}
	}
	return path, true
}

func lookup(row *models.Row, path []segment) (interface{}, bool) {
	if len(path) == 0 {
		return row, row != nil
	}
	if path[0].isIdx {
		return nil, false
	}

	current, ok := row.Get(path[0].key)
	if !ok {
		return nil, false
	}

	for _, seg := range path[1:] {
		switch v := current.(type) {
		case map[string]interface{}:
			if seg.isIdx {
				return nil, false
			}
			if current, ok = v[seg.key]; !ok {
				return nil, false
			}
		case *models.Row:
			if seg.isIdx {
				return nil, false
			}
			if current, ok = v.Get(seg.key); !ok {
				return nil, false
			}
		case []interface{}:
			if !seg.isIdx || seg.index < 0 || seg.index >= len(v) {
				return nil, false
			}
			current = v[seg.index]
		default:
			return nil, false
		}
	}
	return current, true
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case map[string]interface{}, []interface{}, *models.Row:
		data, err := jsonpool.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return stringpool.ValueToString(v)
	}
}
