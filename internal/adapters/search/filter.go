package search

import (
	"fmt"
	"strings"
)

// escapeFilterValue escapes a value for use inside a double-quoted
// Meilisearch filter literal.
func escapeFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

// translateExpression turns a "field:value AND field:value" expression into a
// Meilisearch filter. Terms without a field become the free-text query.
func translateExpression(expr string) (query, filter string) {
	var (
		text    []string
		filters []string
	)
	for _, term := range strings.Split(expr, " AND ") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		field, value, ok := strings.Cut(term, ":")
		if !ok || field == "" || strings.ContainsAny(field, " \t") {
			text = append(text, term)
			continue
		}
		filters = append(filters, fmt.Sprintf(`%s = "%s"`, field, escapeFilterValue(value)))
	}
	return strings.Join(text, " "), strings.Join(filters, " AND ")
}

// sortClause builds a Meilisearch sort clause.
func sortClause(field, order string) []string {
	if field == "" {
		return nil
	}
	if order == "" {
		order = "asc"
	}
	return []string{field + ":" + order}
}
