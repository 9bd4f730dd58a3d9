package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get/Update/SoftDelete when no row matches.
var ErrNotFound = errors.New("store: record not found")

// ErrConflict is returned when a write would violate a uniqueness
// constraint (customer+address, scan-type name, port-list name).
var ErrConflict = errors.New("store: unique constraint violation")

// ListParams carries the common filter/sort/paginate inputs shared by
// every listing query. None of the example repos reach for a query
// builder library for this — each hand-writes its SQL text — so these
// repos do the same: a filter clause builder using strings.Builder,
// grounded on the corpus's own raw-SQL-with-positional-args idiom.
type ListParams struct {
	Filters  map[string]any
	OrderBy  string
	OrderDir string
	Limit    int
	Offset   int
}

// whereClause renders p.Filters into a deterministic "col = $n" clause
// plus matching args, starting placeholders at argOffset. An empty filter
// set returns an empty clause.
func whereClause(filters map[string]any, argOffset int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	keys := sortedKeys(filters)
	var b strings.Builder
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = $%d", k, argOffset+i+1)
		args = append(args, filters[k])
	}
	return b.String(), args
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// orderClause validates orderBy against allowed and renders "ORDER BY col DIR".
// An unrecognized column is rejected rather than interpolated, closing off
// SQL injection through a client-controlled sort field.
func orderClause(orderBy, orderDir string, allowed map[string]bool, fallback string) (string, error) {
	col := orderBy
	if col == "" {
		col = fallback
	}
	if !allowed[col] {
		return "", fmt.Errorf("invalid order_by column %q", orderBy)
	}
	dir := "ASC"
	if strings.EqualFold(orderDir, "desc") {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir), nil
}

// normalizeLimitOffset clamps limit to (0, 500], defaulting to 100, and
// floors offset at 0.
func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
