package store

import (
	"fmt"
	"sort"
	"strings"
)

// Query describes a read projection over one materialized table: an
// explicit column list and an exact-match conjunction over columns. This
// is deliberately not a query language - richer reads belong to the
// server-side reporting path, not the local store.
//
// A nil map value compiles to IS NULL, which is how every default
// projection expresses "not soft-deleted".
type Query struct {
	Table   string
	Columns []string
	Where   map[string]any
	Label   string
}

// compile converts the descriptor to parameterized SQL. Filter keys are
// sorted and values always bound via placeholders. Every query orders by
// id with COLLATE BINARY so results are deterministic across replays.
func (q Query) compile() (string, []any, error) {
	if q.Table == "" || len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("query %q: table and columns are required", q.Label)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	var params []any
	if len(q.Where) > 0 {
		cols := make([]string, 0, len(q.Where))
		for col := range q.Where {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		parts := make([]string, 0, len(cols))
		for _, col := range cols {
			v := q.Where[col]
			if v == nil {
				parts = append(parts, col+" IS NULL")
				continue
			}
			parts = append(parts, col+" = ?")
			params = append(params, v)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(parts, " AND "))
	}

	b.WriteString(" ORDER BY id COLLATE BINARY ASC")
	return b.String(), params, nil
}
