package composite

import (
	"context"
	"fmt"
	"strings"
)

// memorySource is an in-process Source over a fixed set of rows. Queries
// record every predicate they receive and filter the rows on Get.
type memorySource struct {
	table   string
	rows    []Record
	queries []*memoryQuery
	getErr  error
}

func newMemorySource(table string, rows ...map[string]any) *memorySource {
	s := &memorySource{table: table}
	for _, attrs := range rows {
		s.rows = append(s.rows, NewRow(table, attrs))
	}
	return s
}

func (s *memorySource) Table() string { return s.table }

func (s *memorySource) Query() Query {
	q := &memoryQuery{source: s}
	s.queries = append(s.queries, q)
	return q
}

// lastQuery returns the most recently started query.
func (s *memorySource) lastQuery() *memoryQuery {
	if len(s.queries) == 0 {
		return nil
	}
	return s.queries[len(s.queries)-1]
}

type memoryPredicate func(r Record) bool

type memoryQuery struct {
	source  *memorySource
	clauses []string
	filters []memoryPredicate
	selects []string
	inLists map[string][]any
	gets    int
}

func (q *memoryQuery) Where(column, operator string, value any) Query {
	q.clauses = append(q.clauses, fmt.Sprintf("%s %s %v", column, operator, value))
	col := plainColumn(column)
	q.filters = append(q.filters, func(r Record) bool {
		v := r.GetAttribute(col)
		if isNull(value) {
			return isNull(v)
		}
		return !isNull(v) && keyString(v) == keyString(value)
	})
	return q
}

func (q *memoryQuery) WhereIn(column string, values []any) Query {
	if q.inLists == nil {
		q.inLists = make(map[string][]any)
	}
	q.inLists[column] = values
	q.clauses = append(q.clauses, fmt.Sprintf("%s IN %v", column, values))

	if isNoMatch(values) {
		q.filters = append(q.filters, func(Record) bool { return false })
		return q
	}

	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[keyString(v)] = true
	}
	col := plainColumn(column)
	q.filters = append(q.filters, func(r Record) bool {
		v := r.GetAttribute(col)
		return !isNull(v) && set[keyString(v)]
	})
	return q
}

func (q *memoryQuery) WhereColumn(first, operator, second string) Query {
	q.clauses = append(q.clauses, first+" "+operator+" "+second)
	return q
}

func (q *memoryQuery) Select(expressions ...string) Query {
	q.selects = append(q.selects, expressions...)
	return q
}

func (q *memoryQuery) Get(ctx context.Context) ([]Record, error) {
	q.gets++
	if q.source.getErr != nil {
		return nil, q.source.getErr
	}

	var out []Record
	for _, row := range q.source.rows {
		keep := true
		for _, f := range q.filters {
			if !f(row) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

func (q *memoryQuery) First(ctx context.Context) (Record, error) {
	rows, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}
	return rows[0], nil
}

func (q *memoryQuery) String() string {
	return strings.Join(q.clauses, " AND ")
}

// rowsOf converts attribute maps into parent records.
func rowsOf(table string, attrs ...map[string]any) []Record {
	out := make([]Record, len(attrs))
	for i, a := range attrs {
		out[i] = NewRow(table, a)
	}
	return out
}
