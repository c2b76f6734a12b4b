package composite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var stringBuilderPool = sync.Pool{
	New: func() any { return new(strings.Builder) },
}

// GetStringBuilder returns a reset builder from the pool.
func GetStringBuilder() *strings.Builder {
	sb := stringBuilderPool.Get().(*strings.Builder)
	sb.Reset()
	return sb
}

// PutStringBuilder returns sb to the pool.
func PutStringBuilder(sb *strings.Builder) {
	stringBuilderPool.Put(sb)
}

// columnPattern accepts plain and table-qualified identifiers.
var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateColumnName rejects anything that is not a plain or qualified
// identifier.
func ValidateColumnName(column string) error {
	if !columnPattern.MatchString(column) {
		return fmt.Errorf("composite: invalid column name %q", column)
	}
	return nil
}

var allowedOperators = map[string]bool{
	"=": true, "!=": true, "<>": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "NOT LIKE": true,
}

func normalizeOperator(op string) (string, error) {
	op = strings.ToUpper(strings.TrimSpace(op))
	if !allowedOperators[op] {
		return "", fmt.Errorf("composite: unsupported operator %q", op)
	}
	return op, nil
}

// SQLQuery builds a SELECT over one table. Builder methods record the first
// invalid column or operator and Get reports it.
type SQLQuery struct {
	table    *Table
	columns  []string
	wheres   []string
	args     []any
	orderBys []string
	limit    int
	err      error
}

var _ Query = (*SQLQuery)(nil)

func (q *SQLQuery) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// Where adds "column operator ?". A nil value compared with "=" becomes
// IS NULL and with "!=" or "<>" becomes IS NOT NULL.
func (q *SQLQuery) Where(column, operator string, value any) Query {
	if err := ValidateColumnName(column); err != nil {
		q.fail(err)
		return q
	}
	op, err := normalizeOperator(operator)
	if err != nil {
		q.fail(err)
		return q
	}

	if isNull(value) {
		switch op {
		case "=":
			q.wheres = append(q.wheres, "AND "+column+" IS NULL")
			return q
		case "!=", "<>":
			q.wheres = append(q.wheres, "AND "+column+" IS NOT NULL")
			return q
		}
	}

	q.wheres = append(q.wheres, "AND "+column+" "+op+" ?")
	q.args = append(q.args, value)
	return q
}

// WhereIn adds "column IN (...)". An empty list or the NoMatch sentinel
// renders as 1=0.
func (q *SQLQuery) WhereIn(column string, values []any) Query {
	if err := ValidateColumnName(column); err != nil {
		q.fail(err)
		return q
	}
	if isNoMatch(values) {
		q.wheres = append(q.wheres, "AND 1=0")
		return q
	}

	sb := GetStringBuilder()
	sb.WriteString("AND ")
	sb.WriteString(column)
	sb.WriteString(" IN (")
	for i := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('?')
	}
	sb.WriteByte(')')
	q.wheres = append(q.wheres, sb.String())
	PutStringBuilder(sb)

	q.args = append(q.args, values...)
	return q
}

// WhereColumn compares two columns.
func (q *SQLQuery) WhereColumn(first, operator, second string) Query {
	for _, col := range []string{first, second} {
		if err := ValidateColumnName(col); err != nil {
			q.fail(err)
			return q
		}
	}
	op, err := normalizeOperator(operator)
	if err != nil {
		q.fail(err)
		return q
	}
	q.wheres = append(q.wheres, "AND "+first+" "+op+" "+second)
	return q
}

// Select replaces the default "*" projection. Expressions are written as
// given, so aggregates like count(*) are allowed.
func (q *SQLQuery) Select(expressions ...string) Query {
	q.columns = append(q.columns, expressions...)
	return q
}

// OrderBy adds an ORDER BY term. direction is ASC or DESC.
func (q *SQLQuery) OrderBy(column, direction string) *SQLQuery {
	if err := ValidateColumnName(column); err != nil {
		q.fail(err)
		return q
	}
	direction = strings.ToUpper(direction)
	if direction != "DESC" {
		direction = "ASC"
	}
	q.orderBys = append(q.orderBys, column+" "+direction)
	return q
}

// Limit caps the number of rows returned. Zero means no limit.
func (q *SQLQuery) Limit(n int) *SQLQuery {
	q.limit = n
	return q
}

// Err returns the first builder error, if any.
func (q *SQLQuery) Err() error {
	return q.err
}

// ToSQL returns the statement with "?" placeholders and its arguments.
func (q *SQLQuery) ToSQL() (string, []any) {
	sb := GetStringBuilder()
	defer PutStringBuilder(sb)

	sb.WriteString("SELECT ")
	if len(q.columns) > 0 {
		sb.WriteString(strings.Join(q.columns, ", "))
	} else {
		sb.WriteString("*")
	}

	sb.WriteString(" FROM ")
	sb.WriteString(q.table.Table())

	if len(q.wheres) > 0 {
		sb.WriteString(" WHERE 1=1")
		for _, w := range q.wheres {
			sb.WriteString(" ")
			sb.WriteString(w)
		}
	}

	if len(q.orderBys) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.orderBys, ", "))
	}

	if q.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.limit))
	}

	args := make([]any, len(q.args))
	copy(args, q.args)

	return sb.String(), args
}

// Print returns the statement as the driver will receive it.
func (q *SQLQuery) Print() (string, []any) {
	query, args := q.ToSQL()
	return q.table.dialect.Rebind(query), args
}

// Get executes the query and hydrates every row.
func (q *SQLQuery) Get(ctx context.Context) ([]Record, error) {
	query, args := q.ToSQL()
	if q.err != nil {
		return nil, WrapQueryError("BUILD", query, args, q.err)
	}

	db, err := q.table.reader()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, q.table.dialect.Rebind(query), args...)
	if err != nil {
		return nil, WrapQueryError("SELECT", query, args, err)
	}
	defer rows.Close()

	results, err := q.table.scanRows(rows, q.limit)
	if err != nil {
		return nil, WrapQueryError("SCAN", query, args, err)
	}

	q.table.logger().DebugContext(ctx, "query executed",
		"table", q.table.Table(),
		"sql", query,
		"args", len(args),
		"rows", len(results),
		"duration", time.Since(start),
	)

	return results, nil
}

// First returns the first row, or ErrRecordNotFound.
func (q *SQLQuery) First(ctx context.Context) (Record, error) {
	limited := *q
	limited.limit = 1

	results, err := limited.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrRecordNotFound
	}
	return results[0], nil
}
