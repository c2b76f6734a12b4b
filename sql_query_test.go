package composite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTable(t *testing.T, opts ...TableOption) (*Table, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts = append([]TableOption{
		WithDB(db),
		WithPrimaryKey("region", "order_no"),
		WithLogger(newTestLogger(t)),
	}, opts...)

	return NewTable("orders", opts...), mock
}

func TestSQLQuery_ToSQL(t *testing.T) {
	table := NewTable("orders")

	tests := []struct {
		name     string
		build    func(q *SQLQuery)
		expected string
		args     []any
	}{
		{
			name:     "bare",
			build:    func(q *SQLQuery) {},
			expected: "SELECT * FROM orders",
		},
		{
			name: "where and in",
			build: func(q *SQLQuery) {
				q.Where("region", "=", "EU").WhereIn("order_no", []any{1, 2})
			},
			expected: "SELECT * FROM orders WHERE 1=1 AND region = ? AND order_no IN (?, ?)",
			args:     []any{"EU", 1, 2},
		},
		{
			name: "no match",
			build: func(q *SQLQuery) {
				q.WhereIn("orders.region", []any{NoMatch})
			},
			expected: "SELECT * FROM orders WHERE 1=1 AND 1=0",
		},
		{
			name: "null equality",
			build: func(q *SQLQuery) {
				q.Where("shipped_at", "=", nil).Where("region", "<>", nil)
			},
			expected: "SELECT * FROM orders WHERE 1=1 AND shipped_at IS NULL AND region IS NOT NULL",
		},
		{
			name: "existence",
			build: func(q *SQLQuery) {
				q.Select("count(*)").WhereColumn("order_lines.region", "=", "orders.region")
			},
			expected: "SELECT count(*) FROM orders WHERE 1=1 AND order_lines.region = orders.region",
		},
		{
			name: "order and limit",
			build: func(q *SQLQuery) {
				q.Where("region", ">=", "A")
				q.OrderBy("order_no", "desc").Limit(5)
			},
			expected: "SELECT * FROM orders WHERE 1=1 AND region >= ? ORDER BY order_no DESC LIMIT 5",
			args:     []any{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := table.NewQuery()
			tt.build(q)

			query, args := q.ToSQL()
			assert.Equal(t, tt.expected, query)
			if tt.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.args, args)
			}
			assert.NoError(t, q.Err())
		})
	}
}

func TestSQLQuery_InvalidInput(t *testing.T) {
	table, mock := newMockTable(t)

	q := table.NewQuery()
	q.Where("region; DROP TABLE orders", "=", "EU")
	q.Where("region", "LIKEISH", "EU")

	_, err := q.Get(context.Background())
	require.Error(t, err)

	var queryErr *QueryError
	require.True(t, errors.As(err, &queryErr))
	assert.Equal(t, "BUILD", queryErr.Operation)
	assert.Contains(t, err.Error(), "invalid column name")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		dialect  *Dialect
		input    string
		expected string
	}{
		{Dialects.PostgreSQL, "a = ? AND b IN (?, ?)", "a = $1 AND b IN ($2, $3)"},
		{Dialects.PostgreSQL, "a = '?' AND b = ?", "a = '?' AND b = $1"},
		{Dialects.MySQL, "a = ?", "a = ?"},
		{Dialects.SQLite3, "a = ?", "a = ?"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.dialect.Rebind(tt.input), tt.dialect.Name)
	}
}

func TestDialectFor(t *testing.T) {
	assert.Same(t, Dialects.PostgreSQL, DialectFor("PostgreSQL"))
	assert.Same(t, Dialects.PostgreSQL, DialectFor("pgx"))
	assert.Same(t, Dialects.MySQL, DialectFor("mysql"))
	assert.Same(t, Dialects.SQLite3, DialectFor("sqlite"))
	assert.Nil(t, DialectFor("oracle"))
}

func TestSQLQuery_Get(t *testing.T) {
	table, mock := newMockTable(t, WithDialect(Dialects.PostgreSQL))

	rows := sqlmock.NewRows([]string{"region", "order_no", "customer"}).
		AddRow([]byte("EU"), int64(1), []byte("ada")).
		AddRow([]byte("EU"), int64(2), nil)
	mock.ExpectQuery("SELECT * FROM orders WHERE 1=1 AND region = $1 AND order_no IN ($2, $3)").
		WithArgs("EU", int64(1), int64(2)).
		WillReturnRows(rows)

	records, err := table.Query().
		Where("region", "=", "EU").
		WhereIn("order_no", []any{int64(1), int64(2)}).
		Get(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0].(*Row)
	assert.Equal(t, "orders", first.Table())
	assert.Equal(t, "EU", first.GetAttribute("region"), "bytes should hydrate as strings")
	assert.Equal(t, int64(1), first.GetAttribute("order_no"))
	assert.Equal(t, []string{"region", "order_no", "customer"}, first.Columns())
	assert.True(t, first.IsTracked())
	assert.Empty(t, first.Dirty())

	assert.Nil(t, records[1].GetAttribute("customer"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQuery_First(t *testing.T) {
	table, mock := newMockTable(t)

	mock.ExpectQuery("SELECT * FROM orders WHERE 1=1 AND region = ? LIMIT 1").
		WithArgs("JP").
		WillReturnRows(sqlmock.NewRows([]string{"region", "order_no"}))

	record, err := table.Query().Where("region", "=", "JP").First(context.Background())
	assert.Nil(t, record)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQuery_QueryError(t *testing.T) {
	table, mock := newMockTable(t)

	mock.ExpectQuery("SELECT * FROM orders").WillReturnError(assert.AnError)

	_, err := table.Query().Get(context.Background())
	require.Error(t, err)

	var queryErr *QueryError
	require.True(t, errors.As(err, &queryErr))
	assert.Equal(t, "SELECT", queryErr.Operation)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSQLQuery_NoDatabase(t *testing.T) {
	_, err := NewTable("orders").Query().Get(context.Background())
	assert.ErrorIs(t, err, errNoDatabase)
}

func TestTable_Save(t *testing.T) {
	table, mock := newMockTable(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT * FROM orders WHERE 1=1 AND region = ? LIMIT 1").
		WithArgs("EU").
		WillReturnRows(sqlmock.NewRows([]string{"region", "order_no", "status"}).
			AddRow("EU", int64(1), "open"))
	mock.ExpectExec("UPDATE orders SET status = ? WHERE region = ? AND order_no = ?").
		WithArgs("shipped", "EU", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := table.Query().Where("region", "=", "EU").First(ctx)
	require.NoError(t, err)

	row := record.(*Row)
	row.Fill(map[string]any{"status": "shipped"})
	assert.True(t, row.IsDirty("status"))
	assert.False(t, row.IsDirty("region"))

	require.NoError(t, row.Save(ctx))
	assert.Empty(t, row.Dirty(), "save should mark the row clean")

	// A clean row issues no statement.
	require.NoError(t, row.Save(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_SaveMatchesOriginalKey(t *testing.T) {
	table, mock := newMockTable(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT * FROM orders LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"region", "order_no"}).AddRow("EU", int64(1)))
	mock.ExpectExec("UPDATE orders SET region = ? WHERE region = ? AND order_no = ?").
		WithArgs("US", "EU", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := table.Query().First(ctx)
	require.NoError(t, err)

	record.SetAttribute("region", "US")
	require.NoError(t, record.(*Row).Save(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTable_SaveErrors(t *testing.T) {
	ctx := context.Background()

	detached := NewRow("orders", map[string]any{"region": "EU"})
	assert.ErrorIs(t, detached.Save(ctx), ErrNotPersistable)

	table := NewTable("orders", WithPrimaryKey())
	row := &Row{table: "orders", source: table}
	row.SetAttribute("status", "x")
	assert.ErrorIs(t, table.Save(ctx, row), ErrNoPrimaryKey)
}

func TestTable_ResolverRouting(t *testing.T) {
	primary, primaryMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer primary.Close()

	replica, replicaMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer replica.Close()

	resolver := NewDBResolver(WithPrimary(primary), WithReplicas(replica))
	table := NewTable("orders", WithResolver(resolver), WithPrimaryKey("region", "order_no"))

	replicaMock.ExpectQuery("SELECT * FROM orders LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"region", "order_no", "status"}).AddRow("EU", int64(1), "open"))
	primaryMock.ExpectExec("UPDATE orders SET status = ? WHERE region = ? AND order_no = ?").
		WithArgs("closed", "EU", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	record, err := table.Query().First(ctx)
	require.NoError(t, err)

	record.SetAttribute("status", "closed")
	require.NoError(t, record.(*Row).Save(ctx))

	assert.NoError(t, replicaMock.ExpectationsWereMet())
	assert.NoError(t, primaryMock.ExpectationsWereMet())
}

func TestBelongsTo_UpdateThroughTable(t *testing.T) {
	table, mock := newMockTable(t, WithDialect(Dialects.PostgreSQL))
	ctx := context.Background()

	mock.ExpectQuery("SELECT * FROM orders WHERE 1=1 AND orders.region = $1 AND orders.order_no = $2 LIMIT 1").
		WithArgs("EU", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"region", "order_no", "status"}).AddRow("EU", int64(7), "open"))
	mock.ExpectExec("UPDATE orders SET status = $1 WHERE region = $2 AND order_no = $3").
		WithArgs("shipped", "EU", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	line := NewRow("order_lines", map[string]any{"region": "EU", "order_no": int64(7)})
	rel, err := BelongsToComposite(line, table, orderKey, orderKey, "order")
	require.NoError(t, err)

	require.NoError(t, rel.Update(ctx, map[string]any{"status": "shipped"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
