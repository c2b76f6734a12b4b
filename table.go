package composite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
)

var errNoDatabase = errors.New("composite: table has no database configured")

// Table is a Source backed by database/sql. Reads go to a replica when a
// resolver is configured, writes always go to the primary.
type Table struct {
	name       string
	primaryKey Columns
	db         *sql.DB
	tx         *sql.Tx
	resolver   *DBResolver
	dialect    *Dialect
	log        *slog.Logger
}

var _ Source = (*Table)(nil)

// TableOption configures a Table.
type TableOption func(*Table)

// WithDB sets the connection used for reads and writes.
func WithDB(db *sql.DB) TableOption {
	return func(t *Table) {
		t.db = db
	}
}

// WithTx runs every statement of the table inside tx.
func WithTx(tx *sql.Tx) TableOption {
	return func(t *Table) {
		t.tx = tx
	}
}

// WithResolver routes reads to replicas and writes to the primary.
// It takes precedence over WithDB.
func WithResolver(r *DBResolver) TableOption {
	return func(t *Table) {
		t.resolver = r
	}
}

// WithDialect sets the SQL dialect. Default is SQLite3.
func WithDialect(d *Dialect) TableOption {
	return func(t *Table) {
		if d != nil {
			t.dialect = d
		}
	}
}

// WithPrimaryKey sets the columns Save matches rows by.
func WithPrimaryKey(columns ...string) TableOption {
	return func(t *Table) {
		t.primaryKey = Cols(columns...)
	}
}

// WithLogger sets the logger for statements run through the table.
// Without it the package logger is used.
func WithLogger(logger *slog.Logger) TableOption {
	return func(t *Table) {
		t.log = logger
	}
}

// NewTable returns a table named name. The primary key defaults to "id".
func NewTable(name string, opts ...TableOption) *Table {
	t := &Table{
		name:       name,
		primaryKey: Cols("id"),
		dialect:    Dialects.SQLite3,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Table returns the table name.
func (t *Table) Table() string {
	return t.name
}

// Query starts a new query over the table.
func (t *Table) Query() Query {
	return t.NewQuery()
}

// NewQuery starts a new query with access to the SQL-only builder methods.
func (t *Table) NewQuery() *SQLQuery {
	return &SQLQuery{table: t}
}

// PrimaryKey returns the primary key columns.
func (t *Table) PrimaryKey() Columns {
	return t.primaryKey
}

// Dialect returns the SQL dialect of the table.
func (t *Table) Dialect() *Dialect {
	return t.dialect
}

func (t *Table) logger() *slog.Logger {
	if t.log != nil {
		return t.log
	}
	return Logger()
}

func (t *Table) reader() (queryer, error) {
	if t.tx != nil {
		return t.tx, nil
	}
	if t.resolver != nil {
		if db := t.resolver.Replica(); db != nil {
			return db, nil
		}
	}
	if t.db != nil {
		return t.db, nil
	}
	return nil, errNoDatabase
}

func (t *Table) writer() (queryer, error) {
	if t.tx != nil {
		return t.tx, nil
	}
	if t.resolver != nil {
		if db := t.resolver.Primary(); db != nil {
			return db, nil
		}
	}
	if t.db != nil {
		return t.db, nil
	}
	return nil, errNoDatabase
}

// scanRows hydrates rows into tracked Rows. Byte slices become strings so
// text keys compare equal across drivers.
func (t *Table) scanRows(rows *sql.Rows, limit int) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	initialCap := limit
	if initialCap <= 0 {
		initialCap = 64
	}
	results := make([]Record, 0, initialCap)

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := &Row{
			table:      t.name,
			source:     t,
			attributes: make(map[string]any, len(columns)),
		}
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row.SetAttribute(col, v)
		}
		row.trackOriginals()

		results = append(results, row)
	}

	return results, rows.Err()
}

// Save writes the dirty columns of row, matching on the primary key as it
// was loaded. A clean row is a no-op.
func (t *Table) Save(ctx context.Context, row *Row) error {
	if len(t.primaryKey) == 0 {
		return WrapRelationError("", t.name, ErrNoPrimaryKey)
	}

	dirty := row.Dirty()
	if len(dirty) == 0 {
		return nil
	}

	sets := make([]string, 0, len(dirty))
	args := make([]any, 0, len(dirty)+len(t.primaryKey))
	for _, col := range sortedKeys(dirty) {
		sets = append(sets, col+" = ?")
		args = append(args, dirty[col])
	}

	sb := GetStringBuilder()
	sb.WriteString("UPDATE ")
	sb.WriteString(t.name)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ", "))
	sb.WriteString(" WHERE ")
	for i, col := range t.primaryKey {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ?")

		pk := row.GetAttribute(col)
		if row.IsTracked() {
			if original, ok := row.originals[col]; ok {
				pk = original
			}
		}
		args = append(args, pk)
	}
	query := sb.String()
	PutStringBuilder(sb)

	db, err := t.writer()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, t.dialect.Rebind(query), args...); err != nil {
		return WrapQueryError("UPDATE", query, args, err)
	}

	t.logger().DebugContext(ctx, "row saved",
		"table", t.name,
		"columns", len(sets),
	)

	row.SyncOriginals()
	return nil
}
