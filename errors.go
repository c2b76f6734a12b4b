package composite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases
var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("composite: invalid relation configuration")

	// ErrAsymmetricalKey is returned when the local and foreign column lists
	// of a relation have different lengths.
	ErrAsymmetricalKey = errors.New("composite: asymmetrical foreign key and local key")

	// ErrEmptyKey is returned when a relation is declared without key columns.
	ErrEmptyKey = errors.New("composite: key descriptor has no columns")

	// ErrAlreadyConstrained is returned when constraints are applied twice
	// to the same relation instance.
	ErrAlreadyConstrained = errors.New("composite: relation constraints already applied")

	// ErrNilRecord is returned when a relation is built without a parent
	// record or related source.
	ErrNilRecord = errors.New("composite: nil record")

	// ErrMissingRelationName is returned when a belongs-to relation is built
	// without a relation name.
	ErrMissingRelationName = errors.New("composite: relation name is required")

	// ErrNotImplemented is returned by write methods of read-only relations.
	ErrNotImplemented = errors.New("composite: method not implemented")

	// ErrRecordNotFound is returned when a query returns no results
	ErrRecordNotFound = errors.New("composite: record not found")

	// ErrNotPersistable is returned when a record cannot be filled and saved.
	ErrNotPersistable = errors.New("composite: record does not support persistence")

	// ErrNoPrimaryKey is returned when a row is saved through a table with
	// no primary key columns configured.
	ErrNoPrimaryKey = errors.New("composite: table has no primary key")
)

// ConfigurationError reports a relation that was declared incorrectly.
// It is a programmer error and is never retried.
type ConfigurationError struct {
	Relation string  // Relation name, if known
	Local    Columns // Local (or foreign, for belongs-to) columns
	Foreign  Columns // Foreign (or other, for belongs-to) columns
	Err      error   // The underlying sentinel
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	if e.Relation != "" {
		sb.WriteString(" (relation '")
		sb.WriteString(e.Relation)
		sb.WriteString("')")
	}
	if len(e.Local) > 0 || len(e.Foreign) > 0 {
		fmt.Fprintf(&sb, ": local=%v foreign=%v", []string(e.Local), []string(e.Foreign))
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConfiguration) hold for any configuration error.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// QueryError wraps database errors with query context for better debugging
type QueryError struct {
	Query     string // The SQL query that failed
	Args      []any  // The query arguments
	Operation string // Operation type: SELECT, UPDATE, SCAN
	Err       error  // The underlying error
}

func (e *QueryError) Error() string {
	argsStr := formatArgs(e.Args)
	return fmt.Sprintf("composite: %s failed: %v\nQuery: %s\nArgs: %s",
		e.Operation, e.Err, e.Query, argsStr)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// RelationError wraps relation loading failures with context
type RelationError struct {
	Relation string // Name of the relation
	Table    string // Table of the parent record
	Err      error  // The underlying error
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("composite: relation '%s' error on table %s: %v",
		e.Relation, e.Table, e.Err)
}

func (e *RelationError) Unwrap() error {
	return e.Err
}

// WrapQueryError wraps a database error with query context
func WrapQueryError(operation, query string, args []any, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}

	return &QueryError{
		Query:     query,
		Args:      args,
		Operation: operation,
		Err:       err,
	}
}

// WrapRelationError wraps a relation error with context
func WrapRelationError(relation, table string, err error) error {
	if err == nil {
		return nil
	}
	return &RelationError{
		Relation: relation,
		Table:    table,
		Err:      err,
	}
}

// IsNotFound checks if the error is ErrRecordNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows)
}

// IsConfigurationError checks if the error comes from a misdeclared relation.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsNotImplemented checks if the error is ErrNotImplemented
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// formatArgs formats query arguments for error messages
func formatArgs(args []any) string {
	if len(args) == 0 {
		return "[]"
	}

	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%v", arg)
	}

	// Limit output length
	result := "[" + strings.Join(parts, ", ") + "]"
	if len(result) > 200 {
		return result[:197] + "...]"
	}
	return result
}
