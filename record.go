package composite

import "context"

// Record is the attribute accessor every relation reads parents and related
// records through.
type Record interface {
	// GetAttribute returns the value of a column, or nil when unset.
	GetAttribute(name string) any
	SetAttribute(name string, value any)
	// SetRelation caches a loaded relation value. A nil value marks the
	// relation as loaded with no related record.
	SetRelation(name string, value any)
	// Table identifies the collection the record belongs to.
	Table() string
}

// RelationReader is implemented by records that expose cached relations.
// The bool reports whether the relation has been set at all.
type RelationReader interface {
	Relation(name string) (any, bool)
}

// Persister is implemented by records that can merge attributes and write
// themselves back.
type Persister interface {
	Fill(attributes map[string]any)
	Save(ctx context.Context) error
}

// Source is a related collection: a table name plus a way to start a query
// over it.
type Source interface {
	Table() string
	Query() Query
}

// Query is the filtered-query collaborator relations add predicates to.
// Implementations must treat WhereIn with the single value NoMatch as a
// predicate that matches no rows.
type Query interface {
	Where(column, operator string, value any) Query
	WhereIn(column string, values []any) Query
	WhereColumn(first, operator, second string) Query
	Select(expressions ...string) Query

	// Get executes the query and returns every row in fetch order.
	Get(ctx context.Context) ([]Record, error)
	// First returns the first row, or ErrRecordNotFound.
	First(ctx context.Context) (Record, error)
}

// noMatch is the type of the NoMatch sentinel.
type noMatch struct{}

func (noMatch) String() string { return "<no match>" }

// NoMatch is substituted for an empty eager key set. No real key equals it.
var NoMatch any = noMatch{}

// isNoMatch reports whether values is exactly the NoMatch sentinel set.
func isNoMatch(values []any) bool {
	if len(values) == 0 {
		return true
	}
	if len(values) != 1 {
		return false
	}
	_, ok := values[0].(noMatch)
	return ok
}

// relationOf returns a cached relation value when the record exposes one.
func relationOf(r Record, name string) (any, bool) {
	if rr, ok := r.(RelationReader); ok {
		return rr.Relation(name)
	}
	return nil, false
}
