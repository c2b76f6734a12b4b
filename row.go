package composite

import (
	"context"
	"maps"
)

// Row is a map-backed Record. SQLQuery hydrates result rows into Rows, and
// Rows remember where they came from so BelongsTo.Update can save them.
type Row struct {
	table      string
	source     *Table
	columns    []string
	attributes map[string]any
	originals  map[string]any
	relations  map[string]any
}

// NewRow builds a detached row for table with the given attributes.
// Detached rows cannot be saved.
func NewRow(table string, attributes map[string]any) *Row {
	r := &Row{
		table:      table,
		attributes: make(map[string]any, len(attributes)),
	}
	for _, col := range sortedKeys(attributes) {
		r.SetAttribute(col, attributes[col])
	}
	return r
}

// GetAttribute returns the value of column, or nil when unset.
func (r *Row) GetAttribute(column string) any {
	return r.attributes[column]
}

// SetAttribute sets column to value.
func (r *Row) SetAttribute(column string, value any) {
	if r.attributes == nil {
		r.attributes = make(map[string]any)
	}
	if _, ok := r.attributes[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.attributes[column] = value
}

// HasAttribute reports whether column has been set, even to nil.
func (r *Row) HasAttribute(column string) bool {
	_, ok := r.attributes[column]
	return ok
}

// SetRelation caches a loaded relation value under name.
func (r *Row) SetRelation(name string, value any) {
	if r.relations == nil {
		r.relations = make(map[string]any)
	}
	r.relations[name] = value
}

// Relation returns the cached relation value and whether it was loaded.
func (r *Row) Relation(name string) (any, bool) {
	value, ok := r.relations[name]
	return value, ok
}

// Related returns the single record cached under name, or nil.
func (r *Row) Related(name string) Record {
	value, _ := r.relations[name].(Record)
	return value
}

// RelatedMany returns the collection cached under name, or nil.
func (r *Row) RelatedMany(name string) []Record {
	value, _ := r.relations[name].([]Record)
	return value
}

// UnsetRelation forgets a cached relation.
func (r *Row) UnsetRelation(name string) {
	delete(r.relations, name)
}

// Table returns the table the row belongs to.
func (r *Row) Table() string {
	return r.table
}

// Columns returns the column names in the order they were first set.
func (r *Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Attributes returns a copy of the row's attributes.
func (r *Row) Attributes() map[string]any {
	return maps.Clone(r.attributes)
}

// Fill sets every attribute in attributes.
func (r *Row) Fill(attributes map[string]any) {
	for _, col := range sortedKeys(attributes) {
		r.SetAttribute(col, attributes[col])
	}
}

// Save writes the dirty attributes back through the table the row was
// loaded from.
func (r *Row) Save(ctx context.Context) error {
	if r.source == nil {
		return WrapRelationError("", r.table, ErrNotPersistable)
	}
	return r.source.Save(ctx, r)
}
