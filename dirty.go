package composite

import (
	"maps"
	"reflect"
	"slices"
)

// trackOriginals stores the current attribute values as originals.
// Called when a row is hydrated from the database and after a save.
func (r *Row) trackOriginals() {
	r.originals = maps.Clone(r.attributes)
	if r.originals == nil {
		r.originals = make(map[string]any)
	}
}

// IsTracked returns true if the row has original values stored.
func (r *Row) IsTracked() bool {
	return r.originals != nil
}

// GetOriginal returns the value of column as it was loaded.
// Returns nil if the row is not tracked or the column didn't exist.
func (r *Row) GetOriginal(column string) any {
	return r.originals[column]
}

// IsDirty checks if column has changed from its original value.
// Untracked rows are treated as entirely dirty.
func (r *Row) IsDirty(column string) bool {
	if !r.IsTracked() {
		return true
	}

	original, exists := r.originals[column]
	if !exists {
		_, set := r.attributes[column]
		return set
	}

	return !reflect.DeepEqual(original, r.attributes[column])
}

// IsClean checks if column has NOT changed from its original value.
func (r *Row) IsClean(column string) bool {
	return !r.IsDirty(column)
}

// Dirty returns every changed column with its current value.
func (r *Row) Dirty() map[string]any {
	dirty := make(map[string]any)
	for _, col := range r.columns {
		if r.IsDirty(col) {
			dirty[col] = r.attributes[col]
		}
	}
	return dirty
}

// SyncOriginals marks the row clean. Call after a successful save.
func (r *Row) SyncOriginals() {
	r.trackOriginals()
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
