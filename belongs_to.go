package composite

import "context"

// BelongsTo resolves the single related record whose otherKey columns equal
// the parent's foreignKey columns.
type BelongsTo struct {
	relation

	foreignKey Columns // on the parent
	otherKey   Columns // on the related table
}

// AddConstraints limits the related query to the record the parent points at.
func (r *BelongsTo) AddConstraints() error {
	return r.constrain(func() error {
		qualified := Columns(r.otherKey.Qualify(r.related.Table()))
		return ApplyDirect(r.query, r.parent, r.foreignKey, qualified)
	})
}

// AddEagerConstraints limits the related query to the records any of the
// parents point at.
func (r *BelongsTo) AddEagerConstraints(parents []Record) error {
	return r.constrain(func() error {
		qualified := Columns(r.otherKey.Qualify(r.related.Table()))
		return ApplyEager(r.query, parents, r.foreignKey, qualified)
	})
}

// InitRelation marks every parent as having no related record.
func (r *BelongsTo) InitRelation(parents []Record, name string) []Record {
	return InitOne(parents, name)
}

// Match keys results by their own key columns and looks each parent up by
// the foreign key values it stores.
func (r *BelongsTo) Match(parents []Record, results []Record, name string) []Record {
	dict := BuildDictionary(results, r.otherKey)
	return MatchOne(parents, dict, r.foreignKey, name)
}

// Result returns the related record, or nil when the parent points at
// nothing.
func (r *BelongsTo) Result(ctx context.Context) (Record, error) {
	return r.first(ctx, r.AddConstraints)
}

// Fetch implements Relation.
func (r *BelongsTo) Fetch(ctx context.Context) (any, error) {
	record, err := r.Result(ctx)
	if err != nil || record == nil {
		return nil, err
	}
	return record, nil
}

// ExistenceQuery constrains q to count related rows matching the outer
// parent table.
func (r *BelongsTo) ExistenceQuery(q Query) (Query, error) {
	if err := ApplyExistence(q, r.parent.Table(), r.foreignKey, r.related.Table(), r.otherKey); err != nil {
		return nil, r.configError(err)
	}
	return q, nil
}

// Associate points the parent at related and caches it under the relation
// name. Nothing is persisted.
func (r *BelongsTo) Associate(related Record) Record {
	if related == nil {
		return r.Dissociate()
	}

	for i, foreign := range r.foreignKey {
		r.parent.SetAttribute(plainColumn(foreign), related.GetAttribute(plainColumn(r.otherKey[i])))
	}
	r.parent.SetRelation(r.name, related)

	return r.parent
}

// Dissociate clears the parent's foreign key columns and cached relation.
func (r *BelongsTo) Dissociate() Record {
	for _, foreign := range r.foreignKey {
		r.parent.SetAttribute(plainColumn(foreign), nil)
	}
	r.parent.SetRelation(r.name, nil)

	return r.parent
}

// Update merges attributes into the associated record and saves it.
// It fails with ErrRecordNotFound when nothing is associated.
func (r *BelongsTo) Update(ctx context.Context, attributes map[string]any) error {
	record, err := r.Result(ctx)
	if err != nil {
		return err
	}
	if record == nil {
		return r.relationError(ErrRecordNotFound)
	}

	persister, ok := record.(Persister)
	if !ok {
		return r.relationError(ErrNotPersistable)
	}

	persister.Fill(attributes)
	if err := persister.Save(ctx); err != nil {
		return r.relationError(err)
	}

	return nil
}

// Name is the relation name the related record is cached under.
func (r *BelongsTo) Name() string { return r.name }

// ForeignKey returns the parent's key columns joined with the delimiter.
func (r *BelongsTo) ForeignKey() string { return r.foreignKey.String() }

// ForeignKeys returns the parent's key columns.
func (r *BelongsTo) ForeignKeys() Columns { return r.foreignKey }

// QualifiedForeignKeys returns the parent's key columns prefixed with the
// parent table.
func (r *BelongsTo) QualifiedForeignKeys() []string {
	return r.foreignKey.Qualify(r.parent.Table())
}

// OtherKey returns the related key columns joined with the delimiter.
func (r *BelongsTo) OtherKey() string { return r.otherKey.String() }

// OtherKeys returns the related key columns.
func (r *BelongsTo) OtherKeys() Columns { return r.otherKey }

// QualifiedOtherKeys returns the related key columns prefixed with the
// related table.
func (r *BelongsTo) QualifiedOtherKeys() []string {
	return r.otherKey.Qualify(r.related.Table())
}
