package composite

import "context"

// hasOneOrMany is the shared half of HasOne and HasMany: the related table
// holds foreignKey columns that reference the parent's localKey columns.
type hasOneOrMany struct {
	relation

	foreignKey Columns // on the related table
	localKey   Columns // on the parent
}

func newHasOneOrMany(typ RelationType, parent Record, related Source, foreignCols, localCols Columns) (hasOneOrMany, error) {
	if err := validateRelation("", foreignCols, localCols); err != nil {
		return hasOneOrMany{}, err
	}

	base, err := newRelation(typ, "", parent, related)
	if err != nil {
		return hasOneOrMany{}, err
	}

	return hasOneOrMany{
		relation:   base,
		foreignKey: foreignCols,
		localKey:   localCols,
	}, nil
}

// AddConstraints limits the related query to the parent's children.
func (r *hasOneOrMany) AddConstraints() error {
	return r.constrain(func() error {
		return ApplyDirect(r.query, r.parent, r.localKey, r.foreignKey)
	})
}

// AddEagerConstraints limits the related query to the children of any of
// the parents.
func (r *hasOneOrMany) AddEagerConstraints(parents []Record) error {
	return r.constrain(func() error {
		return ApplyEager(r.query, parents, r.localKey, r.foreignKey)
	})
}

// ExistenceQuery constrains q to count related rows matching the outer
// parent table.
func (r *hasOneOrMany) ExistenceQuery(q Query) (Query, error) {
	if err := ApplyExistence(q, r.parent.Table(), r.localKey, r.related.Table(), r.foreignKey.Plain()); err != nil {
		return nil, r.configError(err)
	}
	return q, nil
}

func (r *hasOneOrMany) buildDictionary(results []Record) *Dictionary {
	return BuildDictionary(results, r.foreignKey.Plain())
}

// ForeignKeys returns the related table's key columns as declared.
func (r *hasOneOrMany) ForeignKeys() Columns { return r.foreignKey }

// PlainForeignKeys returns the related key columns without table prefixes.
func (r *hasOneOrMany) PlainForeignKeys() Columns { return r.foreignKey.Plain() }

// LocalKeys returns the parent's key columns.
func (r *hasOneOrMany) LocalKeys() Columns { return r.localKey }

// QualifiedParentKeys returns the parent's key columns prefixed with the
// parent table.
func (r *hasOneOrMany) QualifiedParentKeys() []string {
	return r.localKey.Qualify(r.parent.Table())
}

// Writes through has-one and has-many relations are not supported. They
// fail instead of dropping the write.

// Save is not implemented for composite has-one/has-many relations.
func (r *hasOneOrMany) Save(ctx context.Context, record Record) error {
	return r.notImplemented()
}

// SaveMany is not implemented for composite has-one/has-many relations.
func (r *hasOneOrMany) SaveMany(ctx context.Context, records []Record) error {
	return r.notImplemented()
}

// Create is not implemented for composite has-one/has-many relations.
func (r *hasOneOrMany) Create(ctx context.Context, attributes map[string]any) (Record, error) {
	return nil, r.notImplemented()
}

// CreateMany is not implemented for composite has-one/has-many relations.
func (r *hasOneOrMany) CreateMany(ctx context.Context, records []map[string]any) ([]Record, error) {
	return nil, r.notImplemented()
}

// Update is not implemented for composite has-one/has-many relations.
func (r *hasOneOrMany) Update(ctx context.Context, attributes map[string]any) error {
	return r.notImplemented()
}

func (r *hasOneOrMany) notImplemented() error {
	return r.relationError(ErrNotImplemented)
}

// HasOne resolves a single child record.
type HasOne struct {
	hasOneOrMany
}

// InitRelation marks every parent as having no child.
func (r *HasOne) InitRelation(parents []Record, name string) []Record {
	return InitOne(parents, name)
}

// Match attaches the first fetched child of each parent.
func (r *HasOne) Match(parents []Record, results []Record, name string) []Record {
	return MatchOne(parents, r.buildDictionary(results), r.localKey, name)
}

// Result returns the child record, or nil when there is none.
func (r *HasOne) Result(ctx context.Context) (Record, error) {
	return r.first(ctx, r.AddConstraints)
}

// Fetch implements Relation.
func (r *HasOne) Fetch(ctx context.Context) (any, error) {
	record, err := r.Result(ctx)
	if err != nil || record == nil {
		return nil, err
	}
	return record, nil
}

// HasMany resolves an ordered collection of child records.
type HasMany struct {
	hasOneOrMany
}

// InitRelation gives every parent an empty collection.
func (r *HasMany) InitRelation(parents []Record, name string) []Record {
	return InitMany(parents, name)
}

// Match attaches every fetched child of each parent, in fetch order.
func (r *HasMany) Match(parents []Record, results []Record, name string) []Record {
	return MatchMany(parents, r.buildDictionary(results), r.localKey, name)
}

// Results returns the children of the parent; empty, never nil, when there
// are none.
func (r *HasMany) Results(ctx context.Context) ([]Record, error) {
	if !r.constrained {
		if err := r.AddConstraints(); err != nil {
			return nil, err
		}
	}

	records, err := r.query.Get(ctx)
	if err != nil {
		return nil, r.relationError(err)
	}
	if records == nil {
		records = []Record{}
	}

	return records, nil
}

// Fetch implements Relation.
func (r *HasMany) Fetch(ctx context.Context) (any, error) {
	records, err := r.Results(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
