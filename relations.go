package composite

import (
	"context"
	"errors"
)

// RelationType defines the cardinality of a composite relation.
type RelationType string

const (
	// RelationHasOne represents a one-to-one relationship where the related
	// table holds the composite foreign key pointing back at the parent.
	RelationHasOne RelationType = "HasOne"

	// RelationHasMany represents a one-to-many relationship where the related
	// table holds the composite foreign key pointing back at the parent.
	RelationHasMany RelationType = "HasMany"

	// RelationBelongsTo represents the inverse direction: the parent stores
	// the composite foreign key of a single related record.
	RelationBelongsTo RelationType = "BelongsTo"
)

// Relation is the read contract shared by every composite relation.
//
// A relation is unconstrained when built. Exactly one of AddConstraints
// (single parent) or AddEagerConstraints (batch) moves it to constrained;
// a second call fails with ErrAlreadyConstrained.
type Relation interface {
	RelationType() RelationType
	Query() Query

	AddConstraints() error
	AddEagerConstraints(parents []Record) error

	// InitRelation presets the empty value for name on every parent.
	InitRelation(parents []Record, name string) []Record
	// Match attaches eagerly fetched results to their parents under name.
	Match(parents []Record, results []Record, name string) []Record

	// Fetch resolves the relation for the single parent it was built for:
	// a Record (possibly nil) for one-relations, []Record for many.
	Fetch(ctx context.Context) (any, error)

	// ExistenceQuery constrains q to a correlated count of related rows.
	ExistenceQuery(q Query) (Query, error)
}

// Mutator is the write capability. Only BelongsTo implements it; has-one
// and has-many are read-only.
type Mutator interface {
	Relation
	Associate(related Record) Record
	Dissociate() Record
	Update(ctx context.Context, attributes map[string]any) error
}

var (
	_ Mutator  = (*BelongsTo)(nil)
	_ Relation = (*HasOne)(nil)
	_ Relation = (*HasMany)(nil)
)

// relation holds the state every variant shares.
type relation struct {
	typ         RelationType
	name        string
	query       Query
	parent      Record
	related     Source
	constrained bool
}

func newRelation(typ RelationType, name string, parent Record, related Source) (relation, error) {
	if parent == nil || related == nil {
		return relation{}, &ConfigurationError{Relation: name, Err: ErrNilRecord}
	}

	return relation{
		typ:     typ,
		name:    name,
		query:   related.Query(),
		parent:  parent,
		related: related,
	}, nil
}

// RelationType returns the cardinality of the relation.
func (r *relation) RelationType() RelationType { return r.typ }

// Query returns the related query the relation constrains.
func (r *relation) Query() Query { return r.query }

// Parent returns the record the relation was built for.
func (r *relation) Parent() Record { return r.parent }

// Related returns the related source.
func (r *relation) Related() Source { return r.related }

// Constrained reports whether constraints have been applied.
func (r *relation) Constrained() bool { return r.constrained }

// constrain runs apply once and flips the relation to constrained.
func (r *relation) constrain(apply func() error) error {
	if r.constrained {
		return &ConfigurationError{Relation: r.name, Err: ErrAlreadyConstrained}
	}
	if err := apply(); err != nil {
		return r.configError(err)
	}
	r.constrained = true
	return nil
}

// configError stamps the relation name onto configuration errors.
func (r *relation) configError(err error) error {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Relation == "" {
		cfgErr.Relation = r.name
	}
	return err
}

func (r *relation) relationError(err error) error {
	name := r.name
	if name == "" {
		name = string(r.typ)
	}
	return WrapRelationError(name, r.parent.Table(), err)
}

// first runs the constrained query and maps "no rows" to a nil Record.
func (r *relation) first(ctx context.Context, addConstraints func() error) (Record, error) {
	if !r.constrained {
		if err := addConstraints(); err != nil {
			return nil, err
		}
	}

	record, err := r.query.First(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, r.relationError(err)
	}

	return record, nil
}

func validateRelation(name string, local, foreign Columns) error {
	if err := ValidateSymmetry(local, foreign); err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Relation = name
		}
		return err
	}
	return nil
}

// HasManyComposite defines a one-to-many relation from parent to related
// where related.foreignCols[i] references parent.localCols[i].
func HasManyComposite(parent Record, related Source, foreignCols, localCols Columns) (*HasMany, error) {
	base, err := newHasOneOrMany(RelationHasMany, parent, related, foreignCols, localCols)
	if err != nil {
		return nil, err
	}
	return &HasMany{hasOneOrMany: base}, nil
}

// HasOneComposite defines a one-to-one relation with the same key direction
// as HasManyComposite.
func HasOneComposite(parent Record, related Source, foreignCols, localCols Columns) (*HasOne, error) {
	base, err := newHasOneOrMany(RelationHasOne, parent, related, foreignCols, localCols)
	if err != nil {
		return nil, err
	}
	return &HasOne{hasOneOrMany: base}, nil
}

// BelongsToComposite defines the inverse relation: parent.foreignCols[i]
// references related.otherCols[i]. The relation name is required; it is the
// key the related record is cached under on the parent.
func BelongsToComposite(parent Record, related Source, foreignCols, otherCols Columns, relationName string) (*BelongsTo, error) {
	if relationName == "" {
		return nil, &ConfigurationError{Local: foreignCols, Foreign: otherCols, Err: ErrMissingRelationName}
	}
	if err := validateRelation(relationName, foreignCols, otherCols); err != nil {
		return nil, err
	}

	base, err := newRelation(RelationBelongsTo, relationName, parent, related)
	if err != nil {
		return nil, err
	}

	return &BelongsTo{
		relation:   base,
		foreignKey: foreignCols,
		otherKey:   otherCols,
	}, nil
}
