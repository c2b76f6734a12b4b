package composite

import (
	"context"
	"time"
)

// RelationFunc builds a relation for parent. Hosts declare one per named
// relationship.
type RelationFunc func(parent Record) (Relation, error)

// EagerLoad resolves rel for every parent with a single related query and
// attaches the results under name. rel must be freshly built; its query is
// constrained here.
func EagerLoad(ctx context.Context, rel Relation, parents []Record, name string) error {
	if len(parents) == 0 {
		return nil
	}

	start := time.Now()

	if err := rel.AddEagerConstraints(parents); err != nil {
		return err
	}

	results, err := rel.Query().Get(ctx)
	if err != nil {
		return WrapRelationError(name, parents[0].Table(), err)
	}

	rel.InitRelation(parents, name)
	rel.Match(parents, results, name)

	Logger().DebugContext(ctx, "eager loaded composite relation",
		"relation", name,
		"type", rel.RelationType(),
		"parents", len(parents),
		"results", len(results),
		"duration", time.Since(start),
	)

	return nil
}

// LoadSlice builds the relation from the first parent and eager loads it
// onto every parent.
func LoadSlice(ctx context.Context, parents []Record, name string, build RelationFunc) error {
	if len(parents) == 0 {
		return nil
	}

	rel, err := build(parents[0])
	if err != nil {
		return err
	}

	return EagerLoad(ctx, rel, parents, name)
}

// LazyLoad resolves rel for its own parent and caches the value on parent
// under name. A value already cached under name is returned as is.
func LazyLoad(ctx context.Context, parent Record, name string, rel Relation) (any, error) {
	if cached, ok := relationOf(parent, name); ok {
		return cached, nil
	}

	value, err := rel.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	parent.SetRelation(name, value)
	return value, nil
}
