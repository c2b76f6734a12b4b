package composite

// ApplyDirect constrains q to the related rows of a single parent:
// foreignCols[i] = parent[localCols[i]] for every column pair. A null parent
// value gets the NoMatch predicate, since NULL never equals a key.
func ApplyDirect(q Query, parent Record, localCols, foreignCols Columns) error {
	if err := ValidateSymmetry(localCols, foreignCols); err != nil {
		return err
	}

	for i, local := range localCols {
		value := parent.GetAttribute(plainColumn(local))
		if isNull(value) {
			q.WhereIn(foreignCols[i], []any{NoMatch})
			continue
		}
		q.Where(foreignCols[i], "=", value)
	}

	return nil
}

// ApplyEager constrains q to the related rows of a batch of parents with one
// IN predicate per column. A column with no non-null parent value is given
// the NoMatch sentinel so the query still runs and returns nothing.
//
// Independent IN lists over-fetch combinations no parent asked for; the
// dictionary match discards them.
func ApplyEager(q Query, parents []Record, localCols, foreignCols Columns) error {
	if err := ValidateSymmetry(localCols, foreignCols); err != nil {
		return err
	}

	for i, local := range localCols {
		q.WhereIn(foreignCols[i], EagerKeys(parents, local))
	}

	return nil
}

// EagerKeys gathers the distinct non-null values of column across parents in
// first-seen order. It returns []any{NoMatch} when there are none.
func EagerKeys(parents []Record, column string) []any {
	column = plainColumn(column)
	seen := make(map[string]struct{}, len(parents))
	keys := make([]any, 0, len(parents))

	for _, parent := range parents {
		value := parent.GetAttribute(column)
		if isNull(value) {
			continue
		}
		token := keyString(value)
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keys = append(keys, value)
	}

	if len(keys) == 0 {
		return []any{NoMatch}
	}

	return keys
}

// ApplyExistence turns q into a correlated count query over the related
// table: SELECT count(*) ... WHERE parent.p[i] = related.r[i].
func ApplyExistence(q Query, parentTable string, parentCols Columns, relatedTable string, relatedCols Columns) error {
	if err := ValidateSymmetry(parentCols, relatedCols); err != nil {
		return err
	}

	q.Select("count(*)")

	qualifiedParent := parentCols.Qualify(parentTable)
	qualifiedRelated := relatedCols.Qualify(relatedTable)
	for i := range qualifiedParent {
		q.WhereColumn(qualifiedParent[i], "=", qualifiedRelated[i])
	}

	return nil
}
