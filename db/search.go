package db

import (
	"context"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
)

// PrefixHigh sorts after every character used in practice; text+PrefixHigh is the upper
// bound of all strings starting with text.
const PrefixHigh = "\uf8ff"

// PrefixSearchSpec describes the documents of coll whose field starts with text. For
// descending order the bounds are swapped (startAt text+PrefixHigh, endAt text), since the
// range runs from high to low.
func PrefixSearchSpec(coll, field, text string, dir query.Direction, limit int) query.Spec {
	spec := query.Spec{
		Collection: coll,
		OrderBy:    query.ByProp(field, dir),
		StartAt:    text,
		EndAt:      text + PrefixHigh,
		Limit:      limit,
	}
	if d, err := query.ParseDirection(string(dir)); err == nil && d == query.DESC {
		spec.StartAt, spec.EndAt = spec.EndAt, spec.StartAt
	}
	return spec
}

// PrefixSearch returns the documents of coll whose field starts with text, ordered by field.
// This is a range scan, not a full-text search.
func PrefixSearch(ctx context.Context, client *store.Client, coll, field, text string, dir query.Direction, limit int) ([]store.Fields, error) {
	q, err := Compile(client, PrefixSearchSpec(coll, field, text, dir, limit))
	if err != nil {
		return nil, err
	}
	return Collect(ctx, q)
}
