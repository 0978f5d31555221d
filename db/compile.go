package db

import (
	"context"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
)

// Compile turns spec into a query on the collection spec.Collection. The steps are applied
// in a fixed order: orderBy, startAt, endAt, limit. Nothing is executed.
func Compile(client *store.Client, spec query.Spec) (store.Query, error) {
	if err := spec.Validate(); err != nil {
		return store.Query{}, err
	}
	return applyOptions(client.Collection(spec.Collection).Query, spec), nil
}

// CompileGroup is Compile on all collections named spec.Collection.
func CompileGroup(client *store.Client, spec query.Spec) (store.Query, error) {
	if err := spec.ValidateGroup(); err != nil {
		return store.Query{}, err
	}
	return applyOptions(client.CollectionGroup(spec.Collection), spec), nil
}

// spec is validated
func applyOptions(q store.Query, spec query.Spec) store.Query {
	if spec.OrderBy != nil {
		field, _ := spec.OrderBy.ResolveField()
		dir, _ := spec.OrderBy.ResolveDirection()
		q = q.OrderBy(field, dir)
	}
	if spec.StartAt != nil {
		q = q.StartAt(spec.StartAt)
	}
	if spec.EndAt != nil {
		q = q.EndAt(spec.EndAt)
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}
	return q
}

// ApplyFilters appends one where-step per clause, in listed order. Operators and
// comparators are not checked here; the store rejects what it cannot evaluate.
func ApplyFilters(q store.Query, filters query.FilterSet) store.Query {
	for _, c := range filters {
		q = q.Where(c.Field, c.Op, c.Comparator)
	}
	return q
}

// Collect executes q and returns the field maps of all result documents in store order.
func Collect(ctx context.Context, q store.Query) ([]store.Fields, error) {
	snap, err := q.Documents(ctx)
	if err != nil {
		return nil, storeError("collect", err)
	}
	return snap.Data(), nil
}
