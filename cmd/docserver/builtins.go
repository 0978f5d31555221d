package main

import (
	"context"
	"errors"
	"encoding/json"
	"time"

	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
)

type searchArgs struct {
	Collection string          `json:"coll"`
	Field      string          `json:"field"`
	Text       string          `json:"text"`
	Direction  query.Direction `json:"direction,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

type queryArgs struct {
	Spec    query.Spec      `json:"spec"`
	Filters query.FilterSet `json:"filters,omitempty"`
}

// registerBuiltins adds the functions every docserver offers.
func registerBuiltins(reg *functions.Registry, d *db.DB) {
	reg.Register("ping", func(ctx context.Context, args json.RawMessage) (any, error) {
		return map[string]any{"time": time.Now().UTC().Format(time.RFC3339)}, nil
	})
	reg.Register("count", func(ctx context.Context, args json.RawMessage) (any, error) {
		a, err := functions.Decode[queryArgs](args)
		if err != nil {
			return nil, err
		}
		docs, err := d.Query(ctx, a.Spec, a.Filters)
		if err != nil {
			return nil, asStoreError(err)
		}
		return len(docs), nil
	})
	reg.Register("search", func(ctx context.Context, args json.RawMessage) (any, error) {
		a, err := functions.Decode[searchArgs](args)
		if err != nil {
			return nil, err
		}
		docs, err := d.PrefixSearch(ctx, a.Collection, a.Field, a.Text, a.Direction, a.Limit)
		if err != nil {
			return nil, asStoreError(err)
		}
		return docs, nil
	})
}

// asStoreError keeps the store code of execution errors and reports request shape errors as
// invalid arguments.
func asStoreError(err error) error {
	if code := store.CodeOf(err); code != store.CodeInternal {
		return err
	}
	if errors.Is(err, db.ErrInvalidRequestShape) {
		return store.Errorf(store.CodeInvalidArgument, "%v", err)
	}
	return err
}
