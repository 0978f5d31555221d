package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/localstore"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/testx"
)

func TestBuiltins(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	ls, err := localstore.Open(filepath.Join(t.TempDir(), "server.db"), localstore.Options{})
	tx.AssertNoErr(err)
	d := db.New(ls, db.Options{})
	defer d.Close()
	for id, name := range map[string]string{"SF": "San Francisco", "SD": "San Diego", "LA": "Los Angeles"} {
		_, err := d.Set(ctx, "cities", id, store.Fields{"name": name, "state": "CA"})
		tx.AssertNoErr(err)
	}

	reg := functions.NewRegistry()
	registerBuiltins(reg, d)
	tx.AssertEqual([]string{"count", "ping", "search"}, reg.Names())

	res, err := reg.CallFunction(ctx, "count", json.RawMessage(`{"spec":{"coll":"cities"},"filters":{"field":"name","operator":">=","comparator":"San"}}`))
	tx.AssertNoErr(err)
	tx.AssertEqual("2", string(res))

	res, err = reg.CallFunction(ctx, "search", json.RawMessage(`{"coll":"cities","field":"name","text":"San","direction":"desc","limit":1}`))
	tx.AssertNoErr(err)
	var docs []store.Fields
	tx.AssertNoErr(json.Unmarshal(res, &docs))
	tx.AssertEqual(1, len(docs))
	tx.AssertEqual("San Francisco", docs[0]["name"])

	_, err = reg.CallFunction(ctx, "count", json.RawMessage(`{"spec":{"coll":"cities","startAt":"A"}}`))
	tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(err))

	_, err = reg.CallFunction(ctx, "ping", nil)
	tx.AssertNoErr(err)
}
