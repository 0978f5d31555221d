package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/files"
	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/localstore"
	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/testx"
	"github.com/mazzegi/docfacade/worker"
)

func TestServices(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()

	ls, err := localstore.Open(filepath.Join(t.TempDir(), "docs.db"), localstore.Options{})
	tx.AssertNoErr(err)
	d := db.New(ls, db.Options{})

	bucket, err := files.NewFS(t.TempDir(), "http://files.test")
	tx.AssertNoErr(err)
	reg := functions.NewRegistry()
	reg.Register("count", func(ctx context.Context, args json.RawMessage) (any, error) {
		spec, err := functions.Decode[query.Spec](args)
		if err != nil {
			return nil, err
		}
		docs, err := d.GetAll(ctx, spec)
		if err != nil {
			return nil, err
		}
		return len(docs), nil
	})

	svc := New(ctx, d, worker.New(worker.Handlers{Files: bucket, Functions: reg}))
	defer svc.Close()

	msg, err := svc.Set(ctx, "cities", "SF", store.Fields{"name": "San Francisco"})
	tx.AssertNoErr(err)
	tx.AssertEqual("SF document set", msg)
	_, err = svc.Add(ctx, "cities", store.Fields{"name": "Oslo"})
	tx.AssertNoErr(err)

	var n int
	tx.AssertNoErr(svc.CloudFunction(ctx, "count", query.Spec{Collection: "cities"}, &n))
	tx.AssertEqual(2, n)

	u, err := svc.FileUpload(ctx, "cities/sf.txt", []byte("fog"), "text/plain")
	tx.AssertNoErr(err)
	tx.AssertEqual("http://files.test/cities/sf.txt", u)
	du, err := svc.GetDownloadURL(ctx, "cities/sf.txt")
	tx.AssertNoErr(err)
	tx.AssertEqual(u, du)
	tx.AssertNoErr(svc.DeleteFile(ctx, "cities/sf.txt"))
	_, err = svc.GetDownloadURL(ctx, "cities/sf.txt")
	tx.AssertEqual(store.CodeNotFound, store.CodeOf(err))

	tx.AssertNoErr(svc.SignOut(ctx))
}
