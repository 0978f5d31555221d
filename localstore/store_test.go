package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/sqlitex"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/testx"
)

func openTestStore(t *testing.T, driver sqlitex.Driver) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), Options{Driver: driver})
	testx.AssertNoErr(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCities(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, doc := range cityDocs() {
		testx.AssertNoErr(t, s.SetDoc(ctx, doc.Ref, doc.Data, false))
	}
}

func TestStoreDocs(t *testing.T) {
	for _, driver := range []sqlitex.Driver{sqlitex.DriverCGo, sqlitex.DriverPure} {
		t.Run(string(driver), func(t *testing.T) {
			tx := testx.NewTx(t)
			ctx := context.Background()
			s := openTestStore(t, driver)

			ref, err := s.AddDoc(ctx, "cities", store.Fields{"name": "Oslo", "population": 700000})
			tx.AssertNoErr(err)
			tx.AssertEqual("cities", ref.Collection)
			tx.AssertEqual(36, len(ref.ID))

			snap, err := s.GetDoc(ctx, ref)
			tx.AssertNoErr(err)
			tx.AssertEqual(true, snap.Exists)
			tx.AssertEqual(store.Fields{"name": "Oslo", "population": 700000.0}, snap.Data)
			tx.AssertEqual(false, snap.UpdateTime.IsZero())

			missing, err := s.GetDoc(ctx, store.DocRef{Collection: "cities", ID: "nope"})
			tx.AssertNoErr(err)
			tx.AssertEqual(false, missing.Exists)

			_, err = s.GetDoc(ctx, store.DocRef{Collection: "cities", ID: "a/b"})
			tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(err))
		})
	}
}

func TestStoreSetMergeReplace(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	s := openTestStore(t, sqlitex.DriverCGo)
	ref := store.DocRef{Collection: "c", ID: "d"}

	tx.AssertNoErr(s.SetDoc(ctx, ref, store.Fields{"a": 1, "b": 2, "n": store.Fields{"x": 1}}, true))
	tx.AssertNoErr(s.SetDoc(ctx, ref, store.Fields{"b": 3, "c": 4, "n": store.Fields{"y": 2}}, true))
	snap, err := s.GetDoc(ctx, ref)
	tx.AssertNoErr(err)
	tx.AssertEqual(store.Fields{"a": 1.0, "b": 3.0, "c": 4.0, "n": map[string]any{"x": 1.0, "y": 2.0}}, snap.Data)

	tx.AssertNoErr(s.SetDoc(ctx, ref, store.Fields{"n": store.Fields{"x": store.DeleteField}}, true))
	snap, _ = s.GetDoc(ctx, ref)
	tx.AssertEqual(map[string]any{"y": 2.0}, snap.Data["n"])

	tx.AssertNoErr(s.SetDoc(ctx, ref, store.Fields{"b": 5, "c": 6}, false))
	snap, _ = s.GetDoc(ctx, ref)
	tx.AssertEqual(store.Fields{"b": 5.0, "c": 6.0}, snap.Data)

	err = s.SetDoc(ctx, ref, store.Fields{"b": store.DeleteField}, false)
	tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(err))
}

func TestStoreUpdateDelete(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	s := openTestStore(t, sqlitex.DriverPure)
	ref := store.DocRef{Collection: "users/u1/landmarks", ID: "l1"}

	err := s.UpdateDoc(ctx, ref, store.Fields{"a": 1})
	tx.AssertEqual(store.CodeNotFound, store.CodeOf(err))

	tx.AssertNoErr(s.SetDoc(ctx, ref, store.Fields{"a": 1, "b": 2, "geo": store.Fields{"lat": 1, "lng": 2}}, false))
	tx.AssertNoErr(s.UpdateDoc(ctx, ref, store.Fields{"b": store.DeleteField, "geo.lat": 9, "c": "x"}))
	snap, err := s.GetDoc(ctx, ref)
	tx.AssertNoErr(err)
	_, hasB := snap.Data["b"]
	tx.AssertEqual(false, hasB)
	tx.AssertEqual(store.Fields{"a": 1.0, "c": "x", "geo": map[string]any{"lat": 9.0, "lng": 2.0}}, snap.Data)

	// a plain string with the sentinel's text is stored like any other value
	tx.AssertNoErr(s.UpdateDoc(ctx, ref, store.Fields{"c": string(store.DeleteField)}))
	snap, _ = s.GetDoc(ctx, ref)
	tx.AssertEqual(string(store.DeleteField), snap.Data["c"])

	tx.AssertNoErr(s.DeleteDoc(ctx, ref))
	snap, err = s.GetDoc(ctx, ref)
	tx.AssertNoErr(err)
	tx.AssertEqual(false, snap.Exists)
	tx.AssertNoErr(s.DeleteDoc(ctx, ref))
}

func TestStoreQueries(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	s := openTestStore(t, sqlitex.DriverCGo)
	seedCities(t, s)

	client := store.NewClient(s)
	qs, err := client.Collection("cities").OrderBy("name", query.ASC).StartAt("San").EndAt("San\uf8ff").Limit(10).Documents(ctx)
	tx.AssertNoErr(err)
	tx.AssertEqual([]string{"SD", "SF", "SJ"}, ids(qs.Docs))
	tx.AssertEqual(store.EmptyFalse, qs.Empty)

	qs, err = client.Collection("cities").Where("state", query.OpEqual, "WA").Documents(ctx)
	tx.AssertNoErr(err)
	tx.AssertEqual(store.EmptyTrue, qs.Empty)

	_, err = client.Collection("cities").StartAt("A").OrderBy("name", query.ASC).Documents(ctx)
	tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(err))

	_, err = client.Collection("cities/SF").Documents(ctx)
	tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(err))

	for _, ref := range []store.DocRef{
		{Collection: "cities/SF/landmarks", ID: "golden_gate"},
		{Collection: "cities/LA/landmarks", ID: "griffith"},
		{Collection: "museums", ID: "moma"},
	} {
		tx.AssertNoErr(s.SetDoc(ctx, ref, store.Fields{"type": "bridge"}, false))
	}
	tx.AssertNoErr(s.UpdateDoc(ctx, store.DocRef{Collection: "cities/LA/landmarks", ID: "griffith"}, store.Fields{"type": "park"}))
	qs, err = client.CollectionGroup("landmarks").Where("type", query.OpEqual, "bridge").Documents(ctx)
	tx.AssertNoErr(err)
	tx.AssertEqual(1, len(qs.Docs))
	tx.AssertEqual("cities/SF/landmarks/golden_gate", qs.Docs[0].Ref.Path())

	qs, err = client.CollectionGroup("landmarks").Documents(ctx)
	tx.AssertNoErr(err)
	tx.AssertEqual(2, len(qs.Docs))
}

func nextQueryEvent(t *testing.T, ch <-chan store.QueryEvent) store.QueryEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("listen channel closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for query event")
	}
	return store.QueryEvent{}
}

func TestStoreListenQuery(t *testing.T) {
	tx := testx.NewTx(t)
	s := openTestStore(t, sqlitex.DriverCGo)
	seedCities(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := store.NewClient(s)
	ch := client.Collection("cities").Where("state", query.OpEqual, "CA").OrderBy("name", query.ASC).Listen(ctx)

	ev := nextQueryEvent(t, ch)
	tx.AssertNoErr(ev.Err)
	tx.AssertEqual([]string{"LA", "SD", "SF", "SJ"}, ids(ev.Snapshot.Docs))

	// unrelated write: no event; related write: event
	tx.AssertNoErr(s.SetDoc(ctx, store.DocRef{Collection: "museums", ID: "moma"}, store.Fields{"a": 1}, false))
	tx.AssertNoErr(s.SetDoc(ctx, store.DocRef{Collection: "cities", ID: "SAC"}, store.Fields{"name": "Sacramento", "state": "CA"}, false))
	ev = nextQueryEvent(t, ch)
	tx.AssertNoErr(ev.Err)
	tx.AssertEqual([]string{"LA", "SAC", "SD", "SF", "SJ"}, ids(ev.Snapshot.Docs))

	cancel()
	for range ch {
	}
	tx.AssertEqual(0, s.publisher.Len())
}

func TestStoreListenDocAndError(t *testing.T) {
	tx := testx.NewTx(t)
	s := openTestStore(t, sqlitex.DriverCGo)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ref := store.DocRef{Collection: "c", ID: "d"}

	dch := s.ListenDoc(ctx, ref)
	ev := <-dch
	tx.AssertNoErr(ev.Err)
	tx.AssertEqual(false, ev.Snapshot.Exists)

	tx.AssertNoErr(s.SetDoc(ctx, ref, store.Fields{"v": 1}, false))
	ev = <-dch
	tx.AssertEqual(true, ev.Snapshot.Exists)
	tx.AssertEqual(1.0, ev.Snapshot.Data["v"])

	qch := s.ListenQuery(ctx, store.QueryDesc{Path: "c", Steps: []store.Step{{Kind: store.StepLimit, Limit: -1}}})
	qev := nextQueryEvent(t, qch)
	tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(qev.Err))
	_, ok := <-qch
	tx.AssertEqual(false, ok)
}

func TestStorePersistence(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(file, Options{})
	tx.AssertNoErr(err)
	defer s1.Close()
	s2, err := Open(file, Options{})
	tx.AssertNoErr(err)
	defer s2.Close()

	tx.AssertNoErr(s1.EnablePersistence(ctx, store.PersistenceSettings{}))
	tx.AssertNoErr(s1.EnablePersistence(ctx, store.PersistenceSettings{}))

	err = s2.EnablePersistence(ctx, store.PersistenceSettings{SynchronizeTabs: true})
	tx.AssertEqual(store.CodeFailedPrecondition, store.CodeOf(err))

	tx.AssertNoErr(s1.Close())
	tx.AssertNoErr(s2.EnablePersistence(ctx, store.PersistenceSettings{SynchronizeTabs: true}))
}
