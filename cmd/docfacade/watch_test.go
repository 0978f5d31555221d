package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/testx"
)

func returnsWithin(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	doneC := make(chan struct{})
	go func() {
		defer close(doneC)
		fn()
	}()
	select {
	case <-doneC:
	case <-time.After(d):
		t.Fatalf("callback still blocked after %s", d)
	}
}

func TestSnapshotFeedStop(t *testing.T) {
	tx := testx.NewTx(t)
	feed := newSnapshotFeed(context.Background())

	go feed.onData(db.Result{Kind: db.SingleDocument})
	select {
	case r := <-feed.resC:
		tx.AssertEqual(db.SingleDocument, r.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no result handed over")
	}

	feed.stop()
	feed.stop()
	returnsWithin(t, 5*time.Second, func() { feed.onData(db.Result{}) })
	returnsWithin(t, 5*time.Second, func() { feed.onError(fmt.Errorf("listen: gone")) })
}

func TestSnapshotFeedContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := newSnapshotFeed(ctx)
	defer feed.stop()
	cancel()
	returnsWithin(t, 5*time.Second, func() { feed.onData(db.Result{}) })
}
