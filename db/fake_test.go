package db

import (
	"context"
	"sync"

	"github.com/mazzegi/docfacade/store"
)

// fakeBackend records the queries it is asked to run and lets tests push listener events.
type fakeBackend struct {
	mx           sync.Mutex
	queries      []store.QueryDesc
	runResult    store.QuerySnapshot
	runErr       error
	persistErr   error
	persistCalls int
	qch          chan store.QueryEvent
	dch          chan store.DocEvent
	closed       bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		qch: make(chan store.QueryEvent),
		dch: make(chan store.DocEvent),
	}
}

var _ store.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) RunQuery(ctx context.Context, q store.QueryDesc) (store.QuerySnapshot, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.queries = append(f.queries, q)
	return f.runResult, f.runErr
}

func forward[E any](ctx context.Context, in <-chan E, isErr func(E) bool) <-chan E {
	out := make(chan E)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-in:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if isErr(ev) {
					return
				}
			}
		}
	}()
	return out
}

func (f *fakeBackend) ListenQuery(ctx context.Context, q store.QueryDesc) <-chan store.QueryEvent {
	f.mx.Lock()
	f.queries = append(f.queries, q)
	f.mx.Unlock()
	return forward(ctx, f.qch, func(ev store.QueryEvent) bool { return ev.Err != nil })
}

func (f *fakeBackend) ListenDoc(ctx context.Context, ref store.DocRef) <-chan store.DocEvent {
	return forward(ctx, f.dch, func(ev store.DocEvent) bool { return ev.Err != nil })
}

func (f *fakeBackend) GetDoc(ctx context.Context, ref store.DocRef) (store.DocumentSnapshot, error) {
	return store.DocumentSnapshot{Ref: ref}, f.runErr
}

func (f *fakeBackend) AddDoc(ctx context.Context, collection string, data store.Fields) (store.DocRef, error) {
	return store.DocRef{Collection: collection, ID: "x"}, f.runErr
}

func (f *fakeBackend) SetDoc(ctx context.Context, ref store.DocRef, data store.Fields, merge bool) error {
	return f.runErr
}

func (f *fakeBackend) UpdateDoc(ctx context.Context, ref store.DocRef, data store.Fields) error {
	return f.runErr
}

func (f *fakeBackend) DeleteDoc(ctx context.Context, ref store.DocRef) error {
	return f.runErr
}

func (f *fakeBackend) EnablePersistence(ctx context.Context, settings store.PersistenceSettings) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.persistCalls++
	return f.persistErr
}

func (f *fakeBackend) Close() error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBackend) queryCount() int {
	f.mx.Lock()
	defer f.mx.Unlock()
	return len(f.queries)
}
