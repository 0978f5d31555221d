package localstore

import (
	"context"
	"time"

	"github.com/mazzegi/docfacade/slicesx"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/log"
	"github.com/r3labs/diff/v3"
)

func docFingerprint(d store.DocumentSnapshot) map[string]any {
	return map[string]any{
		"path":    d.Ref.Path(),
		"exists":  d.Exists,
		"updated": d.UpdateTime.Format(time.RFC3339Nano),
		"data":    map[string]any(d.Data),
	}
}

func queryFingerprint(qs store.QuerySnapshot) []any {
	return slicesx.Map(qs.Docs, func(d store.DocumentSnapshot) any { return docFingerprint(d) })
}

// changed reports whether two snapshot fingerprints differ. Order of result documents is
// significant.
func changed(prev, cur any) bool {
	changelog, err := diff.Diff(prev, cur, diff.SliceOrdering(true))
	if err != nil {
		log.Warnf("localstore: diff snapshots: %v", err)
		return true
	}
	return len(changelog) > 0
}

// listen runs load once and after every change signal, sending only results whose
// fingerprint changed. It stops on the first load error, which is sent as the final event.
func listen[T, E any](ctx context.Context, s *Store, out chan<- E, load func(ctx context.Context) (T, error), fingerprint func(T) any, event func(T, error) E) {
	sub := s.publisher.Subscribe()
	defer sub.Close()

	send := func(ev E) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var last any
	first := true
	emit := func() bool {
		v, err := load(ctx)
		if err != nil {
			if ctx.Err() == nil {
				send(event(v, err))
			}
			return false
		}
		fp := fingerprint(v)
		if !first && !changed(last, fp) {
			return true
		}
		first = false
		last = fp
		return send(event(v, nil))
	}

	if !emit() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			if !emit() {
				return
			}
		}
	}
}

func (s *Store) ListenQuery(ctx context.Context, q store.QueryDesc) <-chan store.QueryEvent {
	ch := make(chan store.QueryEvent)
	go func() {
		defer close(ch)
		listen[store.QuerySnapshot, store.QueryEvent](ctx, s, ch,
			func(ctx context.Context) (store.QuerySnapshot, error) { return s.RunQuery(ctx, q) },
			func(qs store.QuerySnapshot) any { return queryFingerprint(qs) },
			func(qs store.QuerySnapshot, err error) store.QueryEvent { return store.QueryEvent{Snapshot: qs, Err: err} })
	}()
	return ch
}

func (s *Store) ListenDoc(ctx context.Context, ref store.DocRef) <-chan store.DocEvent {
	ch := make(chan store.DocEvent)
	go func() {
		defer close(ch)
		listen[store.DocumentSnapshot, store.DocEvent](ctx, s, ch,
			func(ctx context.Context) (store.DocumentSnapshot, error) { return s.GetDoc(ctx, ref) },
			func(d store.DocumentSnapshot) any { return docFingerprint(d) },
			func(d store.DocumentSnapshot, err error) store.DocEvent { return store.DocEvent{Snapshot: d, Err: err} })
	}()
	return ch
}
