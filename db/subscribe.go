package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/log"
	"github.com/oklog/ulid/v2"
)

type SnapshotKind int

const (
	SingleDocument SnapshotKind = iota + 1
	ResultSet
)

func (k SnapshotKind) String() string {
	switch k {
	case SingleDocument:
		return "single-document"
	case ResultSet:
		return "result-set"
	default:
		return "unknown"
	}
}

// Result is one delivery of a subscription: Doc for SingleDocument, Docs for ResultSet.
type Result struct {
	Kind SnapshotKind
	Doc  store.Fields
	Docs []store.Fields
}

type (
	OnData     func(Result)
	OnError    func(error)
	CancelFunc func()
)

// Target is what a subscription watches: one document or a query.
type Target struct {
	kind SnapshotKind
	ref  store.DocRef
	opts []query.Spec
	q    store.Query
}

// DocTarget watches a single document. Ordering, bounds and limits do not apply to a single
// document; passing any of them makes Subscribe fail.
func DocTarget(ref store.DocRef, opts ...query.Spec) Target {
	return Target{kind: SingleDocument, ref: ref, opts: opts}
}

func QueryTarget(q store.Query) Target {
	return Target{kind: ResultSet, q: q}
}

func (t Target) String() string {
	switch t.kind {
	case SingleDocument:
		return "doc " + t.ref.Path()
	case ResultSet:
		return "query " + t.q.Path()
	default:
		return "invalid"
	}
}

func (t Target) validate() error {
	switch t.kind {
	case SingleDocument:
		if err := t.ref.Validate(); err != nil {
			return errors.Join(ErrInvalidSubscriptionTarget, err)
		}
		for _, o := range t.opts {
			if o.OrderBy != nil || o.HasBounds() || o.Limit != 0 {
				return errors.Join(ErrInvalidSubscriptionTarget, fmt.Errorf("document %s cannot be watched with orderBy, startAt, endAt or limit", t.ref))
			}
		}
		return nil
	case ResultSet:
		if t.q.Path() == "" {
			return errors.Join(ErrInvalidSubscriptionTarget, fmt.Errorf("query without collection"))
		}
		return nil
	default:
		return errors.Join(ErrInvalidSubscriptionTarget, fmt.Errorf("empty target"))
	}
}

type subscription struct {
	id     ulid.ULID
	target Target
	stop   context.CancelFunc

	mx        sync.Mutex
	cancelled atomic.Bool
	done      chan struct{}
	onData    OnData
	onError   OnError
}

// callbacks returns the callbacks to use for one delivery, or nils once cancelled. The
// callback itself runs without the lock, so it may cancel its own subscription.
func (s *subscription) callbacks() (OnData, OnError) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.cancelled.Load() {
		return nil, nil
	}
	return s.onData, s.onError
}

func (s *subscription) deliver(r Result) {
	if onData, _ := s.callbacks(); onData != nil {
		onData(r)
	}
}

func (s *subscription) fail(err error) {
	if _, onError := s.callbacks(); onError != nil {
		onError(err)
	}
}

// close reports false when the subscription was already closed.
func (s *subscription) close() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.cancelled.CompareAndSwap(false, true) {
		return false
	}
	s.onData = nil
	s.onError = nil
	close(s.done)
	s.stop()
	return true
}

// Subscriptions turns store listeners into callback subscriptions and keeps track of all
// active ones.
type Subscriptions struct {
	client *store.Client
	mx     sync.Mutex
	active map[ulid.ULID]*subscription
}

func NewSubscriptions(client *store.Client) *Subscriptions {
	return &Subscriptions{
		client: client,
		active: map[ulid.ULID]*subscription{},
	}
}

// Subscribe starts watching target. Store failures never surface here; they are sent to
// onError and end the subscription. The returned CancelFunc may be called any number of
// times; no callback is dispatched after cancel, one already dispatched may still run.
func (m *Subscriptions) Subscribe(target Target, onData OnData, onError OnError) (CancelFunc, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if onData == nil || onError == nil {
		return nil, invalidShape("subscribe %s: onData and onError are required", target)
	}

	ctx, stop := context.WithCancel(context.Background())
	sub := &subscription{
		id:      ulid.Make(),
		target:  target,
		stop:    stop,
		done:    make(chan struct{}),
		onData:  onData,
		onError: onError,
	}
	m.mx.Lock()
	m.active[sub.id] = sub
	m.mx.Unlock()
	log.Debugf("subscriptions: open %s on %s", sub.id, target)

	switch target.kind {
	case SingleDocument:
		ch := m.client.Doc(target.ref.Collection, target.ref.ID).Listen(ctx)
		go m.runDoc(sub, ch)
	default:
		ch := target.q.Listen(ctx)
		go m.runQuery(sub, ch)
	}
	return func() { m.cancel(sub) }, nil
}

func (m *Subscriptions) runDoc(sub *subscription, ch <-chan store.DocEvent) {
	defer m.cancel(sub)
	for {
		select {
		case <-sub.done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch {
			case ev.Err != nil:
				log.Warnf("subscriptions: %s on %s: %v", sub.id, sub.target, ev.Err)
				sub.fail(storeError("subscribe", ev.Err))
				return
			case !ev.Snapshot.Exists:
				sub.fail(documentDoesNotExist())
			default:
				sub.deliver(Result{Kind: SingleDocument, Doc: ev.Snapshot.Data})
			}
		}
	}
}

func (m *Subscriptions) runQuery(sub *subscription, ch <-chan store.QueryEvent) {
	defer m.cancel(sub)
	for {
		select {
		case <-sub.done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch {
			case ev.Err != nil:
				log.Warnf("subscriptions: %s on %s: %v", sub.id, sub.target, ev.Err)
				sub.fail(storeError("subscribe", ev.Err))
				return
			case ev.Snapshot.Empty == store.EmptyTrue:
				sub.fail(documentDoesNotExist())
			default:
				sub.deliver(Result{Kind: ResultSet, Docs: ev.Snapshot.Data()})
			}
		}
	}
}

func (m *Subscriptions) cancel(sub *subscription) {
	if !sub.close() {
		return
	}
	m.mx.Lock()
	delete(m.active, sub.id)
	m.mx.Unlock()
	log.Debugf("subscriptions: closed %s", sub.id)
}

// Len returns the number of active subscriptions.
func (m *Subscriptions) Len() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return len(m.active)
}

func (m *Subscriptions) CancelAll() {
	m.mx.Lock()
	subs := make([]*subscription, 0, len(m.active))
	for _, sub := range m.active {
		subs = append(subs, sub)
	}
	m.mx.Unlock()
	for _, sub := range subs {
		m.cancel(sub)
	}
}
