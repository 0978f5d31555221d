// Package db is the façade over a document store: declarative queries, single-document
// operations and live subscriptions with a defined lifecycle.
package db

import (
	"context"
	"errors"
	"sync"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/log"
)

type Options struct {
	// ExclusivePersistence makes EnablePersistence take the local cache for this client only,
	// instead of sharing it with other clients.
	ExclusivePersistence bool
}

// DB is explicitly constructed and owned by the caller. Close cancels all subscriptions and
// releases the store client.
type DB struct {
	opts    Options
	client  *store.Client
	gateway *Gateway
	subs    *Subscriptions

	persistOnce  sync.Once
	persistErr   error
	persistState error
}

func New(backend store.Backend, opts Options) *DB {
	client := store.NewClient(backend)
	return &DB{
		opts:    opts,
		client:  client,
		gateway: NewGateway(client),
		subs:    NewSubscriptions(client),
	}
}

func (db *DB) Client() *store.Client {
	return db.client
}

func (db *DB) Gateway() *Gateway {
	return db.gateway
}

func (db *DB) Subscriptions() *Subscriptions {
	return db.subs
}

func (db *DB) Close() error {
	db.subs.CancelAll()
	return db.client.Close()
}

// EnablePersistence asks the store for a local persistent cache. It is attempted once; later
// calls return the first result. A store which cannot provide the cache in this environment
// is not an error: the DB keeps working without it and PersistenceState reports why.
func (db *DB) EnablePersistence(ctx context.Context) error {
	db.persistOnce.Do(func() {
		settings := store.PersistenceSettings{SynchronizeTabs: !db.opts.ExclusivePersistence}
		err := db.client.EnablePersistence(ctx, settings)
		switch store.CodeOf(err) {
		case "":
		case store.CodeFailedPrecondition:
			log.Warnf("db: persistence unavailable, the cache is held by another client: %v", err)
			db.persistState = errors.Join(ErrPersistenceCapabilityUnavailable, err)
		case store.CodeUnimplemented:
			log.Warnf("db: persistence is not supported by this store: %v", err)
			db.persistState = errors.Join(ErrPersistenceCapabilityUnavailable, err)
		default:
			db.persistErr = storeError("enable-persistence", err)
		}
	})
	return db.persistErr
}

// PersistenceState is nil unless EnablePersistence was downgraded, in which case it matches
// ErrPersistenceCapabilityUnavailable.
func (db *DB) PersistenceState() error {
	return db.persistState
}

// SetOptions of DB.Set. The zero value merges.
type SetOptions struct {
	Replace bool
}

func (db *DB) Add(ctx context.Context, coll string, data store.Fields) (string, error) {
	return db.gateway.Add(ctx, coll, data)
}

func (db *DB) Set(ctx context.Context, coll, doc string, data store.Fields, opts ...SetOptions) (string, error) {
	merge := true
	for _, o := range opts {
		merge = !o.Replace
	}
	return db.gateway.Set(ctx, coll, doc, data, merge)
}

func (db *DB) Get(ctx context.Context, coll, doc string) (store.Fields, error) {
	return db.gateway.Get(ctx, coll, doc)
}

func (db *DB) DeleteDocument(ctx context.Context, coll, doc string) (string, error) {
	return db.gateway.DeleteDocument(ctx, coll, doc)
}

func (db *DB) DeleteField(ctx context.Context, coll, doc, field string) (string, error) {
	return db.gateway.DeleteField(ctx, coll, doc, field)
}

func (db *DB) GetAll(ctx context.Context, spec query.Spec) ([]store.Fields, error) {
	q, err := Compile(db.client, spec)
	if err != nil {
		return nil, err
	}
	return Collect(ctx, q)
}

func (db *DB) Query(ctx context.Context, spec query.Spec, filters query.FilterSet) ([]store.Fields, error) {
	q, err := Compile(db.client, spec)
	if err != nil {
		return nil, err
	}
	return Collect(ctx, ApplyFilters(q, filters))
}

// CollectionGroup queries all collections named id, at any nesting level, with one filter.
func (db *DB) CollectionGroup(ctx context.Context, id string, field string, op query.Op, value any) ([]store.Fields, error) {
	q, err := CompileGroup(db.client, query.Spec{Collection: id})
	if err != nil {
		return nil, err
	}
	return Collect(ctx, ApplyFilters(q, query.One(query.C(field, op, value))))
}

func (db *DB) PrefixSearch(ctx context.Context, coll, field, text string, dir query.Direction, limit int) ([]store.Fields, error) {
	return PrefixSearch(ctx, db.client, coll, field, text, dir, limit)
}

func (db *DB) QuerySubscribe(spec query.Spec, filters query.FilterSet, onData OnData, onError OnError) (CancelFunc, error) {
	q, err := Compile(db.client, spec)
	if err != nil {
		return nil, err
	}
	return db.subs.Subscribe(QueryTarget(ApplyFilters(q, filters)), onData, onError)
}

// SubscribeRequest watches Collection/Doc when Doc is set, otherwise the collection with
// the given ordering and range.
type SubscribeRequest struct {
	Collection string         `json:"coll"`
	Doc        string         `json:"doc,omitempty"`
	OrderBy    *query.OrderBy `json:"orderBy,omitempty"`
	StartAt    any            `json:"startAt,omitempty"`
	EndAt      any            `json:"endAt,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

func (r SubscribeRequest) spec() query.Spec {
	return query.Spec{
		Collection: r.Collection,
		OrderBy:    r.OrderBy,
		StartAt:    r.StartAt,
		EndAt:      r.EndAt,
		Limit:      r.Limit,
	}
}

func (db *DB) Subscribe(req SubscribeRequest, onData OnData, onError OnError) (CancelFunc, error) {
	if req.Doc != "" {
		if err := validateDoc(req.Collection, req.Doc); err != nil {
			return nil, errors.Join(ErrInvalidSubscriptionTarget, err)
		}
		ref := store.DocRef{Collection: req.Collection, ID: req.Doc}
		return db.subs.Subscribe(DocTarget(ref, req.spec()), onData, onError)
	}
	q, err := Compile(db.client, req.spec())
	if err != nil {
		return nil, err
	}
	return db.subs.Subscribe(QueryTarget(q), onData, onError)
}
