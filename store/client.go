package store

import (
	"context"
	"fmt"
	"slices"
)

type StepKind string

const (
	StepOrderBy StepKind = "orderBy"
	StepStartAt StepKind = "startAt"
	StepEndAt   StepKind = "endAt"
	StepLimit   StepKind = "limit"
	StepWhere   StepKind = "where"
)

// Step is one query-building call, recorded in the order it was made.
type Step struct {
	Kind      StepKind  `json:"kind"`
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Op        Op        `json:"op,omitempty"`
	Value     any       `json:"value,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

func (s Step) String() string {
	switch s.Kind {
	case StepOrderBy:
		return fmt.Sprintf("orderBy(%s %s)", s.Field, s.Direction)
	case StepStartAt, StepEndAt:
		return fmt.Sprintf("%s(%v)", s.Kind, s.Value)
	case StepLimit:
		return fmt.Sprintf("limit(%d)", s.Limit)
	case StepWhere:
		return fmt.Sprintf("where(%s %s %v)", s.Field, s.Op, s.Value)
	default:
		return string(s.Kind)
	}
}

// QueryDesc is the transportable form of a query: a collection path (or collection id when
// Group is set) plus its steps.
type QueryDesc struct {
	Path  string `json:"path"`
	Group bool   `json:"group,omitempty"`
	Steps []Step `json:"steps,omitempty"`
}

type QueryEvent struct {
	Snapshot QuerySnapshot
	Err      error
}

type DocEvent struct {
	Snapshot DocumentSnapshot
	Err      error
}

// Backend executes reads, writes and listens. Listen channels deliver snapshots until the
// context is done or an error event was sent; they are closed afterwards.
type Backend interface {
	RunQuery(ctx context.Context, q QueryDesc) (QuerySnapshot, error)
	ListenQuery(ctx context.Context, q QueryDesc) <-chan QueryEvent
	GetDoc(ctx context.Context, ref DocRef) (DocumentSnapshot, error)
	AddDoc(ctx context.Context, collection string, data Fields) (DocRef, error)
	SetDoc(ctx context.Context, ref DocRef, data Fields, merge bool) error
	UpdateDoc(ctx context.Context, ref DocRef, data Fields) error
	DeleteDoc(ctx context.Context, ref DocRef) error
	ListenDoc(ctx context.Context, ref DocRef) <-chan DocEvent
	EnablePersistence(ctx context.Context, settings PersistenceSettings) error
	Close() error
}

type Client struct {
	backend Backend
}

func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

func (c *Client) Backend() Backend {
	return c.backend
}

func (c *Client) Collection(path string) CollectionRef {
	return CollectionRef{
		Query: Query{backend: c.backend, desc: QueryDesc{Path: path}},
	}
}

// CollectionGroup addresses all collections with the given id, at any nesting level.
func (c *Client) CollectionGroup(id string) Query {
	return Query{backend: c.backend, desc: QueryDesc{Path: id, Group: true}}
}

func (c *Client) Doc(collection, id string) DocumentRef {
	return DocumentRef{backend: c.backend, ref: DocRef{Collection: collection, ID: id}}
}

func (c *Client) EnablePersistence(ctx context.Context, settings PersistenceSettings) error {
	return c.backend.EnablePersistence(ctx, settings)
}

func (c *Client) Close() error {
	return c.backend.Close()
}

// Query is an immutable query handle. Every builder call returns a new handle with the
// step appended.
type Query struct {
	backend Backend
	desc    QueryDesc
}

func (q Query) with(s Step) Query {
	nq := q
	nq.desc.Steps = append(slices.Clone(q.desc.Steps), s)
	return nq
}

func (q Query) Path() string {
	return q.desc.Path
}

func (q Query) IsGroup() bool {
	return q.desc.Group
}

func (q Query) Steps() []Step {
	return slices.Clone(q.desc.Steps)
}

func (q Query) Desc() QueryDesc {
	d := q.desc
	d.Steps = slices.Clone(q.desc.Steps)
	return d
}

func (q Query) OrderBy(field string, dir Direction) Query {
	return q.with(Step{Kind: StepOrderBy, Field: field, Direction: dir})
}

func (q Query) StartAt(v any) Query {
	return q.with(Step{Kind: StepStartAt, Value: v})
}

func (q Query) EndAt(v any) Query {
	return q.with(Step{Kind: StepEndAt, Value: v})
}

func (q Query) Limit(n int) Query {
	return q.with(Step{Kind: StepLimit, Limit: n})
}

func (q Query) Where(field string, op Op, value any) Query {
	return q.with(Step{Kind: StepWhere, Field: field, Op: op, Value: value})
}

func (q Query) Documents(ctx context.Context) (QuerySnapshot, error) {
	return q.backend.RunQuery(ctx, q.Desc())
}

func (q Query) Listen(ctx context.Context) <-chan QueryEvent {
	return q.backend.ListenQuery(ctx, q.Desc())
}

type CollectionRef struct {
	Query
}

func (c CollectionRef) Doc(id string) DocumentRef {
	return DocumentRef{backend: c.backend, ref: DocRef{Collection: c.desc.Path, ID: id}}
}

func (c CollectionRef) Add(ctx context.Context, data Fields) (DocRef, error) {
	return c.backend.AddDoc(ctx, c.desc.Path, data)
}

type DocumentRef struct {
	backend Backend
	ref     DocRef
}

func (d DocumentRef) Ref() DocRef {
	return d.ref
}

func (d DocumentRef) Get(ctx context.Context) (DocumentSnapshot, error) {
	return d.backend.GetDoc(ctx, d.ref)
}

func (d DocumentRef) Set(ctx context.Context, data Fields, merge bool) error {
	return d.backend.SetDoc(ctx, d.ref, data, merge)
}

func (d DocumentRef) Update(ctx context.Context, data Fields) error {
	return d.backend.UpdateDoc(ctx, d.ref, data)
}

func (d DocumentRef) Delete(ctx context.Context) error {
	return d.backend.DeleteDoc(ctx, d.ref)
}

func (d DocumentRef) Listen(ctx context.Context) <-chan DocEvent {
	return d.backend.ListenDoc(ctx, d.ref)
}
