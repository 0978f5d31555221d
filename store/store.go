// Package store is the client contract of a document store: references, query handles,
// snapshots and the Backend that executes them.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/slicesx"
)

type Fields map[string]any

type Direction = query.Direction

type Op = query.Op

type DocRef struct {
	Collection string `json:"coll"`
	ID         string `json:"doc"`
}

func (r DocRef) Path() string {
	return r.Collection + "/" + r.ID
}

func (r DocRef) String() string {
	return r.Path()
}

// Group returns the collection id, which is the last segment of the collection path.
func (r DocRef) Group() string {
	return groupOf(r.Collection)
}

func (r DocRef) Validate() error {
	if err := query.ValidateCollectionPath(r.Collection); err != nil {
		return Errorf(CodeInvalidArgument, "%v", err)
	}
	if r.ID == "" || strings.Contains(r.ID, "/") {
		return Errorf(CodeInvalidArgument, "invalid document id %q", r.ID)
	}
	return nil
}

// ParseDocPath splits "coll/doc" or "coll/doc/sub/doc2" into a DocRef.
func ParseDocPath(path string) (DocRef, error) {
	ix := strings.LastIndex(path, "/")
	if ix < 0 {
		return DocRef{}, Errorf(CodeInvalidArgument, "%q is not a document path", path)
	}
	ref := DocRef{Collection: path[:ix], ID: path[ix+1:]}
	if err := ref.Validate(); err != nil {
		return DocRef{}, err
	}
	return ref, nil
}

func groupOf(collection string) string {
	if ix := strings.LastIndex(collection, "/"); ix >= 0 {
		return collection[ix+1:]
	}
	return collection
}

type DocumentSnapshot struct {
	Ref        DocRef    `json:"ref"`
	Exists     bool      `json:"exists"`
	Data       Fields    `json:"data,omitempty"`
	UpdateTime time.Time `json:"updateTime,omitzero"`
}

// Emptiness is the tri-state empty flag of a query snapshot. Snapshots received from a
// transport which omitted the flag carry EmptyUnset.
type Emptiness int

const (
	EmptyUnset Emptiness = iota
	EmptyTrue
	EmptyFalse
)

func EmptinessOf(b *bool) Emptiness {
	switch {
	case b == nil:
		return EmptyUnset
	case *b:
		return EmptyTrue
	default:
		return EmptyFalse
	}
}

func (e Emptiness) Ptr() *bool {
	var b bool
	switch e {
	case EmptyTrue:
		b = true
	case EmptyFalse:
		b = false
	default:
		return nil
	}
	return &b
}

func (e Emptiness) String() string {
	switch e {
	case EmptyTrue:
		return "empty"
	case EmptyFalse:
		return "non-empty"
	default:
		return "unset"
	}
}

type QuerySnapshot struct {
	Docs  []DocumentSnapshot
	Empty Emptiness
}

func NewQuerySnapshot(docs []DocumentSnapshot) QuerySnapshot {
	qs := QuerySnapshot{Docs: docs, Empty: EmptyFalse}
	if len(docs) == 0 {
		qs.Empty = EmptyTrue
	}
	return qs
}

// Data returns the field maps of all documents in snapshot order.
func (qs QuerySnapshot) Data() []Fields {
	return slicesx.Map(qs.Docs, func(d DocumentSnapshot) Fields { return d.Data })
}

type PersistenceSettings struct {
	SynchronizeTabs bool
}

func (s PersistenceSettings) String() string {
	return fmt.Sprintf("synchronize-tabs=%t", s.SynchronizeTabs)
}
