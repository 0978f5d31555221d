// Package wire defines the JSON messages exchanged between the docfacade server and its
// remote clients.
package wire

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mazzegi/docfacade/store"
)

const (
	PathAdd      = "/v1/docs/add"
	PathGet      = "/v1/docs/get"
	PathSet      = "/v1/docs/set"
	PathUpdate   = "/v1/docs/update"
	PathDelete   = "/v1/docs/delete"
	PathQuery    = "/v1/query"
	PathListen   = "/v1/listen"
	PathFunction = "/v1/functions/"
	PathHealth   = "/healthz"
	PathMetrics  = "/metrics"
)

type DocRequest struct {
	Ref   store.DocRef `json:"ref"`
	Data  store.Fields `json:"data,omitempty"`
	Merge bool         `json:"merge,omitempty"`
}

type AddRequest struct {
	Collection string       `json:"coll"`
	Data       store.Fields `json:"data"`
}

// UnmarshalJSON turns the string form of store.DeleteField in Data back into the sentinel.
func (r *DocRequest) UnmarshalJSON(bs []byte) error {
	type plain DocRequest
	var p plain
	if err := json.Unmarshal(bs, &p); err != nil {
		return err
	}
	restoreDeleteFields(p.Data)
	*r = DocRequest(p)
	return nil
}

func (r *AddRequest) UnmarshalJSON(bs []byte) error {
	type plain AddRequest
	var p plain
	if err := json.Unmarshal(bs, &p); err != nil {
		return err
	}
	restoreDeleteFields(p.Data)
	*r = AddRequest(p)
	return nil
}

func restoreDeleteFields(m map[string]any) {
	for k, v := range m {
		switch v := v.(type) {
		case string:
			if v == string(store.DeleteField) {
				m[k] = store.DeleteField
			}
		case map[string]any:
			restoreDeleteFields(v)
		}
	}
}

type AddReply struct {
	Ref store.DocRef `json:"ref"`
}

// QuerySnapshot keeps the emptiness flag optional, an omitted flag decodes as unset.
type QuerySnapshot struct {
	Docs  []store.DocumentSnapshot `json:"docs"`
	Empty *bool                    `json:"empty,omitempty"`
}

func FromQuerySnapshot(qs store.QuerySnapshot) QuerySnapshot {
	docs := qs.Docs
	if docs == nil {
		docs = []store.DocumentSnapshot{}
	}
	return QuerySnapshot{
		Docs:  docs,
		Empty: qs.Empty.Ptr(),
	}
}

func (qs QuerySnapshot) Store() store.QuerySnapshot {
	return store.QuerySnapshot{
		Docs:  qs.Docs,
		Empty: store.EmptinessOf(qs.Empty),
	}
}

// ListenRequest is the first frame a client sends on a listen socket. Exactly one of Doc and
// Query is set.
type ListenRequest struct {
	Doc   *store.DocRef    `json:"doc,omitempty"`
	Query *store.QueryDesc `json:"query,omitempty"`
}

type EventKind string

const (
	EventDoc   EventKind = "doc"
	EventQuery EventKind = "query"
	EventError EventKind = "error"
)

type ListenEvent struct {
	Kind  EventKind               `json:"kind"`
	Doc   *store.DocumentSnapshot `json:"doc,omitempty"`
	Query *QuerySnapshot          `json:"query,omitempty"`
	Error *store.Error            `json:"error,omitempty"`
}

// Error converts err into the wire error form, keeping its store code.
func Error(err error) *store.Error {
	var serr *store.Error
	if errors.As(err, &serr) && error(serr) == err {
		return serr
	}
	return &store.Error{
		Code:    store.CodeOf(err),
		Message: err.Error(),
	}
}

var statusByCode = map[store.Code]int{
	store.CodeInvalidArgument:    http.StatusBadRequest,
	store.CodeNotFound:           http.StatusNotFound,
	store.CodeFailedPrecondition: http.StatusPreconditionFailed,
	store.CodeUnimplemented:      http.StatusNotImplemented,
	store.CodeUnavailable:        http.StatusServiceUnavailable,
	store.CodeCancelled:          499,
	store.CodeUnauthenticated:    http.StatusUnauthorized,
	store.CodeInternal:           http.StatusInternalServerError,
}

func StatusOf(code store.Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// DecodeError reads an error reply. Bodies which are no error reply map by status.
func DecodeError(status int, body []byte) error {
	var serr store.Error
	if err := json.Unmarshal(body, &serr); err == nil && serr.Code != "" {
		return &serr
	}
	code := store.CodeInternal
	for c, s := range statusByCode {
		if s == status {
			code = c
			break
		}
	}
	return store.Errorf(code, "http status %d: %s", status, string(body))
}

type QueryRequest struct {
	Query store.QueryDesc `json:"query"`
}
