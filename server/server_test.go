package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mazzegi/docfacade/localstore"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/testx"
	"github.com/mazzegi/docfacade/wire"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	ls, err := localstore.Open(filepath.Join(t.TempDir(), "server.db"), localstore.Options{})
	testx.AssertNoErr(t, err)
	s := New(ls, nil, opts)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hs.Close()
		ls.Close()
	})
	return s, hs
}

func post(t *testing.T, hs *httptest.Server, path string, token string, body any) (int, []byte) {
	t.Helper()
	bs, err := json.Marshal(body)
	testx.AssertNoErr(t, err)
	req, err := http.NewRequest(http.MethodPost, hs.URL+path, bytes.NewReader(bs))
	testx.AssertNoErr(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := hs.Client().Do(req)
	testx.AssertNoErr(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	testx.AssertNoErr(t, err)
	return resp.StatusCode, out
}

func TestServerDocs(t *testing.T) {
	tx := testx.NewTx(t)
	_, hs := newTestServer(t, Options{})

	status, body := post(t, hs, wire.PathAdd, "", wire.AddRequest{Collection: "cities", Data: store.Fields{"name": "Oslo"}})
	tx.AssertEqual(http.StatusOK, status)
	var added wire.AddReply
	tx.AssertNoErr(json.Unmarshal(body, &added))
	tx.AssertEqual("cities", added.Ref.Collection)

	ref := store.DocRef{Collection: "cities", ID: "SF"}
	status, _ = post(t, hs, wire.PathSet, "", wire.DocRequest{Ref: ref, Data: store.Fields{"name": "San Francisco", "state": "CA"}})
	tx.AssertEqual(http.StatusOK, status)
	status, _ = post(t, hs, wire.PathUpdate, "", wire.DocRequest{Ref: ref, Data: store.Fields{"state": store.DeleteField}})
	tx.AssertEqual(http.StatusOK, status)

	status, body = post(t, hs, wire.PathGet, "", wire.DocRequest{Ref: ref})
	tx.AssertEqual(http.StatusOK, status)
	var snap store.DocumentSnapshot
	tx.AssertNoErr(json.Unmarshal(body, &snap))
	tx.AssertEqual(true, snap.Exists)
	tx.AssertEqual(store.Fields{"name": "San Francisco"}, snap.Data)

	status, body = post(t, hs, wire.PathQuery, "", wire.QueryRequest{Query: store.QueryDesc{
		Path:  "cities",
		Steps: []store.Step{{Kind: store.StepOrderBy, Field: "name", Direction: "asc"}},
	}})
	tx.AssertEqual(http.StatusOK, status)
	var qs wire.QuerySnapshot
	tx.AssertNoErr(json.Unmarshal(body, &qs))
	tx.AssertEqual(2, len(qs.Docs))
	tx.AssertEqual(store.EmptyFalse, qs.Store().Empty)
	tx.AssertEqual("Oslo", qs.Docs[0].Data["name"])

	status, _ = post(t, hs, wire.PathDelete, "", wire.DocRequest{Ref: ref})
	tx.AssertEqual(http.StatusOK, status)
	status, body = post(t, hs, wire.PathGet, "", wire.DocRequest{Ref: ref})
	tx.AssertEqual(http.StatusOK, status)
	tx.AssertNoErr(json.Unmarshal(body, &snap))
	tx.AssertEqual(false, snap.Exists)
}

func TestServerErrors(t *testing.T) {
	tx := testx.NewTx(t)
	_, hs := newTestServer(t, Options{})

	status, body := post(t, hs, wire.PathUpdate, "", wire.DocRequest{Ref: store.DocRef{Collection: "cities", ID: "nope"}, Data: store.Fields{"a": 1}})
	tx.AssertEqual(http.StatusNotFound, status)
	err := wire.DecodeError(status, body)
	tx.AssertEqual(store.CodeNotFound, store.CodeOf(err))

	status, _ = post(t, hs, wire.PathGet, "", wire.DocRequest{Ref: store.DocRef{Collection: "", ID: "x"}})
	tx.AssertEqual(http.StatusBadRequest, status)

	status, body = post(t, hs, wire.PathQuery, "", wire.QueryRequest{Query: store.QueryDesc{
		Path:  "cities",
		Steps: []store.Step{{Kind: store.StepStartAt, Value: "A"}, {Kind: store.StepOrderBy, Field: "name"}},
	}})
	tx.AssertEqual(http.StatusBadRequest, status)
	tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(wire.DecodeError(status, body)))

	resp, err := hs.Client().Post(hs.URL+wire.PathSet, "application/json", strings.NewReader("{not json"))
	tx.AssertNoErr(err)
	resp.Body.Close()
	tx.AssertEqual(http.StatusBadRequest, resp.StatusCode)
}

func TestServerAuthAndFunctions(t *testing.T) {
	tx := testx.NewTx(t)
	s, hs := newTestServer(t, Options{Token: "secret"})
	s.RegisterFunction("echo", func(ctx context.Context, args json.RawMessage) (any, error) {
		return args, nil
	})

	status, _ := post(t, hs, wire.PathFunction+"echo", "", map[string]int{"n": 1})
	tx.AssertEqual(http.StatusUnauthorized, status)
	status, _ = post(t, hs, wire.PathFunction+"echo", "wrong", map[string]int{"n": 1})
	tx.AssertEqual(http.StatusUnauthorized, status)

	status, body := post(t, hs, wire.PathFunction+"echo", "secret", map[string]int{"n": 1})
	tx.AssertEqual(http.StatusOK, status)
	tx.AssertEqual(`{"n":1}`, string(body))

	status, _ = post(t, hs, wire.PathFunction+"missing", "secret", nil)
	tx.AssertEqual(http.StatusNotFound, status)

	resp, err := hs.Client().Get(hs.URL + wire.PathHealth)
	tx.AssertNoErr(err)
	resp.Body.Close()
	tx.AssertEqual(http.StatusOK, resp.StatusCode)

	resp, err = hs.Client().Get(hs.URL + wire.PathMetrics)
	tx.AssertNoErr(err)
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	tx.AssertEqual(true, strings.Contains(string(metrics), "docfacade_http_requests_total"))
}

func dialListen(t *testing.T, hs *httptest.Server, req wire.ListenRequest) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(hs.URL, "http") + wire.PathListen
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	testx.AssertNoErr(t, err)
	t.Cleanup(func() { conn.Close() })
	testx.AssertNoErr(t, conn.WriteJSON(req))
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wire.ListenEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev wire.ListenEvent
	testx.AssertNoErr(t, conn.ReadJSON(&ev))
	return ev
}

func TestServerListen(t *testing.T) {
	tx := testx.NewTx(t)
	_, hs := newTestServer(t, Options{})
	ref := store.DocRef{Collection: "cities", ID: "LA"}

	docConn := dialListen(t, hs, wire.ListenRequest{Doc: &ref})
	ev := readEvent(t, docConn)
	tx.AssertEqual(wire.EventDoc, ev.Kind)
	tx.AssertEqual(false, ev.Doc.Exists)

	queryConn := dialListen(t, hs, wire.ListenRequest{Query: &store.QueryDesc{Path: "cities"}})
	ev = readEvent(t, queryConn)
	tx.AssertEqual(wire.EventQuery, ev.Kind)
	tx.AssertEqual(store.EmptyTrue, ev.Query.Store().Empty)

	status, _ := post(t, hs, wire.PathSet, "", wire.DocRequest{Ref: ref, Data: store.Fields{"name": "Los Angeles"}})
	tx.AssertEqual(http.StatusOK, status)

	ev = readEvent(t, docConn)
	tx.AssertEqual(true, ev.Doc.Exists)
	tx.AssertEqual("Los Angeles", ev.Doc.Data["name"])

	ev = readEvent(t, queryConn)
	tx.AssertEqual(1, len(ev.Query.Docs))
	tx.AssertEqual(store.EmptyFalse, ev.Query.Store().Empty)

	badConn := dialListen(t, hs, wire.ListenRequest{})
	ev = readEvent(t, badConn)
	tx.AssertEqual(wire.EventError, ev.Kind)
	tx.AssertEqual(store.CodeInvalidArgument, ev.Error.Code)

	errConn := dialListen(t, hs, wire.ListenRequest{Query: &store.QueryDesc{
		Path:  "cities",
		Steps: []store.Step{{Kind: store.StepWhere, Field: "name", Op: "in", Value: "x"}},
	}})
	ev = readEvent(t, errConn)
	tx.AssertEqual(wire.EventError, ev.Kind)
	tx.AssertEqual(store.CodeInvalidArgument, ev.Error.Code)
}
