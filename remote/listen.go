package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/wire"
	"github.com/mazzegi/log"
)

func (s *Store) listenURL() string {
	u := *s.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return strings.TrimSuffix(u.String(), "/") + wire.PathListen
}

// stream dials the listen socket, sends req and hands every event to handle until handle
// returns false, the socket fails or ctx is done. Failures, except those caused by ctx, are
// reported through fail.
func (s *Store) stream(ctx context.Context, req wire.ListenRequest, handle func(wire.ListenEvent) bool, fail func(error)) {
	header := http.Header{}
	if token := s.currentToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.listenURL(), header)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			fail(store.Errorf(store.CodeUnauthenticated, "listen: %v", err))
			return
		}
		fail(store.Errorf(store.CodeUnavailable, "dial listen: %v", err))
		return
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		if ctx.Err() == nil {
			fail(store.Errorf(store.CodeUnavailable, "send listen request: %v", err))
		}
		return
	}
	for {
		var ev wire.ListenEvent
		err := conn.ReadJSON(&ev)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			var cerr *websocket.CloseError
			if errors.As(err, &cerr) {
				fail(store.Errorf(store.CodeUnavailable, "listen stream closed by server: %v", cerr))
			} else {
				fail(store.Errorf(store.CodeUnavailable, "read listen event: %v", err))
			}
			return
		case ev.Kind == wire.EventError:
			serr := ev.Error
			if serr == nil {
				serr = &store.Error{Code: store.CodeInternal, Message: "listen error without details"}
			}
			fail(serr)
			return
		}
		if !handle(ev) {
			return
		}
	}
}

func (s *Store) ListenDoc(ctx context.Context, ref store.DocRef) <-chan store.DocEvent {
	ch := make(chan store.DocEvent)
	send := func(ev store.DocEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(ch)
		log.Debugf("remote: listen doc %s", ref)
		s.stream(ctx, wire.ListenRequest{Doc: &ref},
			func(ev wire.ListenEvent) bool {
				if ev.Kind != wire.EventDoc || ev.Doc == nil {
					send(store.DocEvent{Err: store.Errorf(store.CodeInternal, "unexpected %q event on doc listener", ev.Kind)})
					return false
				}
				return send(store.DocEvent{Snapshot: *ev.Doc})
			},
			func(err error) { send(store.DocEvent{Err: err}) })
	}()
	return ch
}

func (s *Store) ListenQuery(ctx context.Context, q store.QueryDesc) <-chan store.QueryEvent {
	ch := make(chan store.QueryEvent)
	send := func(ev store.QueryEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(ch)
		log.Debugf("remote: listen query %q", q.Path)
		s.stream(ctx, wire.ListenRequest{Query: &q},
			func(ev wire.ListenEvent) bool {
				if ev.Kind != wire.EventQuery || ev.Query == nil {
					send(store.QueryEvent{Err: store.Errorf(store.CodeInternal, "unexpected %q event on query listener", ev.Kind)})
					return false
				}
				return send(store.QueryEvent{Snapshot: ev.Query.Store()})
			},
			func(err error) { send(store.QueryEvent{Err: err}) })
	}()
	return ch
}
