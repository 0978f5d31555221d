package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/wire"
	"github.com/mazzegi/log"
	"github.com/oklog/ulid/v2"
)

const writeTimeout = 10 * time.Second

// handleListen upgrades to a websocket, reads one ListenRequest and streams ListenEvents until
// the client goes away or the listener fails.
func (s *Server) handleListen(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("server: listen upgrade: %v", err)
		return
	}
	defer conn.Close()
	id := ulid.Make().String()

	var req wire.ListenRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Warnf("server: listen %s: read request: %v", id, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// the client sends nothing after the request, reading only detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	switch {
	case req.Doc != nil && req.Query == nil:
		if err := req.Doc.Validate(); err != nil {
			s.writeEvent(conn, errorEvent(err))
			return
		}
		s.streamDoc(ctx, id, conn, *req.Doc)
	case req.Query != nil && req.Doc == nil:
		s.streamQuery(ctx, id, conn, *req.Query)
	default:
		s.writeEvent(conn, errorEvent(store.Errorf(store.CodeInvalidArgument, "listen request needs exactly one of doc and query")))
	}
}

func errorEvent(err error) wire.ListenEvent {
	return wire.ListenEvent{Kind: wire.EventError, Error: wire.Error(err)}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev wire.ListenEvent) error {
	s.metrics.events.WithLabelValues(string(ev.Kind)).Inc()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(ev)
}

func (s *Server) closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (s *Server) streamDoc(ctx context.Context, id string, conn *websocket.Conn, ref store.DocRef) {
	gauge := s.metrics.listeners.WithLabelValues(string(wire.EventDoc))
	gauge.Inc()
	defer gauge.Dec()
	log.Debugf("server: listen %s: doc %s", id, ref)
	defer log.Debugf("server: listen %s: closed", id)

	for ev := range s.backend.ListenDoc(ctx, ref) {
		out := wire.ListenEvent{Kind: wire.EventDoc, Doc: &ev.Snapshot}
		if ev.Err != nil {
			out = errorEvent(ev.Err)
		}
		if err := s.writeEvent(conn, out); err != nil {
			log.Warnf("server: listen %s: write: %v", id, err)
			return
		}
	}
	s.closeNormal(conn)
}

func (s *Server) streamQuery(ctx context.Context, id string, conn *websocket.Conn, q store.QueryDesc) {
	gauge := s.metrics.listeners.WithLabelValues(string(wire.EventQuery))
	gauge.Inc()
	defer gauge.Dec()
	log.Debugf("server: listen %s: query %q (%d steps)", id, q.Path, len(q.Steps))
	defer log.Debugf("server: listen %s: closed", id)

	for ev := range s.backend.ListenQuery(ctx, q) {
		var out wire.ListenEvent
		if ev.Err != nil {
			out = errorEvent(ev.Err)
		} else {
			qs := wire.FromQuerySnapshot(ev.Snapshot)
			out = wire.ListenEvent{Kind: wire.EventQuery, Query: &qs}
		}
		if err := s.writeEvent(conn, out); err != nil {
			log.Warnf("server: listen %s: write: %v", id, err)
			return
		}
	}
	s.closeNormal(conn)
}
