// Package server exposes a store.Backend over HTTP with gin, and its listeners over
// websockets.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/wire"
	"github.com/mazzegi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	// Token, when set, is required as bearer token on all /v1 routes.
	Token string
	// FilesDir is served below /files when set.
	FilesDir string
}

type Server struct {
	opts      Options
	backend   store.Backend
	functions *functions.Registry
	registry  *prometheus.Registry
	metrics   *metrics
	upgrader  websocket.Upgrader
	router    *gin.Engine
}

func New(backend store.Backend, funcs *functions.Registry, opts Options) *Server {
	if funcs == nil {
		funcs = functions.NewRegistry()
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		opts:      opts,
		backend:   backend,
		functions: funcs,
		registry:  reg,
		metrics:   newMetrics(reg),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// RegisterFunction makes fn callable under /v1/functions/<name>.
func (s *Server) RegisterFunction(name string, fn functions.Func) {
	s.functions.Register(name, fn)
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.observe())

	r.GET(wire.PathHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(wire.PathMetrics, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	if s.opts.FilesDir != "" {
		r.Static("/files", s.opts.FilesDir)
	}

	v1 := r.Group("/v1")
	v1.Use(s.authenticate())
	v1.POST(strings.TrimPrefix(wire.PathAdd, "/v1"), s.handleAdd)
	v1.POST(strings.TrimPrefix(wire.PathGet, "/v1"), s.handleGet)
	v1.POST(strings.TrimPrefix(wire.PathSet, "/v1"), s.handleSet)
	v1.POST(strings.TrimPrefix(wire.PathUpdate, "/v1"), s.handleUpdate)
	v1.POST(strings.TrimPrefix(wire.PathDelete, "/v1"), s.handleDelete)
	v1.POST(strings.TrimPrefix(wire.PathQuery, "/v1"), s.handleQuery)
	v1.GET(strings.TrimPrefix(wire.PathListen, "/v1"), s.handleListen)
	v1.POST(strings.TrimPrefix(wire.PathFunction, "/v1")+":name", s.handleFunction)
	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	errC := make(chan error, 1)
	go func() {
		log.Infof("server: listening on %q", addr)
		errC <- hs.ListenAndServe()
	}()
	select {
	case err := <-errC:
		return fmt.Errorf("listen-and-serve: %w", err)
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errC; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen-and-serve: %w", err)
	}
	log.Infof("server: stopped")
	return nil
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		s.metrics.duration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		log.Infof("server: %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond))
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.Token == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) != 1 {
			abort(c, store.Errorf(store.CodeUnauthenticated, "missing or invalid token"))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	werr := wire.Error(err)
	c.AbortWithStatusJSON(wire.StatusOf(werr.Code), werr)
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abort(c, store.Errorf(store.CodeInvalidArgument, "decode request: %v", err))
		return false
	}
	return true
}
