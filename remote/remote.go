// Package remote is a store.Backend talking to a docfacade server. It can keep a local
// sqlite cache which serves document reads while the server is unreachable.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/localstore"
	"github.com/mazzegi/docfacade/sqlitex"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/wire"
	"github.com/mazzegi/log"
)

const CacheFile = "cache.db"

type Options struct {
	// CacheDir holds the persistent cache. Without it persistence is unimplemented.
	CacheDir string
	// CacheDriver is the sqlite driver of the cache.
	CacheDriver sqlitex.Driver
	Token       string
	HTTPClient  *http.Client
}

var (
	_ store.Backend    = (*Store)(nil)
	_ functions.Caller = (*Store)(nil)
)

type Store struct {
	baseURL *url.URL
	opts    Options
	hc      *http.Client

	mx    sync.Mutex
	token string
	cache *localstore.Store
}

func New(baseURL string, opts Options) (*Store, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Store{
		baseURL: u,
		opts:    opts,
		hc:      hc,
		token:   opts.Token,
	}, nil
}

func (s *Store) currentToken() string {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.token
}

func (s *Store) currentCache() *localstore.Store {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.cache
}

// SignOut drops the token. Later requests to a server which requires one fail as
// unauthenticated.
func (s *Store) SignOut(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.token = ""
	log.Infof("remote: signed out from %s", s.baseURL)
	return nil
}

func (s *Store) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.cache == nil {
		return nil
	}
	err := s.cache.Close()
	s.cache = nil
	return err
}

func (s *Store) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL.String()+path, bytes.NewReader(body))
	if err != nil {
		return nil, store.Errorf(store.CodeInternal, "new request %s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := s.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, store.Errorf(store.CodeUnavailable, "post %s: %v", path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, store.Errorf(store.CodeUnavailable, "read response of %s: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, wire.DecodeError(resp.StatusCode, out)
	}
	return out, nil
}

func (s *Store) call(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return store.Errorf(store.CodeInvalidArgument, "encode request %s: %v", path, err)
	}
	resp, err := s.post(ctx, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return store.Errorf(store.CodeInternal, "decode response of %s: %v", path, err)
	}
	return nil
}

func (s *Store) RunQuery(ctx context.Context, q store.QueryDesc) (store.QuerySnapshot, error) {
	var qs wire.QuerySnapshot
	if err := s.call(ctx, wire.PathQuery, wire.QueryRequest{Query: q}, &qs); err != nil {
		return store.QuerySnapshot{}, err
	}
	return qs.Store(), nil
}

// GetDoc writes successful reads through to the cache, and answers from the cache while the
// server is unavailable.
func (s *Store) GetDoc(ctx context.Context, ref store.DocRef) (store.DocumentSnapshot, error) {
	var snap store.DocumentSnapshot
	err := s.call(ctx, wire.PathGet, wire.DocRequest{Ref: ref}, &snap)
	cache := s.currentCache()
	switch {
	case err == nil && cache != nil:
		s.writeThrough(ctx, cache, snap)
		return snap, nil
	case err == nil:
		return snap, nil
	case cache != nil && store.IsCode(err, store.CodeUnavailable):
		log.Warnf("remote: get %s from cache: %v", ref, err)
		return cache.GetDoc(ctx, ref)
	default:
		return store.DocumentSnapshot{}, err
	}
}

func (s *Store) writeThrough(ctx context.Context, cache *localstore.Store, snap store.DocumentSnapshot) {
	var err error
	if snap.Exists {
		err = cache.SetDoc(ctx, snap.Ref, snap.Data, false)
	} else {
		err = cache.DeleteDoc(ctx, snap.Ref)
	}
	if err != nil {
		log.Warnf("remote: cache %s: %v", snap.Ref, err)
	}
}

func (s *Store) AddDoc(ctx context.Context, collection string, data store.Fields) (store.DocRef, error) {
	var reply wire.AddReply
	if err := s.call(ctx, wire.PathAdd, wire.AddRequest{Collection: collection, Data: data}, &reply); err != nil {
		return store.DocRef{}, err
	}
	return reply.Ref, nil
}

func (s *Store) SetDoc(ctx context.Context, ref store.DocRef, data store.Fields, merge bool) error {
	return s.call(ctx, wire.PathSet, wire.DocRequest{Ref: ref, Data: data, Merge: merge}, nil)
}

func (s *Store) UpdateDoc(ctx context.Context, ref store.DocRef, data store.Fields) error {
	return s.call(ctx, wire.PathUpdate, wire.DocRequest{Ref: ref, Data: data}, nil)
}

func (s *Store) DeleteDoc(ctx context.Context, ref store.DocRef) error {
	if err := s.call(ctx, wire.PathDelete, wire.DocRequest{Ref: ref}, nil); err != nil {
		return err
	}
	if cache := s.currentCache(); cache != nil {
		if err := cache.DeleteDoc(ctx, ref); err != nil {
			log.Warnf("remote: uncache %s: %v", ref, err)
		}
	}
	return nil
}

func (s *Store) CallFunction(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	if len(args) == 0 {
		args = json.RawMessage("null")
	}
	res, err := s.post(ctx, wire.PathFunction+url.PathEscape(name), args)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(res), nil
}

// EnablePersistence opens the cache in CacheDir. The cache lock is shared between clients
// when tabs are synchronized, otherwise it is exclusive.
func (s *Store) EnablePersistence(ctx context.Context, settings store.PersistenceSettings) error {
	if s.opts.CacheDir == "" {
		return store.Errorf(store.CodeUnimplemented, "no cache dir configured")
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.cache != nil {
		return nil
	}
	if err := os.MkdirAll(s.opts.CacheDir, os.ModePerm); err != nil {
		return store.Errorf(store.CodeInternal, "mkdir cache dir %q: %v", s.opts.CacheDir, err)
	}
	cache, err := localstore.Open(filepath.Join(s.opts.CacheDir, CacheFile), localstore.Options{Driver: s.opts.CacheDriver})
	if err != nil {
		return store.Errorf(store.CodeInternal, "open cache: %v", err)
	}
	if err := cache.EnablePersistence(ctx, settings); err != nil {
		cache.Close()
		return err
	}
	s.cache = cache
	return nil
}
