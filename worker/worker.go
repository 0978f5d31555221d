// Package worker runs the file, function and session operations on a dedicated goroutine.
// Requests and replies cross into it only as JSON.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mazzegi/docfacade/files"
	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/syncx"
	"github.com/mazzegi/log"
)

const (
	MethodFileUpload     = "fileUpload"
	MethodGetDownloadURL = "getDownloadUrl"
	MethodDeleteFile     = "deleteFile"
	MethodCloudFunction  = "cloudFunction"
	MethodSignOut        = "signOut"
)

var ErrClosed = fmt.Errorf("worker-closed")

type SessionEnder interface {
	SignOut(ctx context.Context) error
}

// Handlers serve the worker methods. A nil Files or Functions makes the respective methods
// fail with unimplemented, a nil Session makes signOut a no-op.
type Handlers struct {
	Files     files.Bucket
	Functions functions.Caller
	Session   SessionEnder
}

type FileUploadArgs struct {
	Path        string `json:"path"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data"`
}

type PathArgs struct {
	Path string `json:"path"`
}

type URLReply struct {
	URL string `json:"url"`
}

type CloudFunctionArgs struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

type request struct {
	ctx    context.Context
	method string
	args   []byte
	replyC chan response
}

type response struct {
	data []byte
	err  []byte
}

type Worker struct {
	handlers Handlers
	reqC     chan request
	doneC    chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mx       sync.Mutex
	started  bool
	closed   bool
}

func New(handlers Handlers) *Worker {
	return &Worker{
		handlers: handlers,
		reqC:     make(chan request),
		doneC:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. It stops on Close or when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.mx.Lock()
	defer w.mx.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.stop()
		log.Debugf("worker: started")
		defer log.Debugf("worker: stopped")
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.doneC:
				return
			case req := <-w.reqC:
				req.replyC <- w.handle(req)
			}
		}
	}()
}

func (w *Worker) stop() {
	w.stopOnce.Do(func() {
		close(w.doneC)
	})
}

// Close stops the worker and waits for a running request to finish.
func (w *Worker) Close() error {
	w.mx.Lock()
	if w.closed {
		w.mx.Unlock()
		return nil
	}
	w.closed = true
	w.mx.Unlock()
	w.stop()
	if err := syncx.WaitTimeout(&w.wg, 5*time.Second); err != nil {
		return fmt.Errorf("worker close: %w", err)
	}
	return nil
}

// Call sends method with the JSON encoding of args to the worker and decodes its reply into
// reply, which may be nil. Calls block until Start was called.
func (w *Worker) Call(ctx context.Context, method string, args any, reply any) error {
	bs, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("json.marshal args of %q: %w", method, err)
	}
	req := request{
		ctx:    ctx,
		method: method,
		args:   bs,
		replyC: make(chan response, 1),
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.doneC:
		return ErrClosed
	case w.reqC <- req:
	}
	var resp response
	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp = <-req.replyC:
	}
	if resp.err != nil {
		var serr store.Error
		if err := json.Unmarshal(resp.err, &serr); err != nil {
			return fmt.Errorf("json.unmarshal error of %q: %w", method, err)
		}
		return &serr
	}
	if reply == nil {
		return nil
	}
	if err := json.Unmarshal(resp.data, reply); err != nil {
		return fmt.Errorf("json.unmarshal reply of %q: %w", method, err)
	}
	return nil
}

func (w *Worker) handle(req request) response {
	res, err := w.dispatch(req.ctx, req.method, req.args)
	if err != nil {
		log.Warnf("worker: %s: %v", req.method, err)
		return response{err: encodeError(err)}
	}
	data, err := json.Marshal(res)
	if err != nil {
		return response{err: encodeError(fmt.Errorf("json.marshal reply: %w", err))}
	}
	return response{data: data}
}

func encodeError(err error) []byte {
	code := store.CodeOf(err)
	switch {
	case errors.Is(err, files.ErrNotFound):
		code = store.CodeNotFound
	case errors.Is(err, files.ErrInvalidPath):
		code = store.CodeInvalidArgument
	}
	bs, _ := json.Marshal(store.Error{Code: code, Message: err.Error()})
	return bs
}

func decode[T any](args []byte) (T, error) {
	var t T
	if err := json.Unmarshal(args, &t); err != nil {
		return t, store.Errorf(store.CodeInvalidArgument, "decode args: %v", err)
	}
	return t, nil
}

func (w *Worker) dispatch(ctx context.Context, method string, args []byte) (any, error) {
	switch method {
	case MethodFileUpload:
		a, err := decode[FileUploadArgs](args)
		if err != nil {
			return nil, err
		}
		return w.fileUpload(ctx, a)
	case MethodGetDownloadURL:
		a, err := decode[PathArgs](args)
		if err != nil {
			return nil, err
		}
		return w.downloadURL(ctx, a)
	case MethodDeleteFile:
		a, err := decode[PathArgs](args)
		if err != nil {
			return nil, err
		}
		return struct{}{}, w.deleteFile(ctx, a)
	case MethodCloudFunction:
		a, err := decode[CloudFunctionArgs](args)
		if err != nil {
			return nil, err
		}
		return w.cloudFunction(ctx, a)
	case MethodSignOut:
		if w.handlers.Session == nil {
			return struct{}{}, nil
		}
		return struct{}{}, w.handlers.Session.SignOut(ctx)
	default:
		return nil, store.Errorf(store.CodeUnimplemented, "unknown method %q", method)
	}
}

func (w *Worker) bucket() (files.Bucket, error) {
	if w.handlers.Files == nil {
		return nil, store.Errorf(store.CodeUnimplemented, "no file bucket configured")
	}
	return w.handlers.Files, nil
}

func (w *Worker) fileUpload(ctx context.Context, a FileUploadArgs) (URLReply, error) {
	b, err := w.bucket()
	if err != nil {
		return URLReply{}, err
	}
	u, err := b.Upload(ctx, a.Path, bytes.NewReader(a.Data), a.ContentType)
	if err != nil {
		return URLReply{}, err
	}
	return URLReply{URL: u}, nil
}

func (w *Worker) downloadURL(ctx context.Context, a PathArgs) (URLReply, error) {
	b, err := w.bucket()
	if err != nil {
		return URLReply{}, err
	}
	u, err := b.DownloadURL(ctx, a.Path)
	if err != nil {
		return URLReply{}, err
	}
	return URLReply{URL: u}, nil
}

func (w *Worker) deleteFile(ctx context.Context, a PathArgs) error {
	b, err := w.bucket()
	if err != nil {
		return err
	}
	return b.Delete(ctx, a.Path)
}

func (w *Worker) cloudFunction(ctx context.Context, a CloudFunctionArgs) (json.RawMessage, error) {
	if w.handlers.Functions == nil {
		return nil, store.Errorf(store.CodeUnimplemented, "no functions configured")
	}
	if a.Name == "" {
		return nil, store.Errorf(store.CodeInvalidArgument, "empty function name")
	}
	res, err := w.handlers.Functions.CallFunction(ctx, a.Name, a.Data)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return json.RawMessage("null"), nil
	}
	return res, nil
}
