// Package services combines the document database with the worker operations behind one
// caller owned value.
package services

import (
	"context"
	"encoding/json"

	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/errorx"
	"github.com/mazzegi/docfacade/worker"
)

// Services embeds the database surface. File, function and session calls go through the
// worker, with JSON encoded arguments and replies only.
type Services struct {
	*db.DB
	worker *worker.Worker
}

// New starts w. Close stops it and closes d.
func New(ctx context.Context, d *db.DB, w *worker.Worker) *Services {
	w.Start(ctx)
	return &Services{
		DB:     d,
		worker: w,
	}
}

func (s *Services) Close() error {
	g := errorx.NewGroup()
	g.Append(s.worker.Close())
	g.Append(s.DB.Close())
	return g.Error()
}

// FileUpload stores data under path and returns its download URL.
func (s *Services) FileUpload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	var reply worker.URLReply
	err := s.worker.Call(ctx, worker.MethodFileUpload, worker.FileUploadArgs{
		Path:        path,
		ContentType: contentType,
		Data:        data,
	}, &reply)
	return reply.URL, err
}

func (s *Services) GetDownloadURL(ctx context.Context, path string) (string, error) {
	var reply worker.URLReply
	err := s.worker.Call(ctx, worker.MethodGetDownloadURL, worker.PathArgs{Path: path}, &reply)
	return reply.URL, err
}

func (s *Services) DeleteFile(ctx context.Context, path string) error {
	return s.worker.Call(ctx, worker.MethodDeleteFile, worker.PathArgs{Path: path}, nil)
}

// CloudFunction calls the named procedure with the JSON encoding of args and decodes the
// result into reply, which may be nil.
func (s *Services) CloudFunction(ctx context.Context, name string, args any, reply any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return s.worker.Call(ctx, worker.MethodCloudFunction, worker.CloudFunctionArgs{
		Name: name,
		Data: data,
	}, reply)
}

func (s *Services) SignOut(ctx context.Context) error {
	return s.worker.Call(ctx, worker.MethodSignOut, struct{}{}, nil)
}
