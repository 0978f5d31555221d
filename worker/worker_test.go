package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mazzegi/docfacade/files"
	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/testx"
)

type session struct {
	signedOut int
}

func (s *session) SignOut(ctx context.Context) error {
	s.signedOut++
	return nil
}

func newTestWorker(t *testing.T) (*Worker, *session) {
	t.Helper()
	bucket, err := files.NewFS(t.TempDir(), "http://files.test")
	testx.AssertNoErr(t, err)
	reg := functions.NewRegistry()
	reg.Register("sum", func(ctx context.Context, args json.RawMessage) (any, error) {
		ns, err := functions.Decode[[]float64](args)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, n := range ns {
			sum += n
		}
		return sum, nil
	})
	sess := &session{}
	w := New(Handlers{Files: bucket, Functions: reg, Session: sess})
	w.Start(context.Background())
	t.Cleanup(func() { w.Close() })
	return w, sess
}

func TestWorkerFiles(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	w, _ := newTestWorker(t)

	var up URLReply
	err := w.Call(ctx, MethodFileUpload, FileUploadArgs{Path: "docs/a.txt", ContentType: "text/plain", Data: []byte("hello")}, &up)
	tx.AssertNoErr(err)
	tx.AssertEqual("http://files.test/docs/a.txt", up.URL)

	var down URLReply
	tx.AssertNoErr(w.Call(ctx, MethodGetDownloadURL, PathArgs{Path: "docs/a.txt"}, &down))
	tx.AssertEqual(up.URL, down.URL)

	tx.AssertNoErr(w.Call(ctx, MethodDeleteFile, PathArgs{Path: "docs/a.txt"}, nil))
	err = w.Call(ctx, MethodGetDownloadURL, PathArgs{Path: "docs/a.txt"}, &down)
	tx.AssertEqual(store.CodeNotFound, store.CodeOf(err))

	err = w.Call(ctx, MethodDeleteFile, PathArgs{Path: "../x"}, nil)
	tx.AssertEqual(store.CodeInvalidArgument, store.CodeOf(err))
}

func TestWorkerFunctionsAndSession(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	w, sess := newTestWorker(t)

	var sum float64
	err := w.Call(ctx, MethodCloudFunction, CloudFunctionArgs{Name: "sum", Data: json.RawMessage(`[1,2,3.5]`)}, &sum)
	tx.AssertNoErr(err)
	tx.AssertEqual(6.5, sum)

	err = w.Call(ctx, MethodCloudFunction, CloudFunctionArgs{Name: "missing"}, nil)
	tx.AssertEqual(store.CodeNotFound, store.CodeOf(err))

	tx.AssertNoErr(w.Call(ctx, MethodSignOut, struct{}{}, nil))
	tx.AssertEqual(1, sess.signedOut)

	err = w.Call(ctx, "formatDisk", struct{}{}, nil)
	tx.AssertEqual(store.CodeUnimplemented, store.CodeOf(err))
}

func TestWorkerUnconfigured(t *testing.T) {
	tx := testx.NewTx(t)
	ctx := context.Background()
	w := New(Handlers{})
	w.Start(ctx)

	err := w.Call(ctx, MethodFileUpload, FileUploadArgs{Path: "a"}, nil)
	tx.AssertEqual(store.CodeUnimplemented, store.CodeOf(err))
	tx.AssertNoErr(w.Call(ctx, MethodSignOut, nil, nil))

	tx.AssertNoErr(w.Close())
	tx.AssertNoErr(w.Close())
	err = w.Call(ctx, MethodSignOut, nil, nil)
	tx.AssertEqual(true, errors.Is(err, ErrClosed))
}
