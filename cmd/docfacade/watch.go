package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/services"
	"github.com/spf13/cobra"
)

func (a *app) watchCmd() *cobra.Command {
	var sf specFlags
	var count int
	cmd := &cobra.Command{
		Use:   "watch <coll> [doc]",
		Short: "Print a document or a collection whenever it changes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := sf.spec(cmd, args[0])
			req := db.SubscribeRequest{
				Collection: spec.Collection,
				OrderBy:    spec.OrderBy,
				StartAt:    spec.StartAt,
				EndAt:      spec.EndAt,
				Limit:      spec.Limit,
			}
			if len(args) == 2 {
				req.Doc = args[1]
			}
			return a.withDB(cmd.Context(), func(s *services.Services) error {
				return a.watch(cmd, s.DB, req, count)
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many snapshots, 0 to watch until interrupted")
	return cmd
}

// snapshotFeed hands subscription callbacks over to the watch loop. Once stopped, or when
// ctx is done, callbacks drop their value instead of blocking the dispatch goroutine.
type snapshotFeed struct {
	ctx   context.Context
	resC  chan db.Result
	errC  chan error
	done  chan struct{}
	once  sync.Once
}

func newSnapshotFeed(ctx context.Context) *snapshotFeed {
	return &snapshotFeed{
		ctx:  ctx,
		resC: make(chan db.Result),
		errC: make(chan error),
		done: make(chan struct{}),
	}
}

func (f *snapshotFeed) onData(r db.Result) {
	select {
	case f.resC <- r:
	case <-f.done:
	case <-f.ctx.Done():
	}
}

func (f *snapshotFeed) onError(err error) {
	select {
	case f.errC <- err:
	case <-f.done:
	case <-f.ctx.Done():
	}
}

func (f *snapshotFeed) stop() {
	f.once.Do(func() { close(f.done) })
}

// watch prints snapshots until count were printed, the subscription failed for good or the
// command is interrupted.
func (a *app) watch(cmd *cobra.Command, d *db.DB, req db.SubscribeRequest, count int) error {
	ctx := cmd.Context()
	feed := newSnapshotFeed(ctx)
	defer feed.stop()
	cancel, err := d.Subscribe(req, feed.onData, feed.onError)
	if err != nil {
		return err
	}
	defer cancel()

	var n int
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-feed.errC:
			fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
			// store failures end the subscription, a missing document does not
			var serr *db.StoreExecutionError
			if errors.As(err, &serr) {
				return err
			}
		case r := <-feed.resC:
			n++
			fmt.Fprintf(a.out, "--- # %s %d\n", r.Kind, n)
			var v any = r.Docs
			if r.Kind == db.SingleDocument {
				v = r.Doc
			}
			if err := printYAML(a.out, v); err != nil {
				return err
			}
			if count > 0 && n >= count {
				return nil
			}
		}
	}
}
