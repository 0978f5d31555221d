// Package syncx has helpers for waiting on goroutines and contexts.
package syncx

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var ErrTimeout = fmt.Errorf("timeout")

// WaitTimeout waits for wg, but at most timeout.
func WaitTimeout(wg *sync.WaitGroup, timeout time.Duration) error {
	waitC := make(chan struct{})
	go func() {
		defer close(waitC)
		wg.Wait()
	}()
	select {
	case <-waitC:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

func IsContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// WaitCtx sleeps for timeout or until ctx is done. It reports false if ctx ended the wait.
func WaitCtx(ctx context.Context, timeout time.Duration) bool {
	if IsContextDone(ctx) {
		return false
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
