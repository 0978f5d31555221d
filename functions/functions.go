// Package functions is a registry of named remote procedures taking and returning JSON.
package functions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mazzegi/docfacade/maps"
	"github.com/mazzegi/docfacade/store"
)

// Func is a named procedure. Its result is encoded as JSON.
type Func func(ctx context.Context, args json.RawMessage) (any, error)

// Caller invokes a procedure by name, locally or across the wire.
type Caller interface {
	CallFunction(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

var _ Caller = (*Registry)(nil)

type Registry struct {
	mx    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{
		funcs: map[string]Func{},
	}
}

// Register adds or replaces the procedure name.
func (r *Registry) Register(name string, fn Func) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.funcs[name] = fn
}

func (r *Registry) Names() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return maps.OrderedKeys(r.funcs)
}

func (r *Registry) CallFunction(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mx.RLock()
	fn, ok := r.funcs[name]
	r.mx.RUnlock()
	if !ok {
		return nil, store.Errorf(store.CodeNotFound, "no such function %q", name)
	}
	res, err := fn(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("function %q: %w", name, err)
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("json.marshal result of %q: %w", name, err)
	}
	return raw, nil
}

// Decode unmarshals args into a T. Empty args yield the zero T.
func Decode[T any](args json.RawMessage) (T, error) {
	var t T
	if len(args) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(args, &t); err != nil {
		return t, store.Errorf(store.CodeInvalidArgument, "decode args: %v", err)
	}
	return t, nil
}
