package errorx

import (
	"strings"
)

// Group collects errors of several independent steps, e.g. while closing resources.
type Group struct {
	errs []error
}

func NewGroup(errs ...error) *Group {
	g := &Group{}
	g.Append(errs...)
	return g
}

func (g *Group) Append(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		g.errs = append(g.errs, err)
	}
}

// Error returns nil for an empty group. The result matches every collected error with errors.Is.
func (g *Group) Error() error {
	if len(g.errs) == 0 {
		return nil
	}
	return &groupError{errs: g.errs}
}

func (g *Group) IsEmpty() bool {
	return len(g.errs) == 0
}

// Do runs fn only while the group is still empty.
func (g *Group) Do(fn func() error) {
	if len(g.errs) > 0 {
		return
	}
	g.Append(fn())
}

type groupError struct {
	errs []error
}

func (e *groupError) Error() string {
	sl := make([]string, len(e.errs))
	for i, err := range e.errs {
		sl[i] = err.Error()
	}
	return strings.Join(sl, " | ")
}

func (e *groupError) Unwrap() []error {
	return e.errs
}
