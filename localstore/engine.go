package localstore

import (
	"slices"

	"github.com/mazzegi/docfacade/jsonpath"
	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
)

type orderKey struct {
	field string
	dir   query.Direction
}

type plan struct {
	wheres  []store.Step
	orders  []orderKey
	startAt *store.Step
	endAt   *store.Step
	limit   int
}

func buildPlan(steps []store.Step) (plan, error) {
	var p plan
	for _, s := range steps {
		switch s.Kind {
		case store.StepOrderBy:
			if s.Field == "" {
				return plan{}, store.Errorf(store.CodeInvalidArgument, "orderBy without field")
			}
			dir, err := query.ParseDirection(string(s.Direction))
			if err != nil {
				return plan{}, store.Errorf(store.CodeInvalidArgument, "orderBy %q: %v", s.Field, err)
			}
			p.orders = append(p.orders, orderKey{field: s.Field, dir: dir})
		case store.StepStartAt, store.StepEndAt:
			if len(p.orders) == 0 {
				return plan{}, store.Errorf(store.CodeInvalidArgument, "%s() requires a preceding orderBy()", s.Kind)
			}
			step := s
			if s.Kind == store.StepStartAt {
				p.startAt = &step
			} else {
				p.endAt = &step
			}
		case store.StepLimit:
			if s.Limit < 0 {
				return plan{}, store.Errorf(store.CodeInvalidArgument, "negative limit %d", s.Limit)
			}
			p.limit = s.Limit
		case store.StepWhere:
			if s.Field == "" {
				return plan{}, store.Errorf(store.CodeInvalidArgument, "where without field")
			}
			// surfaces invalid operators and comparators independent of the data
			if _, err := store.Evaluate(s.Op, nil, s.Value); err != nil {
				return plan{}, err
			}
			p.wheres = append(p.wheres, s)
		default:
			return plan{}, store.Errorf(store.CodeInvalidArgument, "unknown query step %q", s.Kind)
		}
	}
	return p, nil
}

func (p plan) matches(doc store.DocumentSnapshot) (bool, error) {
	for _, w := range p.wheres {
		v, ok := jsonpath.Lookup(map[string]any(doc.Data), w.Field)
		if !ok {
			return false, nil
		}
		match, err := store.Evaluate(w.Op, v, w.Value)
		if err != nil {
			return false, err
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}

func (p plan) orderValues(doc store.DocumentSnapshot) ([]any, bool) {
	vs := make([]any, len(p.orders))
	for i, o := range p.orders {
		v, ok := jsonpath.Lookup(map[string]any(doc.Data), o.field)
		if !ok {
			return nil, false
		}
		vs[i] = v
	}
	return vs, true
}

func (p plan) inBounds(first any) bool {
	sign := 1
	if p.orders[0].dir == query.DESC {
		sign = -1
	}
	if p.startAt != nil && sign*store.Compare(first, p.startAt.Value) < 0 {
		return false
	}
	if p.endAt != nil && sign*store.Compare(first, p.endAt.Value) > 0 {
		return false
	}
	return true
}

// execute applies steps to docs, which are expected in document path order: filters,
// then ordering, then bounds on the first order field, then the limit.
func execute(docs []store.DocumentSnapshot, steps []store.Step) ([]store.DocumentSnapshot, error) {
	p, err := buildPlan(steps)
	if err != nil {
		return nil, err
	}

	type ordered struct {
		doc  store.DocumentSnapshot
		keys []any
	}
	var rs []ordered
	for _, doc := range docs {
		ok, err := p.matches(doc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		keys, ok := p.orderValues(doc)
		if !ok {
			continue
		}
		rs = append(rs, ordered{doc: doc, keys: keys})
	}

	slices.SortStableFunc(rs, func(a, b ordered) int {
		for i, o := range p.orders {
			c := store.Compare(a.keys[i], b.keys[i])
			if o.dir == query.DESC {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	out := []store.DocumentSnapshot{}
	for _, r := range rs {
		if len(p.orders) > 0 && !p.inBounds(r.keys[0]) {
			continue
		}
		out = append(out, r.doc)
		if p.limit > 0 && len(out) >= p.limit {
			break
		}
	}
	return out, nil
}
