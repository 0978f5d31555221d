// Package query holds the declarative description of a read request against a document
// collection: ordering, range bounds, result limit and conjunctive filters.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidRequestShape = fmt.Errorf("invalid-request-shape")

type Op string

const (
	OpEqual            Op = "=="
	OpNotEqual         Op = "!="
	OpLess             Op = "<"
	OpLessEqual        Op = "<="
	OpGreater          Op = ">"
	OpGreaterEqual     Op = ">="
	OpArrayContains    Op = "array-contains"
	OpArrayContainsAny Op = "array-contains-any"
	OpIn               Op = "in"
	OpNotIn            Op = "not-in"
)

var allOps = []Op{
	OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
	OpArrayContains, OpArrayContainsAny, OpIn, OpNotIn,
}

// Valid reports whether op is one of the known comparison operators. The query layer never
// rejects unknown operators itself, the store does.
func (op Op) Valid() bool {
	return slices.Contains(allOps, op)
}

type Direction string

const (
	ASC  Direction = "asc"
	DESC Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", ASC:
		return ASC, nil
	case DESC:
		return DESC, nil
	default:
		return "", errors.Join(ErrInvalidRequestShape, fmt.Errorf("invalid direction %q", s))
	}
}

// OrderBy names the ordering field either directly (Field) or through the alias key (Prop).
type OrderBy struct {
	Field     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Prop      string    `json:"prop,omitempty" yaml:"prop,omitempty"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

func By(field string, dir Direction) *OrderBy {
	return &OrderBy{Field: field, Direction: dir}
}

func ByProp(prop string, dir Direction) *OrderBy {
	return &OrderBy{Prop: prop, Direction: dir}
}

func (o OrderBy) ResolveField() (string, error) {
	switch {
	case o.Field != "" && o.Prop != "":
		return "", errors.Join(ErrInvalidRequestShape, fmt.Errorf("order-by has both name %q and prop %q", o.Field, o.Prop))
	case o.Field != "":
		return o.Field, nil
	case o.Prop != "":
		return o.Prop, nil
	default:
		return "", errors.Join(ErrInvalidRequestShape, fmt.Errorf("order-by names no field"))
	}
}

func (o OrderBy) ResolveDirection() (Direction, error) {
	return ParseDirection(string(o.Direction))
}

// Spec is a declarative read request. StartAt and EndAt are absent when nil; Limit 0 means
// no limit.
type Spec struct {
	Collection string   `json:"coll" yaml:"coll"`
	OrderBy    *OrderBy `json:"orderBy,omitempty" yaml:"orderBy,omitempty"`
	StartAt    any      `json:"startAt,omitempty" yaml:"startAt,omitempty"`
	EndAt      any      `json:"endAt,omitempty" yaml:"endAt,omitempty"`
	Limit      int      `json:"limit,omitempty" yaml:"limit,omitempty"`
}

func (s Spec) HasBounds() bool {
	return s.StartAt != nil || s.EndAt != nil
}

// Validate checks s against a collection path.
func (s Spec) Validate() error {
	if err := ValidateCollectionPath(s.Collection); err != nil {
		return err
	}
	return s.validateOptions()
}

// ValidateGroup checks s against a collection id, as used by collection-group queries.
func (s Spec) ValidateGroup() error {
	if s.Collection == "" || strings.Contains(s.Collection, "/") {
		return errors.Join(ErrInvalidRequestShape, fmt.Errorf("invalid collection id %q", s.Collection))
	}
	return s.validateOptions()
}

func (s Spec) validateOptions() error {
	if s.OrderBy != nil {
		if _, err := s.OrderBy.ResolveField(); err != nil {
			return err
		}
		if _, err := s.OrderBy.ResolveDirection(); err != nil {
			return err
		}
	}
	if s.OrderBy == nil && s.HasBounds() {
		return errors.Join(ErrInvalidRequestShape, fmt.Errorf("startAt/endAt on %q require an orderBy", s.Collection))
	}
	if s.Limit < 0 {
		return errors.Join(ErrInvalidRequestShape, fmt.Errorf("negative limit %d", s.Limit))
	}
	return nil
}

// ValidateCollectionPath accepts "coll" and nested paths like "coll/doc/subcoll".
func ValidateCollectionPath(path string) error {
	if path == "" {
		return errors.Join(ErrInvalidRequestShape, fmt.Errorf("empty collection"))
	}
	segs := strings.Split(path, "/")
	if slices.Contains(segs, "") {
		return errors.Join(ErrInvalidRequestShape, fmt.Errorf("collection %q has an empty segment", path))
	}
	if len(segs)%2 != 1 {
		return errors.Join(ErrInvalidRequestShape, fmt.Errorf("%q is a document path, not a collection", path))
	}
	return nil
}

type Clause struct {
	Field      string `json:"field" yaml:"field"`
	Op         Op     `json:"operator" yaml:"operator"`
	Comparator any    `json:"comparator" yaml:"comparator"`
}

func C(field string, op Op, comparator any) Clause {
	return Clause{
		Field:      field,
		Op:         op,
		Comparator: comparator,
	}
}

func (c Clause) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Comparator)
}

// FilterSet is an ordered sequence of clauses which are ANDed together.
type FilterSet []Clause

func One(c Clause) FilterSet {
	return FilterSet{c}
}

func All(cs ...Clause) FilterSet {
	return FilterSet(slices.Clone(cs))
}

// UnmarshalJSON accepts a single clause object as well as an array of clauses.
func (fs *FilterSet) UnmarshalJSON(data []byte) error {
	var cs []Clause
	if err := json.Unmarshal(data, &cs); err == nil {
		*fs = cs
		return nil
	}
	var c Clause
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("json.unmarshal filter-set: %w", err)
	}
	*fs = FilterSet{c}
	return nil
}

// UnmarshalYAML accepts a single clause mapping as well as a sequence of clauses.
func (fs *FilterSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var cs []Clause
		if err := node.Decode(&cs); err != nil {
			return fmt.Errorf("yaml.decode filter-set: %w", err)
		}
		*fs = cs
	case yaml.MappingNode:
		var c Clause
		if err := node.Decode(&c); err != nil {
			return fmt.Errorf("yaml.decode filter-clause: %w", err)
		}
		*fs = FilterSet{c}
	default:
		return fmt.Errorf("filter-set: unexpected yaml node kind %d", node.Kind)
	}
	return nil
}
