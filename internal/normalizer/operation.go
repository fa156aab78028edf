package normalizer

import (
	language "github.com/hanpama/gqlengine/internal/language"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// Operation is a query document bound to a schema: one selected operation
// with typed variables and a merged field tree. It holds no request data and
// may be shared by concurrent executions.
type Operation struct {
	Type       language.Operation
	Name       string
	Variables  []*Variable
	Directives []*schema.DirectiveUsage
	RootType   *schema.Object
	Fields     *FieldSet
}

// Variable returns the declared variable with the given name.
func (o *Operation) Variable(name string) (*Variable, bool) {
	for _, v := range o.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

type Variable struct {
	Name string
	Type schema.Type
	// Default is the coerced default value, or nil when none is declared.
	Default    schema.Value
	Directives []*schema.DirectiveUsage
	Position   *language.Position
}

// Condition is a conjunction of @skip and @include usages. A field with
// several conditions is included when any of them passes.
type Condition []*schema.DirectiveUsage

// Field is one entry of a normalized selection set. Occurrences with the same
// response key, name, arguments and directives are merged into one Field.
type Field struct {
	Name  string
	Alias string
	// Definition is the field as declared on ParentType.
	Definition *schema.Field
	ParentType schema.Named
	// TypeCondition is the innermost fragment type condition the field was
	// selected under, or nil.
	TypeCondition schema.Named
	Type          schema.Type
	Arguments     *schema.ArgumentValues
	// Directives are the non-gating usages in document order.
	Directives []*schema.DirectiveUsage
	// Conditions gate the field. Empty means always included.
	Conditions []Condition
	// Children is nil for leaf fields.
	Children *FieldSet
	Position *language.Position

	possible map[string]bool
}

func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// AppliesTo reports whether the field is selected for a runtime object type.
func (f *Field) AppliesTo(obj *schema.Object) bool {
	return f.possible == nil || f.possible[obj.Name()]
}

// FieldSet is an ordered normalized selection set.
type FieldSet struct {
	fields []*Field
}

func (s *FieldSet) Fields() []*Field {
	if s == nil {
		return nil
	}
	return s.fields
}

func (s *FieldSet) Len() int { return len(s.Fields()) }

// ForObject returns the fields selected for a runtime object type in
// response order. At most one field per response key applies.
func (s *FieldSet) ForObject(obj *schema.Object) []*Field {
	out := make([]*Field, 0, s.Len())
	for _, f := range s.Fields() {
		if f.AppliesTo(obj) {
			out = append(out, f)
		}
	}
	return out
}

// add merges f into the set. Entries sharing a response key must either be
// mergeable or apply to disjoint runtime types.
func (s *FieldSet) add(f *Field) *Error {
	var target *Field
	for _, e := range s.fields {
		if e.ResponseKey() != f.ResponseKey() {
			continue
		}
		if mergeable(e, f) {
			target = e
			continue
		}
		if overlaps(e.possible, f.possible) {
			return errorf(FieldConflict, f.Position,
				"Fields %q conflict: %s and %s are different fields or have different arguments or directives",
				f.ResponseKey(), describe(e), describe(f))
		}
	}
	if target == nil {
		s.fields = append(s.fields, f)
		return nil
	}
	return target.merge(f)
}

func (e *Field) merge(f *Field) *Error {
	e.possible = union(e.possible, f.possible)
	if !sameConditions(e.Conditions, f.Conditions) {
		e.pushConditions()
		f.pushConditions()
		if len(e.Conditions) == 0 || len(f.Conditions) == 0 {
			e.Conditions = nil
		} else {
			e.Conditions = append(e.Conditions, f.Conditions...)
		}
	}
	for _, child := range f.Children.Fields() {
		if err := e.Children.add(child); err != nil {
			return err
		}
	}
	return nil
}

// pushConditions gates every direct child by the field's own conditions, so
// that widening the field's conditions in a merge keeps the children's
// inclusion unchanged.
func (f *Field) pushConditions() {
	if len(f.Conditions) == 0 {
		return
	}
	for _, c := range f.Children.Fields() {
		c.Conditions = andConditions(f.Conditions, c.Conditions)
	}
}

func andConditions(a, b []Condition) []Condition {
	if len(b) == 0 {
		return append([]Condition(nil), a...)
	}
	out := make([]Condition, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			group := make(Condition, 0, len(x)+len(y))
			group = append(group, x...)
			out = append(out, append(group, y...))
		}
	}
	return out
}

func mergeable(a, b *Field) bool {
	return a.Name == b.Name &&
		a.Arguments.IsSame(b.Arguments) &&
		sameUsages(a.Directives, b.Directives) &&
		sameShape(a.Type, b.Type)
}

// sameShape reports whether two output types produce the same response
// shape: identical wrappers around the same leaf type or around composites.
func sameShape(a, b schema.Type) bool {
	switch at := a.(type) {
	case *schema.NonNull:
		bt, ok := b.(*schema.NonNull)
		return ok && sameShape(at.OfType, bt.OfType)
	case *schema.List:
		bt, ok := b.(*schema.List)
		return ok && sameShape(at.OfType, bt.OfType)
	}
	if schema.IsLeafType(a) || schema.IsLeafType(b) {
		return schema.Equal(a, b)
	}
	return schema.IsCompositeType(a) && schema.IsCompositeType(b)
}

func sameUsages(a, b []*schema.DirectiveUsage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Directive.Name != b[i].Directive.Name || !a[i].Arguments.IsSame(b[i].Arguments) {
			return false
		}
	}
	return true
}

func sameConditions(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameUsages(a[i], b[i]) {
			return false
		}
	}
	return true
}

func overlaps(a, b map[string]bool) bool {
	if a == nil || b == nil {
		return true
	}
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

func union(a, b map[string]bool) map[string]bool {
	if a == nil || b == nil {
		return nil
	}
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func describe(f *Field) string {
	if f.ParentType != nil {
		return f.ParentType.Name() + "." + f.Name
	}
	return f.Name
}
