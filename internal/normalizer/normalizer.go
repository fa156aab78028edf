// Package normalizer binds a parsed query document to a schema. The result is
// an Operation whose fields, arguments and directives are resolved and typed,
// with fragments expanded and same-key selections merged.
//
// Normalization is all-or-nothing: the first problem found is returned as an
// *Error and no Operation is produced.
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	language "github.com/hanpama/gqlengine/internal/language"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

type Option func(*normalizer)

// WithIntrospection controls whether __schema and __type may be selected on
// the query root. It is enabled by default.
func WithIntrospection(enabled bool) Option {
	return func(n *normalizer) { n.introspection = enabled }
}

type normalizer struct {
	schema        *schema.Schema
	doc           *language.QueryDocument
	introspection bool
	variables     map[string]*Variable
}

// Normalize selects an operation from doc and binds it to sch.
func Normalize(sch *schema.Schema, doc *language.QueryDocument, operationName string, opts ...Option) (*Operation, error) {
	n := &normalizer{schema: sch, doc: doc, introspection: true, variables: map[string]*Variable{}}
	for _, opt := range opts {
		opt(n)
	}
	op, err := n.normalize(operationName)
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (n *normalizer) normalize(operationName string) (*Operation, *Error) {
	def, err := n.selectOperation(operationName)
	if err != nil {
		return nil, err
	}
	root := n.schema.RootType(def.Operation)
	if root == nil {
		return nil, errorf(UnknownRootType, def.Position, "Schema does not define a %s root type", def.Operation)
	}
	if err := n.checkFragmentCycles(); err != nil {
		return nil, err
	}

	op := &Operation{Type: def.Operation, Name: def.Name, RootType: root}
	for _, vd := range def.VariableDefinitions {
		v, err := n.bindVariable(vd)
		if err != nil {
			return nil, err
		}
		op.Variables = append(op.Variables, v)
	}

	usages, gating, err := n.bindDirectives(def.Directives, operationLocation(def.Operation), schema.UsageSite{Location: operationLocation(def.Operation), Owner: "operation " + def.Name})
	if err != nil {
		return nil, err
	}
	op.Directives = append(usages, gating...)

	fields, err := n.fieldSet(root, def.SelectionSet)
	if err != nil {
		return nil, err
	}
	op.Fields = fields
	return op, nil
}

func (n *normalizer) selectOperation(name string) (*language.OperationDefinition, *Error) {
	if name == "" {
		switch len(n.doc.Operations) {
		case 0:
			return nil, errorf(UnknownOperation, nil, "Document does not contain any operation")
		case 1:
			return n.doc.Operations[0], nil
		default:
			return nil, errorf(AmbiguousOperation, nil, "Document contains %d operations; an operation name is required", len(n.doc.Operations))
		}
	}
	var found *language.OperationDefinition
	for _, op := range n.doc.Operations {
		if op.Name != name {
			continue
		}
		if found != nil {
			return nil, errorf(AmbiguousOperation, op.Position, "Document contains more than one operation named %q", name)
		}
		found = op
	}
	if found == nil {
		return nil, errorf(UnknownOperation, nil, "Unknown operation %q", name)
	}
	return found, nil
}

func operationLocation(op language.Operation) schema.DirectiveLocation {
	switch op {
	case language.Mutation:
		return schema.LocationMutation
	case language.Subscription:
		return schema.LocationSubscription
	default:
		return schema.LocationQuery
	}
}

// checkFragmentCycles rejects fragments that spread themselves, directly or
// through other fragments.
func (n *normalizer) checkFragmentCycles() *Error {
	const (
		visiting = 1
		done     = 2
	)
	state := map[string]int{}
	var visit func(f *language.FragmentDefinition, chain []string) *Error
	visit = func(f *language.FragmentDefinition, chain []string) *Error {
		switch state[f.Name] {
		case visiting:
			return errorf(FragmentCycle, f.Position, "Cannot spread fragment %q within itself via %s", f.Name, strings.Join(append(chain, f.Name), " -> "))
		case done:
			return nil
		}
		state[f.Name] = visiting
		for _, spread := range spreadsOf(f.SelectionSet) {
			next := n.doc.Fragments.ForName(spread.Name)
			if next == nil {
				continue
			}
			if err := visit(next, append(chain, f.Name)); err != nil {
				return err
			}
		}
		state[f.Name] = done
		return nil
	}
	for _, f := range n.doc.Fragments {
		if err := visit(f, nil); err != nil {
			return err
		}
	}
	return nil
}

func spreadsOf(set language.SelectionSet) []*language.FragmentSpread {
	var out []*language.FragmentSpread
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			out = append(out, spreadsOf(s.SelectionSet)...)
		case *language.InlineFragment:
			out = append(out, spreadsOf(s.SelectionSet)...)
		case *language.FragmentSpread:
			out = append(out, s)
		}
	}
	return out
}

func (n *normalizer) bindVariable(vd *language.VariableDefinition) (*Variable, *Error) {
	if _, dup := n.variables[vd.Variable]; dup {
		return nil, errorf(DuplicateVariable, vd.Position, "There can be only one variable named $%s", vd.Variable)
	}
	t, err := n.schema.TypeOf(schema.TypeRefFromAST(vd.Type))
	if err != nil {
		return nil, errorf(UnknownType, vd.Position, "Variable $%s has unknown type %s", vd.Variable, vd.Type.String())
	}
	if !schema.IsInputType(t) {
		return nil, errorf(VariableTypeInputable, vd.Position, "Variable $%s cannot be of non-input type %s", vd.Variable, t)
	}
	v := &Variable{Name: vd.Variable, Type: t, Position: vd.Position}
	if vd.DefaultValue != nil {
		raw, err := schema.RawFromAST(vd.DefaultValue, nil)
		if err != nil {
			return nil, wrap(Coercion, vd.DefaultValue.Position, err)
		}
		def, err := n.schema.CoerceAt(raw, t, schema.Path{"$" + vd.Variable})
		if err != nil {
			return nil, wrap(Coercion, vd.DefaultValue.Position, err)
		}
		v.Default = def
	}
	usages, gating, derr := n.bindDirectives(vd.Directives, schema.LocationVariableDefinition, schema.UsageSite{
		Location: schema.LocationVariableDefinition,
		Owner:    "variable $" + vd.Variable,
		Type:     t,
	})
	if derr != nil {
		return nil, derr
	}
	v.Directives = append(usages, gating...)
	n.variables[vd.Variable] = v
	return v, nil
}

// scope is the type context of a selection set while fragments are expanded.
type scope struct {
	// parent is the type the field set belongs to.
	parent schema.Named
	// current is the narrowest type condition in effect.
	current   schema.Named
	condition schema.Named
	possible  map[string]bool
	gating    Condition
}

func (n *normalizer) fieldSet(parent schema.Named, set language.SelectionSet) (*FieldSet, *Error) {
	out := &FieldSet{}
	if err := n.collect(out, scope{parent: parent, current: parent}, set); err != nil {
		return nil, err
	}
	return out, nil
}

func (n *normalizer) collect(out *FieldSet, sc scope, set language.SelectionSet) *Error {
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			f, err := n.field(sc, s)
			if err != nil {
				return err
			}
			if err := out.add(f); err != nil {
				return err
			}
		case *language.InlineFragment:
			inner, err := n.narrow(sc, s.TypeCondition, s.Position)
			if err != nil {
				return err
			}
			gating, err := n.fragmentGating(s.Directives, schema.LocationInlineFragment, "inline fragment")
			if err != nil {
				return err
			}
			inner.gating = appendCondition(sc.gating, gating)
			if err := n.collect(out, inner, s.SelectionSet); err != nil {
				return err
			}
		case *language.FragmentSpread:
			frag := n.doc.Fragments.ForName(s.Name)
			if frag == nil {
				return errorf(UnknownFragment, s.Position, "Unknown fragment %q", s.Name)
			}
			inner, err := n.narrow(sc, frag.TypeCondition, frag.Position)
			if err != nil {
				return err
			}
			if _, _, err := n.bindDirectives(frag.Directives, schema.LocationFragmentDefinition, schema.UsageSite{
				Location: schema.LocationFragmentDefinition,
				Owner:    "fragment " + frag.Name,
			}); err != nil {
				return err
			}
			gating, err := n.fragmentGating(s.Directives, schema.LocationFragmentSpread, "fragment spread ..."+s.Name)
			if err != nil {
				return err
			}
			inner.gating = appendCondition(sc.gating, gating)
			if err := n.collect(out, inner, frag.SelectionSet); err != nil {
				return err
			}
		}
	}
	return nil
}

// narrow enters a fragment with the given type condition. The condition must
// name a composite type sharing at least one possible object type with the
// current scope.
func (n *normalizer) narrow(sc scope, typeCondition string, pos *language.Position) (scope, *Error) {
	if typeCondition == "" {
		return sc, nil
	}
	t, ok := n.schema.ResolveType(typeCondition)
	if !ok {
		return sc, errorf(UnknownType, pos, "Unknown type %q in fragment type condition", typeCondition)
	}
	if !schema.IsCompositeType(t) {
		return sc, errorf(FragmentOnNonComposite, pos, "Fragment cannot condition on non composite type %q", typeCondition)
	}
	current := sc.possible
	if current == nil {
		current = n.possibleSet(sc.parent)
	}
	next := map[string]bool{}
	for _, obj := range n.schema.PossibleTypes(t) {
		if current[obj.Name()] {
			next[obj.Name()] = true
		}
	}
	if len(next) == 0 {
		return sc, errorf(FragmentTypeMismatch, pos, "Fragment on %q can never apply to type %q", typeCondition, sc.current.Name())
	}
	return scope{parent: sc.parent, current: t, condition: t, possible: next, gating: sc.gating}, nil
}

func (n *normalizer) possibleSet(t schema.Named) map[string]bool {
	out := map[string]bool{}
	for _, obj := range n.schema.PossibleTypes(t) {
		out[obj.Name()] = true
	}
	return out
}

// fragmentGating binds the directives of a fragment spread or inline fragment
// and returns its @skip/@include usages.
func (n *normalizer) fragmentGating(dirs language.DirectiveList, loc schema.DirectiveLocation, owner string) (Condition, *Error) {
	_, gating, err := n.bindDirectives(dirs, loc, schema.UsageSite{Location: loc, Owner: owner})
	return gating, err
}

func appendCondition(outer, inner Condition) Condition {
	if len(inner) == 0 {
		return outer
	}
	out := make(Condition, 0, len(outer)+len(inner))
	out = append(out, outer...)
	return append(out, inner...)
}

func (n *normalizer) field(sc scope, node *language.Field) (*Field, *Error) {
	def, err := n.fieldDefinition(sc, node)
	if err != nil {
		return nil, err
	}
	t, terr := n.schema.TypeOf(def.Type)
	if terr != nil {
		return nil, wrap(UnknownType, node.Position, terr)
	}
	f := &Field{
		Name:          node.Name,
		Definition:    def,
		ParentType:    sc.current,
		TypeCondition: sc.condition,
		Type:          t,
		Position:      node.Position,
		possible:      sc.possible,
	}
	if node.Alias != "" && node.Alias != node.Name {
		f.Alias = node.Alias
	}
	owner := "field " + sc.current.Name() + "." + node.Name

	raw, err := n.rawArguments(node.Arguments)
	if err != nil {
		return nil, err
	}
	args, cerr := n.schema.CoerceArguments(def.Arguments, raw, schema.Path{node.Name})
	if cerr != nil {
		return nil, n.coercionError(node.Position, cerr)
	}
	f.Arguments = args

	usages, gating, err := n.bindDirectives(node.Directives, schema.LocationField, schema.UsageSite{
		Location: schema.LocationField,
		Owner:    owner,
		Type:     t,
	})
	if err != nil {
		return nil, err
	}
	f.Directives = usages
	if group := appendCondition(sc.gating, gating); len(group) > 0 {
		f.Conditions = []Condition{group}
	}

	named := schema.NamedTypeOf(t)
	switch {
	case schema.IsLeafType(named) && len(node.SelectionSet) > 0:
		return nil, errorf(SelectionMismatch, node.Position, "Field %q must not have a selection since type %q has no subfields", node.Name, t)
	case schema.IsCompositeType(named) && len(node.SelectionSet) == 0:
		return nil, errorf(SelectionMismatch, node.Position, "Field %q of type %q must have a selection of subfields", node.Name, t)
	}
	if schema.IsCompositeType(named) {
		children, err := n.fieldSet(named, node.SelectionSet)
		if err != nil {
			return nil, err
		}
		f.Children = children
	}
	return f, nil
}

func (n *normalizer) fieldDefinition(sc scope, node *language.Field) (*schema.Field, *Error) {
	switch node.Name {
	case "__typename":
		return n.schema.TypenameField(), nil
	case "__schema", "__type":
		if n.introspection && sc.current == schema.Named(n.schema.QueryType()) {
			if node.Name == "__schema" {
				return n.schema.SchemaField(), nil
			}
			return n.schema.TypeField(), nil
		}
	}
	if ft, ok := sc.current.(schema.FieldsType); ok {
		if def, ok := ft.Field(node.Name); ok {
			return def, nil
		}
	}
	return nil, errorf(UnknownField, node.Position, "Cannot query field %q on type %q", node.Name, sc.current.Name())
}

// rawArguments converts argument literals, turning variable references into
// VariableValues bound to the declared variable types.
func (n *normalizer) rawArguments(list language.ArgumentList) (map[string]any, *Error) {
	raw := make(map[string]any, len(list))
	for _, a := range list {
		if _, dup := raw[a.Name]; dup {
			return nil, errorf(UnknownArgument, a.Position, "There can be only one argument named %q", a.Name)
		}
		v, err := schema.RawFromAST(a.Value, n.variableRef)
		if err != nil {
			var ne *Error
			if errors.As(err, &ne) {
				if ne.Locations == nil {
					ne.Locations = language.LocationOf(a.Position)
				}
				return nil, ne
			}
			return nil, wrap(Coercion, a.Position, err)
		}
		raw[a.Name] = v
	}
	return raw, nil
}

func (n *normalizer) variableRef(name string) (schema.Value, error) {
	v, ok := n.variables[name]
	if !ok {
		return nil, errorf(UnknownVariable, nil, "Variable $%s is not defined", name)
	}
	return schema.NewVariableValue(name, v.Type), nil
}

// coercionError classifies an argument binding failure.
func (n *normalizer) coercionError(pos *language.Position, err error) *Error {
	var ce *schema.CoercionError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case schema.UnknownArgument:
			return wrap(UnknownArgument, pos, err)
		case schema.TypeMismatch:
			return wrap(VariableTypeMismatch, pos, err)
		}
	}
	return wrap(Coercion, pos, err)
}

// bindDirectives binds the directive usages of one location in document
// order. Gating usages (@skip and @include) are returned separately.
func (n *normalizer) bindDirectives(dirs language.DirectiveList, loc schema.DirectiveLocation, site schema.UsageSite) (usages []*schema.DirectiveUsage, gating Condition, _ *Error) {
	seen := map[string]bool{}
	for _, d := range dirs {
		def, ok := n.schema.ResolveDirective(d.Name)
		if !ok {
			return nil, nil, errorf(UnknownDirective, d.Position, "Unknown directive @%s", d.Name)
		}
		if !def.HasLocation(loc) {
			return nil, nil, errorf(DirectiveLocation, d.Position, "Directive @%s may not be used on %s", d.Name, loc)
		}
		if seen[d.Name] && !def.IsRepeatable {
			return nil, nil, errorf(DuplicateDirective, d.Position, "The directive @%s can only be used once at this location", d.Name)
		}
		seen[d.Name] = true

		raw, err := n.rawArguments(d.Arguments)
		if err != nil {
			return nil, nil, err
		}
		u, berr := n.schema.BindDirective(d.Name, raw, site)
		if berr != nil {
			if errors.Is(berr, schema.ErrDirectiveUsage) {
				return nil, nil, wrap(DirectiveUsage, d.Position, berr)
			}
			return nil, nil, n.coercionError(d.Position, berr)
		}
		u.Position = d.Position
		if isGating(d.Name) {
			gating = append(gating, u)
		} else {
			usages = append(usages, u)
		}
	}
	return usages, gating, nil
}

func isGating(name string) bool { return name == "skip" || name == "include" }

// String prints a normalized field set for debugging and tests.
func (s *FieldSet) String() string {
	var b strings.Builder
	writeFieldSet(&b, s, "")
	return b.String()
}

func writeFieldSet(b *strings.Builder, s *FieldSet, indent string) {
	for _, f := range s.Fields() {
		b.WriteString(indent)
		if f.Alias != "" {
			b.WriteString(f.Alias + ": ")
		}
		b.WriteString(f.Name)
		if args := f.Arguments.All(); len(args) > 0 {
			parts := make([]string, 0, len(args))
			for _, a := range args {
				if a.Provided {
					parts = append(parts, a.Definition.Name+": "+a.Value.String())
				}
			}
			if len(parts) > 0 {
				b.WriteString("(" + strings.Join(parts, ", ") + ")")
			}
		}
		if f.TypeCondition != nil {
			fmt.Fprintf(b, " [on %s]", f.TypeCondition.Name())
		}
		for _, c := range f.Conditions {
			names := make([]string, len(c))
			for i, u := range c {
				names[i] = "@" + u.Directive.Name
			}
			fmt.Fprintf(b, " if(%s)", strings.Join(names, " "))
		}
		b.WriteString("\n")
		if f.Children != nil {
			writeFieldSet(b, f.Children, indent+"  ")
		}
	}
}
