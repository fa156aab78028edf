package schema

import (
	"errors"
	"fmt"
	"sort"

	language "github.com/hanpama/gqlengine/internal/language"
)

var (
	// ErrSchemaFrozen is the panic value of mutators called after Build.
	ErrSchemaFrozen = errors.New("schema: mutation after Build")

	ErrUnknownType       = errors.New("unknown type")
	ErrNestedNonNull     = errors.New("non-null type cannot wrap a non-null type")
	ErrUnknownDirective  = errors.New("unknown directive")
	ErrDirectiveLocation = errors.New("directive is not allowed at this location")
	ErrDirectiveUsage    = errors.New("invalid directive usage")
)

// Schema is the type registry. It owns every named type and directive; all
// cross-type references are resolved by name through it. A Schema is
// immutable once Build returns.
type Schema struct {
	description      string
	queryType        string
	mutationType     string
	subscriptionType string

	types             map[string]Named
	directives        map[string]*Directive
	builtinTypes      map[string]Named
	builtinDirectives map[string]*Directive
	possible          map[string][]*Object

	typenameField *Field
	schemaField   *Field
	typeField     *Field

	usages     directiveSet
	violations []*Violation
	built      bool
}

// NewSchema creates an empty registry holding its own copy of the built-in
// scalars, directives and introspection types.
func NewSchema(description string) *Schema {
	s := &Schema{
		description:       description,
		types:             map[string]Named{},
		directives:        map[string]*Directive{},
		builtinTypes:      map[string]Named{},
		builtinDirectives: map[string]*Directive{},
		possible:          map[string][]*Object{},
	}
	installBuiltins(s)
	return s
}

func (s *Schema) Description() string { return s.description }

// AddSchemaDirective records a directive usage at the SCHEMA location.
func (s *Schema) AddSchemaDirective(name string, args map[string]any) *Schema {
	s.mustNotBeBuilt()
	s.usages.AddDirective(name, args)
	return s
}

// SchemaDirectives returns the usages bound at the SCHEMA location.
func (s *Schema) SchemaDirectives() []*DirectiveUsage { return s.usages.Directives() }

func (s *Schema) mustNotBeBuilt() {
	if s.built {
		panic(ErrSchemaFrozen)
	}
}

func (s *Schema) SetQueryType(name string) *Schema {
	s.mustNotBeBuilt()
	s.queryType = name
	return s
}

func (s *Schema) SetMutationType(name string) *Schema {
	s.mustNotBeBuilt()
	s.mutationType = name
	return s
}

func (s *Schema) SetSubscriptionType(name string) *Schema {
	s.mustNotBeBuilt()
	s.subscriptionType = name
	return s
}

// AddType registers a user-defined named type.
func (s *Schema) AddType(t Named) *Schema {
	s.mustNotBeBuilt()
	name := t.Name()
	switch {
	case s.builtinTypes[name] != nil:
		s.violations = append(s.violations, violationBuiltinCollision("Type", name))
	case s.types[name] != nil:
		s.violations = append(s.violations, violationDuplicateType(name))
	default:
		s.types[name] = t
	}
	return s
}

// AddDirective registers a user-defined directive definition.
func (s *Schema) AddDirective(d *Directive) *Schema {
	s.mustNotBeBuilt()
	switch {
	case s.builtinDirectives[d.Name] != nil:
		s.violations = append(s.violations, violationBuiltinCollision("Directive", d.Name))
	case s.directives[d.Name] != nil:
		s.violations = append(s.violations, &Violation{Message: fmt.Sprintf("Duplicate directive %q", d.Name)})
	default:
		s.directives[d.Name] = d
	}
	return s
}

// ResolveType looks a named type up among user-defined and built-in types.
func (s *Schema) ResolveType(name string) (Named, bool) {
	if t, ok := s.types[name]; ok {
		return t, true
	}
	t, ok := s.builtinTypes[name]
	return t, ok
}

func (s *Schema) ResolveDirective(name string) (*Directive, bool) {
	if d, ok := s.directives[name]; ok {
		return d, true
	}
	d, ok := s.builtinDirectives[name]
	return d, ok
}

// Types returns the user-defined types sorted by name.
func (s *Schema) Types() []Named { return sortedNames(s.types) }

// BuiltinTypes returns the built-in types sorted by name.
func (s *Schema) BuiltinTypes() []Named { return sortedNames(s.builtinTypes) }

// AllTypes returns user-defined and built-in types sorted by name.
func (s *Schema) AllTypes() []Named {
	all := make(map[string]Named, len(s.types)+len(s.builtinTypes))
	for k, v := range s.builtinTypes {
		all[k] = v
	}
	for k, v := range s.types {
		all[k] = v
	}
	return sortedNames(all)
}

func (s *Schema) Directives() []*Directive { return sortedDirectives(s.directives) }

func (s *Schema) BuiltinDirectives() []*Directive { return sortedDirectives(s.builtinDirectives) }

func (s *Schema) AllDirectives() []*Directive {
	return append(s.BuiltinDirectives(), s.Directives()...)
}

func (s *Schema) IsBuiltinType(name string) bool { return s.builtinTypes[name] != nil }

func (s *Schema) IsBuiltinDirective(name string) bool { return s.builtinDirectives[name] != nil }

func sortedDirectives(m map[string]*Directive) []*Directive {
	out := make([]*Directive, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Schema) objectType(name string) *Object {
	if name == "" {
		return nil
	}
	t, _ := s.ResolveType(name)
	obj, _ := t.(*Object)
	return obj
}

// QueryType returns the root query type (may be nil if absent)
func (s *Schema) QueryType() *Object { return s.objectType(s.queryType) }

// MutationType returns the root mutation type (may be nil if absent)
func (s *Schema) MutationType() *Object { return s.objectType(s.mutationType) }

// SubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) SubscriptionType() *Object { return s.objectType(s.subscriptionType) }

// RootType returns the root object type for an operation kind.
func (s *Schema) RootType(op language.Operation) *Object {
	switch op {
	case language.Mutation:
		return s.MutationType()
	case language.Subscription:
		return s.SubscriptionType()
	default:
		return s.QueryType()
	}
}

// TypeOf resolves a type reference against the registry.
func (s *Schema) TypeOf(ref *TypeRef) (Type, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrUnknownType)
	}
	switch ref.Kind {
	case TypeRefKindList:
		inner, err := s.TypeOf(ref.OfType)
		if err != nil {
			return nil, err
		}
		return NewList(inner), nil
	case TypeRefKindNonNull:
		inner, err := s.TypeOf(ref.OfType)
		if err != nil {
			return nil, err
		}
		if _, ok := inner.(*NonNull); ok {
			return nil, fmt.Errorf("%w: %s", ErrNestedNonNull, ref)
		}
		return NewNonNull(inner), nil
	default:
		t, ok := s.ResolveType(ref.Named)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, ref.Named)
		}
		return t, nil
	}
}

// PossibleTypes lists the object types an abstract type may resolve to. For
// an object type it is the type itself.
func (s *Schema) PossibleTypes(t Named) []*Object {
	if obj, ok := t.(*Object); ok {
		return []*Object{obj}
	}
	return s.possible[t.Name()]
}

func (s *Schema) IsPossibleType(abstract Named, obj *Object) bool {
	for _, p := range s.PossibleTypes(abstract) {
		if p.Name() == obj.Name() {
			return true
		}
	}
	return false
}

// Overlaps reports whether two composite types may describe the same runtime
// object.
func (s *Schema) Overlaps(a, b Named) bool {
	if a.Name() == b.Name() {
		return true
	}
	for _, p := range s.PossibleTypes(a) {
		if s.IsPossibleType(b, p) {
			return true
		}
	}
	return false
}

// TypenameField is the definition of the implicit __typename field.
func (s *Schema) TypenameField() *Field { return s.typenameField }

// SchemaField is the definition of the implicit Query.__schema field.
func (s *Schema) SchemaField() *Field { return s.schemaField }

// TypeField is the definition of the implicit Query.__type field.
func (s *Schema) TypeField() *Field { return s.typeField }

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// TypeRefFromAST converts a parsed type reference.
func TypeRefFromAST(t *language.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(TypeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func (t *TypeRef) String() string {
	switch t.Kind {
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	default:
		return t.Named
	}
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	IsDeprecated      bool
	DeprecationReason string
	directiveSet
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) AddArgument(arg *InputValue) *Field {
	if _, dup := f.Argument(arg.Name); dup {
		f.violations = append(f.violations, &Violation{
			Message: fmt.Sprintf("Duplicate argument %q found in field %q", arg.Name, f.Name),
		})
		return f
	}
	f.Arguments = append(f.Arguments, arg)
	return f
}

func (f *Field) Argument(name string) (*InputValue, bool) {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	f.AddDirective("deprecated", map[string]any{"reason": reason})
	return f
}

func (f *Field) WithDirective(name string, args map[string]any) *Field {
	f.AddDirective(name, args)
	return f
}

// InputValue is an argument or an input object field.
type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	HasDefault        bool
	IsDeprecated      bool
	DeprecationReason string
	directiveSet

	defaultValue Value
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

// SetDefault declares a raw default value. It is coerced by Build.
func (v *InputValue) SetDefault(raw any) *InputValue {
	v.DefaultValue = raw
	v.HasDefault = true
	return v
}

// Default returns the coerced default value, or nil when none is declared.
func (v *InputValue) Default() Value { return v.defaultValue }

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	v.AddDirective("deprecated", map[string]any{"reason": reason})
	return v
}

func (v *InputValue) WithDirective(name string, args map[string]any) *InputValue {
	v.AddDirective(name, args)
	return v
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
	directiveSet
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	e.AddDirective("deprecated", map[string]any{"reason": reason})
	return e
}
