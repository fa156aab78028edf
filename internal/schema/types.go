package schema

import "sort"

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
	TypeKindList        TypeKind = "LIST"
	TypeKindNonNull     TypeKind = "NON_NULL"
)

// Type is the closed set of GraphQL types: the six named kinds plus the List
// and NonNull wrappers.
type Type interface {
	Kind() TypeKind
	// String prints the type reference, e.g. "[Int!]!".
	String() string
	graphqlType()
}

// Named is implemented by every type that is registered under a name.
type Named interface {
	Type
	Name() string
	Description() string
	Directives() []*DirectiveUsage
}

// FieldsType is implemented by Object and Interface.
type FieldsType interface {
	Named
	Fields() []*Field
	Field(name string) (*Field, bool)
	Interfaces() []string
}

type named struct {
	name        string
	description string
	directiveSet
}

func (n *named) Name() string        { return n.name }
func (n *named) Description() string { return n.description }
func (n *named) String() string      { return n.name }

// ScalarFunc converts a raw value for a scalar, or reports why it cannot.
type ScalarFunc func(raw any) (any, error)

type Scalar struct {
	named
	coerceInput ScalarFunc
	serialize   ScalarFunc
}

// NewScalar creates a custom scalar. Without a coercer any non-null raw value is
// accepted as is.
func NewScalar(name, description string) *Scalar {
	return &Scalar{named: named{name: name, description: description}}
}

func (*Scalar) graphqlType()   {}
func (*Scalar) Kind() TypeKind { return TypeKindScalar }

func (s *Scalar) SetCoercer(fn ScalarFunc) *Scalar    { s.coerceInput = fn; return s }
func (s *Scalar) SetSerializer(fn ScalarFunc) *Scalar { s.serialize = fn; return s }

func (s *Scalar) SetSpecifiedBy(url string) *Scalar {
	s.AddDirective("specifiedBy", map[string]any{"url": url})
	return s
}

// SpecifiedByURL returns the url of a @specifiedBy usage, or "".
func (s *Scalar) SpecifiedByURL() string {
	for _, u := range s.pending {
		if u.name == "specifiedBy" {
			url, _ := u.args["url"].(string)
			return url
		}
	}
	return ""
}

// CoerceInput validates a raw input value against the scalar.
func (s *Scalar) CoerceInput(raw any) (any, error) {
	if s.coerceInput == nil {
		return raw, nil
	}
	return s.coerceInput(raw)
}

// Serialize converts a resolver result into its wire representation.
func (s *Scalar) Serialize(raw any) (any, error) {
	if s.serialize == nil {
		return raw, nil
	}
	return s.serialize(raw)
}

type Enum struct {
	named
	values []*EnumValue
	index  map[string]*EnumValue
}

func NewEnum(name, description string) *Enum {
	return &Enum{named: named{name: name, description: description}, index: map[string]*EnumValue{}}
}

func (*Enum) graphqlType()   {}
func (*Enum) Kind() TypeKind { return TypeKindEnum }

func (e *Enum) AddValue(v *EnumValue) *Enum {
	if _, dup := e.index[v.Name]; dup {
		e.violations = append(e.violations, &Violation{
			Message: "Duplicate enum value " + quote(v.Name) + " found in enum " + quote(e.name),
		})
		return e
	}
	e.values = append(e.values, v)
	e.index[v.Name] = v
	return e
}

func (e *Enum) Values() []*EnumValue { return e.values }

func (e *Enum) Value(name string) (*EnumValue, bool) {
	v, ok := e.index[name]
	return v, ok
}

// InputValidator checks cross-field constraints of an input object value.
type InputValidator func(v *InputObjectValue) error

type InputObject struct {
	named
	fields    []*InputValue
	index     map[string]*InputValue
	validator InputValidator
}

func NewInputObject(name, description string) *InputObject {
	return &InputObject{named: named{name: name, description: description}, index: map[string]*InputValue{}}
}

func (*InputObject) graphqlType()   {}
func (*InputObject) Kind() TypeKind { return TypeKindInputObject }

func (t *InputObject) AddField(f *InputValue) *InputObject {
	if _, dup := t.index[f.Name]; dup {
		t.violations = append(t.violations, &Violation{
			Message: "Duplicate input value " + quote(f.Name) + " found in input " + quote(t.name),
		})
		return t
	}
	t.fields = append(t.fields, f)
	t.index[f.Name] = f
	return t
}

func (t *InputObject) Fields() []*InputValue { return t.fields }

func (t *InputObject) Field(name string) (*InputValue, bool) {
	f, ok := t.index[name]
	return f, ok
}

// SetValidator installs the cross-field constraint check run after coercion.
func (t *InputObject) SetValidator(fn InputValidator) *InputObject {
	t.validator = fn
	return t
}

func (t *InputObject) SetOneOf() *InputObject {
	t.AddDirective("oneOf", nil)
	return t
}

func (t *InputObject) IsOneOf() bool { return t.hasDirective("oneOf") }

type Object struct {
	named
	fields     []*Field
	index      map[string]*Field
	interfaces []string
}

func NewObject(name, description string) *Object {
	return &Object{named: named{name: name, description: description}, index: map[string]*Field{}}
}

func (*Object) graphqlType()   {}
func (*Object) Kind() TypeKind { return TypeKindObject }

func (t *Object) AddField(f *Field) *Object {
	t.fields, t.violations = addField(t.fields, t.index, t.violations, f, "type", t.name)
	return t
}

func (t *Object) AddInterface(name string) *Object {
	t.interfaces = append(t.interfaces, name)
	return t
}

func (t *Object) Fields() []*Field     { return t.fields }
func (t *Object) Interfaces() []string { return t.interfaces }

func (t *Object) Field(name string) (*Field, bool) {
	f, ok := t.index[name]
	return f, ok
}

type Interface struct {
	named
	fields     []*Field
	index      map[string]*Field
	interfaces []string
}

func NewInterface(name, description string) *Interface {
	return &Interface{named: named{name: name, description: description}, index: map[string]*Field{}}
}

func (*Interface) graphqlType()   {}
func (*Interface) Kind() TypeKind { return TypeKindInterface }

func (t *Interface) AddField(f *Field) *Interface {
	t.fields, t.violations = addField(t.fields, t.index, t.violations, f, "interface", t.name)
	return t
}

func (t *Interface) AddInterface(name string) *Interface {
	t.interfaces = append(t.interfaces, name)
	return t
}

func (t *Interface) Fields() []*Field     { return t.fields }
func (t *Interface) Interfaces() []string { return t.interfaces }

func (t *Interface) Field(name string) (*Field, bool) {
	f, ok := t.index[name]
	return f, ok
}

type Union struct {
	named
	members []string
}

func NewUnion(name, description string) *Union {
	return &Union{named: named{name: name, description: description}}
}

func (*Union) graphqlType()   {}
func (*Union) Kind() TypeKind { return TypeKindUnion }

func (t *Union) AddMember(name string) *Union {
	t.members = append(t.members, name)
	return t
}

func (t *Union) Members() []string { return t.members }

func addField(fields []*Field, index map[string]*Field, vs []*Violation, f *Field, kind, owner string) ([]*Field, []*Violation) {
	if _, dup := index[f.Name]; dup {
		return fields, append(vs, &Violation{
			Message: "Duplicate field " + quote(f.Name) + " found in " + kind + " " + quote(owner),
		})
	}
	index[f.Name] = f
	return append(fields, f), vs
}

// List wraps an inner type.
type List struct {
	OfType Type
}

func NewList(of Type) *List { return &List{OfType: of} }

func (*List) graphqlType()     {}
func (*List) Kind() TypeKind   { return TypeKindList }
func (l *List) String() string { return "[" + l.OfType.String() + "]" }

// NonNull wraps a nullable inner type.
type NonNull struct {
	OfType Type
}

// NewNonNull panics when given a NonNull type.
func NewNonNull(of Type) *NonNull {
	if _, ok := of.(*NonNull); ok {
		panic("schema: NonNull cannot wrap NonNull " + of.String())
	}
	return &NonNull{OfType: of}
}

func (*NonNull) graphqlType()     {}
func (*NonNull) Kind() TypeKind   { return TypeKindNonNull }
func (n *NonNull) String() string { return n.OfType.String() + "!" }

// NamedTypeOf strips every wrapper.
func NamedTypeOf(t Type) Named {
	for {
		switch w := t.(type) {
		case *List:
			t = w.OfType
		case *NonNull:
			t = w.OfType
		case Named:
			return w
		default:
			return nil
		}
	}
}

// Nullable strips one NonNull wrapper if present.
func Nullable(t Type) Type {
	if nn, ok := t.(*NonNull); ok {
		return nn.OfType
	}
	return t
}

func IsNonNullType(t Type) bool {
	_, ok := t.(*NonNull)
	return ok
}

// IsInputType reports the "inputable" capability.
func IsInputType(t Type) bool {
	switch NamedTypeOf(t).(type) {
	case *Scalar, *Enum, *InputObject:
		return true
	}
	return false
}

func IsOutputType(t Type) bool {
	switch NamedTypeOf(t).(type) {
	case *Scalar, *Enum, *Object, *Interface, *Union:
		return true
	}
	return false
}

func IsLeafType(t Type) bool {
	switch t.(type) {
	case *Scalar, *Enum:
		return true
	}
	return false
}

func IsAbstractType(t Type) bool {
	switch t.(type) {
	case *Interface, *Union:
		return true
	}
	return false
}

func IsCompositeType(t Type) bool {
	switch t.(type) {
	case *Object, *Interface, *Union:
		return true
	}
	return false
}

// IsAssignable reports whether a value declared as from may be used where to
// is expected. Lists are covariant and NonNull is a subtype of its nullable
// inner type.
func IsAssignable(from, to Type) bool {
	if tn, ok := to.(*NonNull); ok {
		fn, ok := from.(*NonNull)
		if !ok {
			return false
		}
		return IsAssignable(fn.OfType, tn.OfType)
	}
	if fn, ok := from.(*NonNull); ok {
		return IsAssignable(fn.OfType, to)
	}
	if tl, ok := to.(*List); ok {
		fl, ok := from.(*List)
		if !ok {
			return false
		}
		return IsAssignable(fl.OfType, tl.OfType)
	}
	if _, ok := from.(*List); ok {
		return false
	}
	fn, ok1 := from.(Named)
	tn, ok2 := to.(Named)
	return ok1 && ok2 && fn.Name() == tn.Name()
}

// Equal reports structural identity of two type references.
func Equal(a, b Type) bool {
	switch at := a.(type) {
	case *NonNull:
		bt, ok := b.(*NonNull)
		return ok && Equal(at.OfType, bt.OfType)
	case *List:
		bt, ok := b.(*List)
		return ok && Equal(at.OfType, bt.OfType)
	case Named:
		bt, ok := b.(Named)
		return ok && at.Name() == bt.Name()
	}
	return false
}

func sortedNames[T Named](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
