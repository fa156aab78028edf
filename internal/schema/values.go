package schema

import (
	"reflect"
	"strconv"
	"strings"
)

// Value is a typed, validated value node. Values are produced by coercion and
// carry the type they were validated against.
type Value interface {
	Type() Type
	// Raw returns the plain Go representation: int, float64, string, bool,
	// []any, map[string]any or nil.
	Raw() any
	// IsSame reports structural equality. Variable references compare by name
	// and declared type only.
	IsSame(other Value) bool
	// String prints the value as a GraphQL literal.
	String() string
}

// EnumLiteral is the raw form of an unquoted enum literal in a document.
type EnumLiteral string

type ScalarValue struct {
	typ Type
	raw any
}

func NewScalarValue(t Type, raw any) *ScalarValue { return &ScalarValue{typ: t, raw: raw} }

func (v *ScalarValue) Type() Type { return v.typ }
func (v *ScalarValue) Raw() any   { return v.raw }

func (v *ScalarValue) IsSame(other Value) bool {
	o, ok := other.(*ScalarValue)
	if !ok {
		return false
	}
	return NamedTypeOf(v.typ).Name() == NamedTypeOf(o.typ).Name() && reflect.DeepEqual(v.raw, o.raw)
}

func (v *ScalarValue) String() string { return printRaw(v.raw) }

// EnumMemberValue is a validated enum member.
type EnumMemberValue struct {
	typ  Type
	name string
}

func (v *EnumMemberValue) Type() Type     { return v.typ }
func (v *EnumMemberValue) Raw() any       { return v.name }
func (v *EnumMemberValue) String() string { return v.name }

func (v *EnumMemberValue) IsSame(other Value) bool {
	o, ok := other.(*EnumMemberValue)
	return ok && o.name == v.name
}

type ListValue struct {
	typ   Type
	items []Value
}

func NewListValue(t Type, items []Value) *ListValue { return &ListValue{typ: t, items: items} }

func (v *ListValue) Type() Type     { return v.typ }
func (v *ListValue) Items() []Value { return v.items }
func (v *ListValue) Len() int       { return len(v.items) }

func (v *ListValue) Raw() any {
	out := make([]any, len(v.items))
	for i, it := range v.items {
		out[i] = it.Raw()
	}
	return out
}

func (v *ListValue) IsSame(other Value) bool {
	o, ok := other.(*ListValue)
	if !ok || len(o.items) != len(v.items) {
		return false
	}
	for i := range v.items {
		if !v.items[i].IsSame(o.items[i]) {
			return false
		}
	}
	return true
}

func (v *ListValue) String() string {
	parts := make([]string, len(v.items))
	for i, it := range v.items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Retain removes, in place, every item for which keep returns false. It is
// only called by the directive phase, before the list is handed to any reader.
func (v *ListValue) Retain(keep func(i int, item Value) bool) {
	kept := v.items[:0]
	for i, it := range v.items {
		if keep(i, it) {
			kept = append(kept, it)
		}
	}
	for i := len(kept); i < len(v.items); i++ {
		v.items[i] = nil
	}
	v.items = kept
}

// InputField is one entry of an input object value.
type InputField struct {
	Definition *InputValue
	Value      Value
	// Provided is false when the field was neither given nor defaulted and
	// holds an implicit null.
	Provided bool
}

type InputObjectValue struct {
	typ    Type
	fields []*InputField
}

func (v *InputObjectValue) Type() Type            { return v.typ }
func (v *InputObjectValue) Fields() []*InputField { return v.fields }

func (v *InputObjectValue) Get(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Definition.Name == name {
			return f.Value, f.Provided
		}
	}
	return nil, false
}

// Raw omits implicit nulls so that absent and explicitly null fields can be
// told apart.
func (v *InputObjectValue) Raw() any {
	out := make(map[string]any, len(v.fields))
	for _, f := range v.fields {
		if f.Provided {
			out[f.Definition.Name] = f.Value.Raw()
		}
	}
	return out
}

func (v *InputObjectValue) IsSame(other Value) bool {
	o, ok := other.(*InputObjectValue)
	if !ok || len(o.fields) != len(v.fields) {
		return false
	}
	for i := range v.fields {
		a, b := v.fields[i], o.fields[i]
		if a.Definition.Name != b.Definition.Name || a.Provided != b.Provided || !a.Value.IsSame(b.Value) {
			return false
		}
	}
	return true
}

func (v *InputObjectValue) String() string {
	parts := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		if f.Provided {
			parts = append(parts, f.Definition.Name+": "+f.Value.String())
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// VariableValue is a reference to an operation variable. It is bound to the
// variable's declared type and resolved only at execution.
type VariableValue struct {
	name string
	typ  Type
}

func NewVariableValue(name string, declared Type) *VariableValue {
	return &VariableValue{name: name, typ: declared}
}

func (v *VariableValue) Name() string   { return v.name }
func (v *VariableValue) Type() Type     { return v.typ }
func (v *VariableValue) Raw() any       { return nil }
func (v *VariableValue) String() string { return "$" + v.name }

func (v *VariableValue) IsSame(other Value) bool {
	o, ok := other.(*VariableValue)
	return ok && o.name == v.name && Equal(o.typ, v.typ)
}

type NullValue struct {
	typ Type
}

func NewNullValue(t Type) *NullValue { return &NullValue{typ: t} }

func (v *NullValue) Type() Type     { return v.typ }
func (v *NullValue) Raw() any       { return nil }
func (v *NullValue) String() string { return "null" }

func (v *NullValue) IsSame(other Value) bool {
	_, ok := other.(*NullValue)
	return ok
}

// ObjectValue is a resolved output composite: the concrete object type chosen
// for a resolver result, holding the result itself as the source of nested
// fields.
type ObjectValue struct {
	typ    *Object
	source any
}

func NewObjectValue(t *Object, source any) *ObjectValue { return &ObjectValue{typ: t, source: source} }

func (v *ObjectValue) Type() Type          { return v.typ }
func (v *ObjectValue) Object() *Object     { return v.typ }
func (v *ObjectValue) Raw() any            { return v.source }
func (v *ObjectValue) String() string      { return "{" + v.typ.Name() + "}" }
func (v *ObjectValue) IsSame(o Value) bool { return v == o }

// IsNull reports whether v is absent or a null value.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(*NullValue)
	return ok
}

// ContainsVariables reports whether a value tree references any variable.
func ContainsVariables(v Value) bool {
	switch vv := v.(type) {
	case *VariableValue:
		return true
	case *ListValue:
		for _, it := range vv.items {
			if ContainsVariables(it) {
				return true
			}
		}
	case *InputObjectValue:
		for _, f := range vv.fields {
			if ContainsVariables(f.Value) {
				return true
			}
		}
	}
	return false
}

func printRaw(raw any) string {
	switch r := raw.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(r)
	case bool:
		return strconv.FormatBool(r)
	case int:
		return strconv.Itoa(r)
	case int64:
		return strconv.FormatInt(r, 10)
	case float64:
		return strconv.FormatFloat(r, 'g', -1, 64)
	case []any:
		parts := make([]string, len(r))
		for i, it := range r {
			parts[i] = printRaw(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := sortedKeys(r)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + printRaw(r[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case EnumLiteral:
		return string(r)
	case Value:
		return r.String()
	default:
		return strconv.Quote(stringify(r))
	}
}
