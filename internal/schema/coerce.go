package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

type CoercionKind string

const (
	ValueCannotBeNull   CoercionKind = "ValueCannotBeNull"
	InvalidValue        CoercionKind = "InvalidValue"
	UnknownField        CoercionKind = "UnknownField"
	UnknownArgument     CoercionKind = "UnknownArgument"
	ConstraintViolation CoercionKind = "ConstraintViolation"
	TypeMismatch        CoercionKind = "TypeMismatch"
)

// Path locates a value inside an argument or variable: names select fields,
// ints index lists.
type Path []any

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = fmt.Sprint(seg)
	}
	return strings.Join(parts, ".")
}

func (p Path) With(seg any) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// CoercionError reports a raw value that does not fit its target type.
type CoercionError struct {
	Kind    CoercionKind
	Path    Path
	Message string
}

func (e *CoercionError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (at %s)", e.Message, e.Path)
}

func coercionErrorf(kind CoercionKind, path Path, format string, args ...any) *CoercionError {
	return &CoercionError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// IsCoercionKind reports whether err is a CoercionError of the given kind.
func IsCoercionKind(err error, kind CoercionKind) bool {
	var ce *CoercionError
	return errors.As(err, &ce) && ce.Kind == kind
}

// Coerce converts a raw input value into a Value of type t.
func (s *Schema) Coerce(raw any, t Type) (Value, error) {
	return s.coerce(raw, t, nil, nil)
}

// CoerceAt is Coerce with a path prefix reported on errors.
func (s *Schema) CoerceAt(raw any, t Type, path Path) (Value, error) {
	return s.coerce(raw, t, path, nil)
}

// expanding holds the input objects whose field defaults are being coerced
// on the current path. A default that leads back into one of them never ends.
func (s *Schema) coerce(raw any, t Type, path Path, expanding map[*InputObject]bool) (Value, error) {
	if v, ok := raw.(Value); ok {
		if _, null := v.(*NullValue); null {
			raw = nil
		} else {
			if !IsAssignable(v.Type(), t) {
				return nil, coercionErrorf(TypeMismatch, path, "value %s of type %s is not assignable to %s", v, v.Type(), t)
			}
			return v, nil
		}
	}
	if nn, ok := t.(*NonNull); ok {
		if raw == nil {
			return nil, coercionErrorf(ValueCannotBeNull, path, "value of type %s cannot be null", t)
		}
		v, err := s.coerce(raw, nn.OfType, path, expanding)
		if err != nil {
			return nil, err
		}
		return retype(v, t), nil
	}
	if raw == nil {
		return NewNullValue(t), nil
	}
	switch tt := t.(type) {
	case *List:
		seq, ok := asSlice(raw)
		if !ok {
			return nil, coercionErrorf(InvalidValue, path, "expected a list for %s, got %s", t, printRaw(raw))
		}
		items := make([]Value, len(seq))
		for i, item := range seq {
			v, err := s.coerce(item, tt.OfType, path.With(i), expanding)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &ListValue{typ: t, items: items}, nil
	case *Scalar:
		out, err := tt.CoerceInput(raw)
		if err != nil {
			return nil, coercionErrorf(InvalidValue, path, "%s: %v", tt.Name(), err)
		}
		return &ScalarValue{typ: t, raw: out}, nil
	case *Enum:
		var name string
		switch r := raw.(type) {
		case string:
			name = r
		case EnumLiteral:
			name = string(r)
		default:
			return nil, coercionErrorf(InvalidValue, path, "enum %s expects a member name, got %s", tt.Name(), printRaw(raw))
		}
		if _, ok := tt.Value(name); !ok {
			return nil, coercionErrorf(InvalidValue, path, "value %q does not exist in enum %s", name, tt.Name())
		}
		return &EnumMemberValue{typ: t, name: name}, nil
	case *InputObject:
		return s.coerceInputObject(raw, tt, t, path, expanding)
	default:
		return nil, coercionErrorf(InvalidValue, path, "type %s is not an input type", t)
	}
}

func (s *Schema) coerceInputObject(raw any, io *InputObject, t Type, path Path, expanding map[*InputObject]bool) (Value, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, coercionErrorf(InvalidValue, path, "expected an input object for %s, got %s", io.Name(), printRaw(raw))
	}
	merged := mergeDefaults(m, io)
	for _, key := range sortedKeys(merged) {
		if _, ok := io.Field(key); !ok {
			return nil, coercionErrorf(UnknownField, path.With(key), "unknown field %q for input value %s", key, io.Name())
		}
	}
	fields := make([]*InputField, 0, len(io.fields))
	for _, def := range io.fields {
		ft, err := s.TypeOf(def.Type)
		if err != nil {
			return nil, coercionErrorf(InvalidValue, path.With(def.Name), "%v", err)
		}
		rv, present := merged[def.Name]
		if !present {
			if _, nonNull := ft.(*NonNull); nonNull {
				return nil, coercionErrorf(ValueCannotBeNull, path.With(def.Name), "missing value for non-null field %s.%s", io.Name(), def.Name)
			}
			fields = append(fields, &InputField{Definition: def, Value: NewNullValue(ft)})
			continue
		}
		_, given := m[def.Name]
		var v Value
		if given {
			v, err = s.coerce(rv, ft, path.With(def.Name), expanding)
		} else {
			v, err = s.coerceDefault(rv, ft, io, def, path.With(def.Name), expanding)
		}
		if err != nil {
			return nil, err
		}
		fields = append(fields, &InputField{Definition: def, Value: v, Provided: true})
	}
	obj := &InputObjectValue{typ: t, fields: fields}
	if io.IsOneOf() {
		if err := checkOneOf(io, obj); err != nil {
			return nil, coercionErrorf(ConstraintViolation, path, "%v", err)
		}
	}
	if io.validator != nil {
		if err := io.validator(obj); err != nil {
			var ce *CoercionError
			if errors.As(err, &ce) {
				return nil, err
			}
			return nil, coercionErrorf(ConstraintViolation, path, "%v", err)
		}
	}
	return obj, nil
}

// coerceDefault coerces the declared default of an input field that the raw
// value left out.
func (s *Schema) coerceDefault(raw any, t Type, io *InputObject, def *InputValue, path Path, expanding map[*InputObject]bool) (Value, error) {
	if expanding[io] {
		return nil, coercionErrorf(InvalidValue, path, "default value of %s.%s expands %s recursively", io.Name(), def.Name, io.Name())
	}
	next := make(map[*InputObject]bool, len(expanding)+1)
	for k := range expanding {
		next[k] = true
	}
	next[io] = true
	return s.coerce(raw, t, path, next)
}

func checkOneOf(io *InputObject, v *InputObjectValue) error {
	count := 0
	for _, f := range v.fields {
		if !f.Provided {
			continue
		}
		if IsNull(f.Value) {
			return fmt.Errorf("field %q of oneOf input %s must not be null", f.Definition.Name, io.Name())
		}
		count++
	}
	if count != 1 {
		return fmt.Errorf("oneOf input %s requires exactly one field, got %d", io.Name(), count)
	}
	return nil
}

// mergeDefaults returns raw with the declared defaults of io filled in. Raw
// entries win; nested maps are merged recursively.
func mergeDefaults(raw map[string]any, io *InputObject) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, def := range io.fields {
		if !def.HasDefault {
			continue
		}
		cur, present := out[def.Name]
		if !present {
			out[def.Name] = def.DefaultValue
			continue
		}
		curMap, ok1 := asMap(cur)
		defMap, ok2 := asMap(def.DefaultValue)
		if ok1 && ok2 {
			out[def.Name] = mergeRaw(curMap, defMap)
		}
	}
	return out
}

func mergeRaw(over, under map[string]any) map[string]any {
	out := make(map[string]any, len(over)+len(under))
	for k, v := range under {
		out[k] = v
	}
	for k, v := range over {
		if um, ok := asMap(under[k]); ok {
			if om, ok := asMap(v); ok {
				out[k] = mergeRaw(om, um)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func retype(v Value, t Type) Value {
	switch vv := v.(type) {
	case *ScalarValue:
		return &ScalarValue{typ: t, raw: vv.raw}
	case *EnumMemberValue:
		return &EnumMemberValue{typ: t, name: vv.name}
	case *ListValue:
		return &ListValue{typ: t, items: vv.items}
	case *InputObjectValue:
		return &InputObjectValue{typ: t, fields: vv.fields}
	}
	return v
}

func asSlice(raw any) ([]any, bool) {
	switch r := raw.(type) {
	case []any:
		return r, true
	case string, []byte, map[string]any:
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asMap(raw any) (map[string]any, bool) {
	switch r := raw.(type) {
	case map[string]any:
		return r, true
	case nil, Value:
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringify(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// ArgumentValue is one bound argument.
type ArgumentValue struct {
	Definition *InputValue
	Value      Value
	// Provided is false when the argument was omitted and holds its default
	// or an implicit null.
	Provided bool
}

// ArgumentValues is an ordered set of bound field or directive arguments.
type ArgumentValues struct {
	list []*ArgumentValue
}

func (a *ArgumentValues) All() []*ArgumentValue {
	if a == nil {
		return nil
	}
	return a.list
}

func (a *ArgumentValues) Get(name string) (Value, bool) {
	if a == nil {
		return nil, false
	}
	for _, arg := range a.list {
		if arg.Definition.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// Raw converts the arguments for a resolver. Omitted arguments without a
// default are left out.
func (a *ArgumentValues) Raw() map[string]any {
	out := map[string]any{}
	if a == nil {
		return out
	}
	for _, arg := range a.list {
		if arg.Provided || arg.Definition.HasDefault {
			out[arg.Definition.Name] = arg.Value.Raw()
		}
	}
	return out
}

func (a *ArgumentValues) HasVariables() bool {
	for _, arg := range a.All() {
		if ContainsVariables(arg.Value) {
			return true
		}
	}
	return false
}

func (a *ArgumentValues) IsSame(b *ArgumentValues) bool {
	al, bl := a.All(), b.All()
	if len(al) != len(bl) {
		return false
	}
	for i := range al {
		if al[i].Definition.Name != bl[i].Definition.Name || al[i].Provided != bl[i].Provided || !al[i].Value.IsSame(bl[i].Value) {
			return false
		}
	}
	return true
}

// CoerceArguments binds raw argument values to their definitions. Omitted
// arguments take their default; unknown names are rejected.
func (s *Schema) CoerceArguments(defs []*InputValue, raw map[string]any, path Path) (*ArgumentValues, error) {
	for _, key := range sortedKeys(raw) {
		found := false
		for _, d := range defs {
			if d.Name == key {
				found = true
				break
			}
		}
		if !found {
			return nil, coercionErrorf(UnknownArgument, path.With(key), "unknown argument %q", key)
		}
	}
	out := &ArgumentValues{list: make([]*ArgumentValue, 0, len(defs))}
	for _, def := range defs {
		t, err := s.TypeOf(def.Type)
		if err != nil {
			return nil, coercionErrorf(InvalidValue, path.With(def.Name), "%v", err)
		}
		rv, present := raw[def.Name]
		if !present {
			if def.HasDefault {
				v, err := s.coerce(def.DefaultValue, t, path.With(def.Name), nil)
				if err != nil {
					return nil, err
				}
				out.list = append(out.list, &ArgumentValue{Definition: def, Value: v})
				continue
			}
			if _, nonNull := t.(*NonNull); nonNull {
				return nil, coercionErrorf(ValueCannotBeNull, path.With(def.Name), "missing value for non-null argument %q", def.Name)
			}
			out.list = append(out.list, &ArgumentValue{Definition: def, Value: NewNullValue(t)})
			continue
		}
		v, err := s.coerce(rv, t, path.With(def.Name), nil)
		if err != nil {
			return nil, err
		}
		out.list = append(out.list, &ArgumentValue{Definition: def, Value: v, Provided: true})
	}
	return out, nil
}

// Substitute replaces variable references in bound arguments by the
// request's variable values and re-validates the result. Variables missing
// from vars are treated as absent, so defaults apply.
func (s *Schema) Substitute(defs []*InputValue, args *ArgumentValues, vars map[string]Value, path Path) (*ArgumentValues, error) {
	if !args.HasVariables() {
		return args, nil
	}
	raw := map[string]any{}
	for _, arg := range args.All() {
		if !arg.Provided {
			continue
		}
		if r, ok := substituteValue(arg.Value, vars); ok {
			raw[arg.Definition.Name] = r
		}
	}
	return s.CoerceArguments(defs, raw, path)
}

func substituteValue(v Value, vars map[string]Value) (any, bool) {
	switch vv := v.(type) {
	case *VariableValue:
		val, ok := vars[vv.name]
		return val, ok
	case *ListValue:
		if !ContainsVariables(vv) {
			return vv, true
		}
		out := make([]any, len(vv.items))
		for i, it := range vv.items {
			out[i], _ = substituteValue(it, vars)
		}
		return out, true
	case *InputObjectValue:
		if !ContainsVariables(vv) {
			return vv, true
		}
		out := map[string]any{}
		for _, f := range vv.fields {
			if !f.Provided {
				continue
			}
			if r, ok := substituteValue(f.Value, vars); ok {
				out[f.Definition.Name] = r
			}
		}
		return out, true
	}
	return v, true
}

// builtin scalar predicates

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return checkInt32(int64(v))
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return checkInt32(v)
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return checkInt32(int64(v))
	case uint:
		if uint64(v) > 1<<31-1 {
			return nil, errors.New("value too large for 32-bit signed integer")
		}
		return int(v), nil
	case uint64:
		if v > 1<<31-1 {
			return nil, errors.New("value too large for 32-bit signed integer")
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %s", v)
		}
		return checkInt32(n)
	}
	return nil, fmt.Errorf("expected an integer, got %s", printRaw(raw))
}

func checkInt32(n int64) (any, error) {
	if n > 1<<31-1 || n < -1<<31 {
		return nil, errors.New("value too large for 32-bit signed integer")
	}
	return int(n), nil
}

func coerceFloat(raw any) (any, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %s", v)
		}
		f = parsed
	default:
		n, err := coerceInt(raw)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %s", printRaw(raw))
		}
		f = float64(n.(int))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.New("expected a finite number")
	}
	return f, nil
}

func coerceString(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %s", printRaw(raw))
	}
	if !utf8.ValidString(s) {
		return nil, errors.New("expected valid UTF-8 text")
	}
	return s, nil
}

func coerceBoolean(raw any) (any, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("expected a boolean, got %s", printRaw(raw))
	}
	return b, nil
}

func coerceID(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		return s, nil
	}
	n, err := coerceIntAny(raw)
	if err != nil {
		return nil, fmt.Errorf("expected a string or an integer, got %s", printRaw(raw))
	}
	return strconv.FormatInt(n, 10), nil
}

func coerceIntAny(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		return strconv.ParseInt(string(v), 10, 64)
	case float64:
		if v != float64(int64(v)) {
			return 0, errors.New("not an integer")
		}
		return int64(v), nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	}
	return 0, errors.New("not an integer")
}

// builtin scalar serializers

func serializeInt(raw any) (any, error) {
	n, err := coerceIntAny(raw)
	if err != nil {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %s", printRaw(raw))
	}
	v, err := checkInt32(n)
	if err != nil {
		return nil, fmt.Errorf("Int cannot represent value %d: %v", n, err)
	}
	return v, nil
}

func serializeFloat(raw any) (any, error) {
	v, err := coerceFloat(raw)
	if err != nil {
		return nil, fmt.Errorf("Float cannot represent value %s: %v", printRaw(raw), err)
	}
	return v, nil
}

func serializeString(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if n, err := coerceIntAny(raw); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	return nil, fmt.Errorf("String cannot represent value: %s", printRaw(raw))
}

func serializeBoolean(raw any) (any, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("Boolean cannot represent value: %s", printRaw(raw))
	}
	return b, nil
}

func serializeID(raw any) (any, error) {
	v, err := coerceID(raw)
	if err != nil {
		return nil, fmt.Errorf("ID cannot represent value: %s", printRaw(raw))
	}
	return v, nil
}
