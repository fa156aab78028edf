package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// newCoercionSchema builds a small registry with the input shapes used by the
// coercion tests.
func newCoercionSchema(t *testing.T) *Schema {
	t.Helper()
	s := NewSchema("")
	s.AddType(NewEnum("Color", "").
		AddValue(NewEnumValue("RED", "")).
		AddValue(NewEnumValue("GREEN", "")))
	s.AddType(NewInputObject("Nested", "").
		AddField(NewInputValue("a", "", NamedType("Int"))).
		AddField(NewInputValue("b", "", NamedType("Int"))))
	s.AddType(NewInputObject("SimpleInput", "").
		AddField(NewInputValue("required", "", NonNullType(NamedType("String")))).
		AddField(NewInputValue("optional", "", NamedType("String")).SetDefault("default")).
		AddField(NewInputValue("nested", "", NamedType("Nested")).SetDefault(map[string]any{"a": 1})).
		AddField(NewInputValue("color", "", NamedType("Color"))))
	s.AddType(NewInputObject("Choice", "").
		SetOneOf().
		AddField(NewInputValue("a", "", NamedType("Int"))).
		AddField(NewInputValue("b", "", NamedType("String"))))
	s.AddType(NewInputObject("Range", "").
		AddField(NewInputValue("min", "", NonNullType(NamedType("Int")))).
		AddField(NewInputValue("max", "", NonNullType(NamedType("Int")))).
		SetValidator(func(v *InputObjectValue) error {
			lo, _ := v.Get("min")
			hi, _ := v.Get("max")
			if lo.Raw().(int) > hi.Raw().(int) {
				return errors.New("min must not exceed max")
			}
			return nil
		}))
	s.AddType(NewObject("Query", "").
		AddField(NewField("ok", "", NamedType("Boolean"))))
	require.NoError(t, s.Build())
	return s
}

func mustTypeOf(t *testing.T, s *Schema, ref *TypeRef) Type {
	t.Helper()
	typ, err := s.TypeOf(ref)
	require.NoError(t, err)
	return typ
}

func TestCoerceScalars(t *testing.T) {
	s := newCoercionSchema(t)

	tests := []struct {
		name string
		raw  any
		ref  *TypeRef
		want any
		kind CoercionKind
	}{
		{"int", 5, NamedType("Int"), 5, ""},
		{"int64 in range", int64(-7), NamedType("Int"), -7, ""},
		{"json number", json.Number("42"), NamedType("Int"), 42, ""},
		{"int overflow", int64(1) << 40, NamedType("Int"), nil, InvalidValue},
		{"float is not int", 1.5, NamedType("Int"), nil, InvalidValue},
		{"integral float is not int", 2.0, NamedType("Int"), nil, InvalidValue},
		{"float from int", 3, NamedType("Float"), 3.0, ""},
		{"string", "hi", NamedType("String"), "hi", ""},
		{"string rejects int", 1, NamedType("String"), nil, InvalidValue},
		{"boolean", true, NamedType("Boolean"), true, ""},
		{"id from int", 12, NamedType("ID"), "12", ""},
		{"enum string", "RED", NamedType("Color"), "RED", ""},
		{"enum literal", EnumLiteral("GREEN"), NamedType("Color"), "GREEN", ""},
		{"unknown enum member", "PINK", NamedType("Color"), nil, InvalidValue},
		{"null nullable", nil, NamedType("Int"), nil, ""},
		{"null non-null", nil, NonNullType(NamedType("Int")), nil, ValueCannotBeNull},
		{"list is not auto-wrapped", 5, ListType(NamedType("Int")), nil, InvalidValue},
		{"empty list", []any{}, ListType(NamedType("Int")), []any{}, ""},
		{"typed slice", []int{1, 2}, ListType(NonNullType(NamedType("Int"))), []any{1, 2}, ""},
		{"null list item", []any{1, nil}, ListType(NonNullType(NamedType("Int"))), nil, ValueCannotBeNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Coerce(tt.raw, mustTypeOf(t, s, tt.ref))
			if tt.kind != "" {
				require.Error(t, err)
				require.True(t, IsCoercionKind(err, tt.kind), "want %s, got %v", tt.kind, err)
				return
			}
			require.NoError(t, err)
			// Pattern: Result comparison
			if diff := cmp.Diff(tt.want, got.Raw()); diff != "" {
				t.Fatalf("coerced value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoerceInputObject(t *testing.T) {
	s := newCoercionSchema(t)
	simple := mustTypeOf(t, s, NamedType("SimpleInput"))

	t.Run("defaults are merged", func(t *testing.T) {
		got, err := s.Coerce(map[string]any{"required": "x"}, simple)
		require.NoError(t, err)
		want := map[string]any{
			"required": "x",
			"optional": "default",
			"nested":   map[string]any{"a": 1},
		}
		if diff := cmp.Diff(want, got.Raw()); diff != "" {
			t.Fatalf("input mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nested defaults merge with given keys", func(t *testing.T) {
		got, err := s.Coerce(map[string]any{"required": "x", "nested": map[string]any{"b": 2}}, simple)
		require.NoError(t, err)
		nested, provided := got.(*InputObjectValue).Get("nested")
		require.True(t, provided)
		require.Equal(t, map[string]any{"a": 1, "b": 2}, nested.Raw())
	})

	t.Run("explicit null is kept", func(t *testing.T) {
		got, err := s.Coerce(map[string]any{"required": "x", "optional": nil}, simple)
		require.NoError(t, err)
		v, provided := got.(*InputObjectValue).Get("optional")
		require.True(t, provided)
		require.True(t, IsNull(v))
	})

	t.Run("absent field is an implicit null", func(t *testing.T) {
		got, err := s.Coerce(map[string]any{"required": "x"}, simple)
		require.NoError(t, err)
		_, provided := got.(*InputObjectValue).Get("color")
		require.False(t, provided)
		require.NotContains(t, got.Raw(), "color")
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := s.Coerce(map[string]any{}, simple)
		require.True(t, IsCoercionKind(err, ValueCannotBeNull), "got %v", err)
		var ce *CoercionError
		require.ErrorAs(t, err, &ce)
		require.Equal(t, "required", ce.Path.String())
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := s.Coerce(map[string]any{"required": "x", "extra": 1}, simple)
		require.True(t, IsCoercionKind(err, UnknownField), "got %v", err)
	})

	t.Run("error path points into lists", func(t *testing.T) {
		list := mustTypeOf(t, s, ListType(NamedType("SimpleInput")))
		_, err := s.CoerceAt([]any{map[string]any{"required": "x"}, map[string]any{"required": 3}}, list, Path{"input"})
		var ce *CoercionError
		require.ErrorAs(t, err, &ce)
		require.Equal(t, "input.1.required", ce.Path.String())
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := s.Coerce("x", simple)
		require.True(t, IsCoercionKind(err, InvalidValue), "got %v", err)
	})
}

func TestCoerceOneOf(t *testing.T) {
	s := newCoercionSchema(t)
	choice := mustTypeOf(t, s, NamedType("Choice"))

	got, err := s.Coerce(map[string]any{"b": "x"}, choice)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"b": "x"}, got.Raw())

	for _, raw := range []map[string]any{
		{},
		{"a": 1, "b": "x"},
		{"a": nil},
	} {
		_, err := s.Coerce(raw, choice)
		require.True(t, IsCoercionKind(err, ConstraintViolation), "raw %v: got %v", raw, err)
	}
}

func TestCoerceValidator(t *testing.T) {
	s := newCoercionSchema(t)
	rng := mustTypeOf(t, s, NamedType("Range"))

	_, err := s.Coerce(map[string]any{"min": 1, "max": 3}, rng)
	require.NoError(t, err)

	_, err = s.Coerce(map[string]any{"min": 5, "max": 3}, rng)
	require.True(t, IsCoercionKind(err, ConstraintViolation), "got %v", err)
	require.Contains(t, err.Error(), "min must not exceed max")
}

func TestCoerceVariableReference(t *testing.T) {
	s := newCoercionSchema(t)
	intType := mustTypeOf(t, s, NamedType("Int"))
	nonNullInt := mustTypeOf(t, s, NonNullType(NamedType("Int")))
	stringType := mustTypeOf(t, s, NamedType("String"))

	v := NewVariableValue("n", intType)
	got, err := s.Coerce(v, intType)
	require.NoError(t, err)
	require.Same(t, v, got)

	_, err = s.Coerce(NewVariableValue("n", nonNullInt), intType)
	require.NoError(t, err)

	_, err = s.Coerce(v, nonNullInt)
	require.True(t, IsCoercionKind(err, TypeMismatch), "got %v", err)

	_, err = s.Coerce(v, stringType)
	require.True(t, IsCoercionKind(err, TypeMismatch), "got %v", err)

	// variables nested in lists keep their position
	list, err := s.Coerce([]any{1, v}, mustTypeOf(t, s, ListType(NamedType("Int"))))
	require.NoError(t, err)
	require.True(t, ContainsVariables(list))
	require.Equal(t, "[1, $n]", list.String())
}

func TestCoerceArguments(t *testing.T) {
	s := newCoercionSchema(t)
	defs := []*InputValue{
		NewInputValue("first", "", NamedType("Int")).SetDefault(10),
		NewInputValue("after", "", NamedType("String")),
		NewInputValue("id", "", NonNullType(NamedType("ID"))),
	}

	args, err := s.CoerceArguments(defs, map[string]any{"id": 1}, Path{"items"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"first": 10, "id": "1"}, args.Raw())

	_, err = s.CoerceArguments(defs, map[string]any{}, Path{"items"})
	require.True(t, IsCoercionKind(err, ValueCannotBeNull), "got %v", err)

	_, err = s.CoerceArguments(defs, map[string]any{"id": "a", "last": 1}, Path{"items"})
	require.True(t, IsCoercionKind(err, UnknownArgument), "got %v", err)
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "items.last", ce.Path.String())
}

func TestSubstitute(t *testing.T) {
	s := newCoercionSchema(t)
	intType := mustTypeOf(t, s, NamedType("Int"))
	nonNullString := mustTypeOf(t, s, NonNullType(NamedType("String")))
	defs := []*InputValue{
		NewInputValue("first", "", NamedType("Int")).SetDefault(10),
		NewInputValue("filter", "", NamedType("SimpleInput")),
	}

	args, err := s.CoerceArguments(defs, map[string]any{
		"first":  NewVariableValue("n", intType),
		"filter": map[string]any{"required": NewVariableValue("s", nonNullString)},
	}, nil)
	require.NoError(t, err)
	require.True(t, args.HasVariables())

	n, err := s.Coerce(3, intType)
	require.NoError(t, err)
	str, err := s.Coerce("x", nonNullString)
	require.NoError(t, err)

	got, err := s.Substitute(defs, args, map[string]Value{"n": n, "s": str}, nil)
	require.NoError(t, err)
	want := map[string]any{
		"first": 3,
		"filter": map[string]any{
			"required": "x",
			"optional": "default",
			"nested":   map[string]any{"a": 1},
		},
	}
	if diff := cmp.Diff(want, got.Raw()); diff != "" {
		t.Fatalf("substituted arguments mismatch (-want +got):\n%s", diff)
	}

	// an absent variable leaves the argument absent so its default applies,
	// and the nested non-null field is checked again
	_, err = s.Substitute(defs, args, map[string]Value{"n": n}, nil)
	require.True(t, IsCoercionKind(err, ValueCannotBeNull), "got %v", err)

	partial, err := s.CoerceArguments(defs, map[string]any{"first": NewVariableValue("n", intType)}, nil)
	require.NoError(t, err)
	got, err = s.Substitute(defs, partial, map[string]Value{}, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"first": 10}, got.Raw())
}

func TestValueIsSame(t *testing.T) {
	s := newCoercionSchema(t)
	intType := mustTypeOf(t, s, NamedType("Int"))
	nonNullInt := mustTypeOf(t, s, NonNullType(NamedType("Int")))

	require.True(t, NewVariableValue("a", intType).IsSame(NewVariableValue("a", intType)))
	require.False(t, NewVariableValue("a", intType).IsSame(NewVariableValue("b", intType)))
	require.False(t, NewVariableValue("a", intType).IsSame(NewVariableValue("a", nonNullInt)))

	x, err := s.Coerce([]any{1, 2}, mustTypeOf(t, s, ListType(NamedType("Int"))))
	require.NoError(t, err)
	y, err := s.Coerce([]int{1, 2}, mustTypeOf(t, s, ListType(NamedType("Int"))))
	require.NoError(t, err)
	require.True(t, x.IsSame(y))

	z, err := s.Coerce([]any{2, 1}, mustTypeOf(t, s, ListType(NamedType("Int"))))
	require.NoError(t, err)
	require.False(t, x.IsSame(z))
}

func TestIsAssignable(t *testing.T) {
	s := newCoercionSchema(t)
	ty := func(ref *TypeRef) Type { return mustTypeOf(t, s, ref) }
	intRef := NamedType("Int")

	tests := []struct {
		from, to *TypeRef
		want     bool
	}{
		{intRef, intRef, true},
		{NonNullType(intRef), intRef, true},
		{intRef, NonNullType(intRef), false},
		{ListType(NonNullType(intRef)), ListType(intRef), true},
		{ListType(intRef), ListType(NonNullType(intRef)), false},
		{ListType(intRef), intRef, false},
		{intRef, ListType(intRef), false},
		{NamedType("String"), intRef, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsAssignable(ty(tt.from), ty(tt.to)), "%s -> %s", tt.from, tt.to)
	}
}

func TestSerializeBuiltins(t *testing.T) {
	s := newCoercionSchema(t)
	scalar := func(name string) *Scalar {
		typ, _ := s.ResolveType(name)
		return typ.(*Scalar)
	}

	v, err := scalar("Int").Serialize(4.0)
	require.NoError(t, err)
	require.Equal(t, 4, v)

	_, err = scalar("Int").Serialize(4.5)
	require.Error(t, err)

	_, err = scalar("Int").Serialize(int64(1) << 33)
	require.Error(t, err)

	v, err = scalar("String").Serialize(12)
	require.NoError(t, err)
	require.Equal(t, "12", v)

	v, err = scalar("ID").Serialize(int64(9))
	require.NoError(t, err)
	require.Equal(t, "9", v)

	_, err = scalar("Boolean").Serialize("true")
	require.Error(t, err)
}
