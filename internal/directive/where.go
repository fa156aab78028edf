// Package directive provides the list-filtering where directives:
// @stringWhere, @intWhere, @floatWhere and @booleanWhere.
//
// A where directive is attached to a list field, either in a query or on the
// field definition. After the field is resolved each list element is reduced
// to a single leaf by following the dotted `field` path and tested against the
// directive's condition. The element is removed when the result equals `not`.
// Null leaves satisfy the condition only when `orNull` is set.
package directive

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	schema "github.com/hanpama/gqlengine/internal/schema"
)

type leafKind int

const (
	leafString leafKind = iota
	leafInt
	leafFloat
	leafBoolean
)

func (k leafKind) typeName() string {
	switch k {
	case leafInt:
		return "Int"
	case leafFloat:
		return "Float"
	case leafBoolean:
		return "Boolean"
	default:
		return "String"
	}
}

// where implements schema.UsageValidator and schema.ValueTransformer.
type where struct {
	name string
	kind leafKind
}

// StringWhere filters a list by a String leaf.
func StringWhere() *schema.Directive {
	return newWhere("stringWhere", leafString, "Filters list entries by a String value.").
		AddArgument(schema.NewInputValue("equals", "", schema.NamedType("String"))).
		AddArgument(schema.NewInputValue("contains", "", schema.NamedType("String"))).
		AddArgument(schema.NewInputValue("startsWith", "", schema.NamedType("String"))).
		AddArgument(schema.NewInputValue("endsWith", "", schema.NamedType("String")))
}

// IntWhere filters a list by an Int leaf.
func IntWhere() *schema.Directive {
	return newWhere("intWhere", leafInt, "Filters list entries by an Int value.").
		AddArgument(schema.NewInputValue("equals", "", schema.NamedType("Int"))).
		AddArgument(schema.NewInputValue("greaterThan", "", schema.NamedType("Int"))).
		AddArgument(schema.NewInputValue("lessThan", "", schema.NamedType("Int")))
}

// FloatWhere filters a list by a Float leaf.
func FloatWhere() *schema.Directive {
	return newWhere("floatWhere", leafFloat, "Filters list entries by a Float value.").
		AddArgument(schema.NewInputValue("equals", "", schema.NamedType("Float"))).
		AddArgument(schema.NewInputValue("greaterThan", "", schema.NamedType("Float"))).
		AddArgument(schema.NewInputValue("lessThan", "", schema.NamedType("Float")))
}

// BooleanWhere filters a list by a Boolean leaf.
func BooleanWhere() *schema.Directive {
	return newWhere("booleanWhere", leafBoolean, "Filters list entries by a Boolean value.").
		AddArgument(schema.NewInputValue("equals", "", schema.NamedType("Boolean")))
}

// Where returns fresh definitions of every where directive.
func Where() []*schema.Directive {
	return []*schema.Directive{StringWhere(), IntWhere(), FloatWhere(), BooleanWhere()}
}

// Register adds every where directive to an unbuilt schema.
func Register(s *schema.Schema) *schema.Schema {
	for _, d := range Where() {
		s.AddDirective(d)
	}
	return s
}

func newWhere(name string, kind leafKind, description string) *schema.Directive {
	nonNullBool := schema.NonNullType(schema.NamedType("Boolean"))
	return schema.NewDirective(name, description).
		AddLocation(schema.LocationField, schema.LocationFieldDefinition).
		SetRepeatable(true).
		SetHooks(&where{name: name, kind: kind}).
		AddArgument(schema.NewInputValue("field", "Dotted path from a list entry to the compared value.", schema.NamedType("String"))).
		AddArgument(schema.NewInputValue("not", "Inverts the condition.", nonNullBool).SetDefault(false)).
		AddArgument(schema.NewInputValue("orNull", "Null values satisfy the condition.", nonNullBool).SetDefault(false))
}

// ValidateUsage requires a list field whose entries lead, through the path,
// to the directive's leaf type.
func (w *where) ValidateUsage(s *schema.Schema, site schema.UsageSite, args *schema.ArgumentValues) error {
	if site.Type == nil {
		return fmt.Errorf("@%s requires a typed field", w.name)
	}
	list, ok := schema.Nullable(site.Type).(*schema.List)
	if !ok {
		return fmt.Errorf("@%s can only be used on list fields, got %s", w.name, site.Type)
	}
	path, known := pathArg(args)
	if !known {
		return fmt.Errorf("@%s: field must be a literal path, not a variable", w.name)
	}
	leaf, err := walkType(s, list.OfType, path)
	if err != nil {
		return fmt.Errorf("@%s: %w", w.name, err)
	}
	named, ok := schema.Nullable(leaf).(schema.Named)
	if !ok || named.Name() != w.kind.typeName() {
		return fmt.Errorf("@%s compares %s values, but %q leads to %s", w.name, w.kind.typeName(), strings.Join(path, "."), leaf)
	}
	return nil
}

// TransformValue removes the list entries that do not match.
func (w *where) TransformValue(ctx context.Context, v schema.Value, args *schema.ArgumentValues) (schema.Value, error) {
	if schema.IsNull(v) {
		return v, nil
	}
	list, ok := v.(*schema.ListValue)
	if !ok {
		return nil, fmt.Errorf("@%s expects a list value, got %s", w.name, v.Type())
	}
	path, _ := pathArg(args)
	not := boolArg(args, "not")
	orNull := boolArg(args, "orNull")

	var firstErr error
	list.Retain(func(i int, item schema.Value) bool {
		leaf := extract(item, path)
		ok, err := w.satisfies(leaf, args, orNull)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("@%s: entry %d: %w", w.name, i, err)
		}
		return ok != not
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return list, nil
}

func (w *where) satisfies(leaf any, args *schema.ArgumentValues, orNull bool) (bool, error) {
	if leaf == nil {
		return orNull, nil
	}
	switch w.kind {
	case leafString:
		s, ok := leaf.(string)
		if !ok {
			return false, fmt.Errorf("expected a string, got %T", leaf)
		}
		if eq, ok := stringArg(args, "equals"); ok && s != eq {
			return false, nil
		}
		if sub, ok := stringArg(args, "contains"); ok && !strings.Contains(s, sub) {
			return false, nil
		}
		if p, ok := stringArg(args, "startsWith"); ok && !strings.HasPrefix(s, p) {
			return false, nil
		}
		if p, ok := stringArg(args, "endsWith"); ok && !strings.HasSuffix(s, p) {
			return false, nil
		}
		return true, nil
	case leafBoolean:
		b, ok := leaf.(bool)
		if !ok {
			return false, fmt.Errorf("expected a boolean, got %T", leaf)
		}
		if eq, ok := args.Get("equals"); ok && !schema.IsNull(eq) && eq.Raw() != b {
			return false, nil
		}
		return true, nil
	default:
		f, ok := toFloat(leaf)
		if !ok {
			return false, fmt.Errorf("expected a number, got %T", leaf)
		}
		if eq, ok := numberArg(args, "equals"); ok && f != eq {
			return false, nil
		}
		if gt, ok := numberArg(args, "greaterThan"); ok && f < gt {
			return false, nil
		}
		if lt, ok := numberArg(args, "lessThan"); ok && f > lt {
			return false, nil
		}
		return true, nil
	}
}

// walkType follows a path through list and field types.
func walkType(s *schema.Schema, t schema.Type, path []string) (schema.Type, error) {
	for _, seg := range path {
		switch tt := schema.Nullable(t).(type) {
		case *schema.List:
			if _, err := strconv.Atoi(seg); err != nil {
				return nil, fmt.Errorf("path segment %q must index the list %s", seg, tt)
			}
			t = tt.OfType
		case *schema.InputObject:
			f, ok := tt.Field(seg)
			if !ok {
				return nil, fmt.Errorf("input %s has no field %q", tt.Name(), seg)
			}
			ft, err := s.TypeOf(f.Type)
			if err != nil {
				return nil, err
			}
			t = ft
		case schema.FieldsType:
			f, ok := tt.Field(seg)
			if !ok {
				return nil, fmt.Errorf("type %s has no field %q", tt.Name(), seg)
			}
			ft, err := s.TypeOf(f.Type)
			if err != nil {
				return nil, err
			}
			t = ft
		default:
			return nil, fmt.Errorf("path segment %q cannot select into %s", seg, t)
		}
	}
	return t, nil
}

// extract follows a path through a resolved entry and returns the raw leaf,
// or nil when any step is missing.
func extract(v schema.Value, path []string) any {
	for i, seg := range path {
		switch vv := v.(type) {
		case *schema.ListValue:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= vv.Len() {
				return nil
			}
			v = vv.Items()[idx]
		case *schema.InputObjectValue:
			next, ok := vv.Get(seg)
			if !ok {
				return nil
			}
			v = next
		case *schema.ObjectValue:
			return extractRaw(vv.Raw(), path[i:])
		default:
			return nil
		}
	}
	if v == nil {
		return nil
	}
	return v.Raw()
}

func extractRaw(raw any, path []string) any {
	for _, seg := range path {
		switch r := raw.(type) {
		case map[string]any:
			raw = r[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(r) {
				return nil
			}
			raw = r[idx]
		default:
			return nil
		}
	}
	return raw
}

// pathArg returns the split `field` argument. known is false when the path
// is still a variable reference.
func pathArg(args *schema.ArgumentValues) (path []string, known bool) {
	v, ok := args.Get("field")
	if !ok || schema.IsNull(v) {
		return nil, true
	}
	if _, isVar := v.(*schema.VariableValue); isVar {
		return nil, false
	}
	s, _ := v.Raw().(string)
	if s == "" {
		return nil, true
	}
	return strings.Split(s, "."), true
}

func boolArg(args *schema.ArgumentValues, name string) bool {
	v, ok := args.Get(name)
	if !ok {
		return false
	}
	b, _ := v.Raw().(bool)
	return b
}

func stringArg(args *schema.ArgumentValues, name string) (string, bool) {
	v, ok := args.Get(name)
	if !ok || schema.IsNull(v) {
		return "", false
	}
	s, ok := v.Raw().(string)
	return s, ok
}

func numberArg(args *schema.ArgumentValues, name string) (float64, bool) {
	v, ok := args.Get(name)
	if !ok || schema.IsNull(v) {
		return 0, false
	}
	return toFloat(v.Raw())
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
