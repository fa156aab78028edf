package executor

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Runtime is the host integration surface for field resolution and abstract
// type resolution used by the Executor.
//
// General contract
//   - ResolveField is called once per field occurrence that survives @skip and
//     @include. The returned raw value is coerced against the field's declared
//     output type by the Executor.
//   - Errors returned from any method are converted into located GraphQL errors.
//     If the field's return type is Non-Null, the Executor propagates the null
//     up to the nearest nullable ancestor.
//   - With WithConcurrency, sibling fields are resolved on several goroutines.
//     Implementations must then be safe for concurrent use.
//   - Implementations must not mutate source or args values.
//
// Object/field identifiers
//   - objectType is the concrete GraphQL object type name (e.g. "User").
//   - field is the GraphQL field name on that type (e.g. "posts").
//   - source is the parent object value (the root value for root fields).
//   - args holds the coerced arguments. Omitted arguments without a default are
//     absent from the map; explicit nulls are present with a nil value.
type Runtime interface {
	// ResolveField resolves one field of a resolved parent object.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveField(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// ResolveType determines the concrete object type name for a value of an
	// abstract GraphQL type (interface or union). The name must be a possible
	// type of abstractType.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)
}

// FieldResolver resolves a single field from its parent value.
type FieldResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeResolver picks the object type name of an abstract value.
type TypeResolver func(ctx context.Context, value any) (string, error)

// ResolverMap is a map-backed Runtime. Fields keys are "Type.field"; fields
// without a resolver read the property of the same name from the source.
// Abstract values without a TypeResolver are typed by their "__typename" key
// or by their Go struct name.
type ResolverMap struct {
	Fields map[string]FieldResolver
	Types  map[string]TypeResolver
}

var _ Runtime = ResolverMap{}

func (m ResolverMap) ResolveField(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if r, ok := m.Fields[objectType+"."+field]; ok {
		return r(ctx, source, args)
	}
	return DefaultResolve(source, field)
}

func (m ResolverMap) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if r, ok := m.Types[abstractType]; ok {
		return r(ctx, value)
	}
	return DefaultResolveType(value)
}

// DefaultResolve reads a property from a map[string]any, or from a struct
// field whose json tag or name matches.
func DefaultResolve(source any, field string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot resolve field %q on map with %s keys", field, rv.Type().Key())
		}
		v := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			if structFieldName(sf) == field || strings.EqualFold(sf.Name, field) {
				return rv.Field(i).Interface(), nil
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("cannot resolve field %q on %T", field, source)
}

func structFieldName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return sf.Name
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return sf.Name
}

// DefaultResolveType reads "__typename" from a map value or uses the struct
// type name.
func DefaultResolveType(value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if typename, ok := m["__typename"].(string); ok {
			return typename, nil
		}
		return "", fmt.Errorf("cannot resolve type: value has no __typename")
	}
	rt := reflect.TypeOf(value)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt != nil && rt.Kind() == reflect.Struct && rt.Name() != "" {
		return rt.Name(), nil
	}
	return "", fmt.Errorf("cannot resolve type of %T", value)
}
