package executor

import (
	"context"
	"fmt"
	"reflect"

	normalizer "github.com/hanpama/gqlengine/internal/normalizer"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// coerceVariableValues coerces request variables against the declared
// variable types. Absent variables take their default or stay absent.
func coerceVariableValues(sch *schema.Schema, op *normalizer.Operation, variableValues map[string]any) (map[string]schema.Value, error) {
	coerced := make(map[string]schema.Value, len(op.Variables))
	for _, v := range op.Variables {
		raw, ok := variableValues[v.Name]
		if !ok {
			if v.Default != nil {
				coerced[v.Name] = v.Default
				continue
			}
			if _, nonNull := v.Type.(*schema.NonNull); nonNull {
				return nil, &schema.CoercionError{
					Kind:    schema.ValueCannotBeNull,
					Path:    schema.Path{"$" + v.Name},
					Message: fmt.Sprintf("variable $%s of required type %s was not provided", v.Name, v.Type),
				}
			}
			continue
		}
		cv, err := sch.CoerceAt(raw, v.Type, schema.Path{"$" + v.Name})
		if err != nil {
			return nil, err
		}
		coerced[v.Name] = cv
	}
	return coerced, nil
}

// outputValue coerces a resolver result against a field's output type.
// Object and abstract results become ObjectValues carrying the concrete type.
// A failing item of a nullable list type is recorded and replaced by null.
func (state *executionState) outputValue(ctx context.Context, parent *schema.Object, f *normalizer.Field, raw any, t schema.Type, path Path) (schema.Value, error) {
	if nn, ok := t.(*schema.NonNull); ok {
		if isNullish(raw) {
			return nil, state.nonNullError(parent, f, path)
		}
		return state.outputValueOf(ctx, parent, f, raw, nn.OfType, t, path)
	}
	if isNullish(raw) {
		return schema.NewNullValue(t), nil
	}
	return state.outputValueOf(ctx, parent, f, raw, t, t, path)
}

func (state *executionState) outputValueOf(ctx context.Context, parent *schema.Object, f *normalizer.Field, raw any, t, declared schema.Type, path Path) (schema.Value, error) {
	switch tt := t.(type) {
	case *schema.List:
		items, ok := sliceOf(raw)
		if !ok {
			return nil, &GraphQLError{Message: fmt.Sprintf("Expected list value for %s, got %T", declared, raw), Path: path}
		}
		values := make([]schema.Value, len(items))
		_, itemNonNull := tt.OfType.(*schema.NonNull)
		for i, item := range items {
			v, err := state.outputValue(ctx, parent, f, item, tt.OfType, appendPath(path, i))
			if err != nil {
				if itemNonNull {
					return nil, err
				}
				state.addError(f, err, appendPath(path, i))
				v = schema.NewNullValue(tt.OfType)
			}
			values[i] = v
		}
		return schema.NewListValue(declared, values), nil
	case *schema.Scalar:
		out, err := tt.Serialize(raw)
		if err != nil {
			return nil, &GraphQLError{Message: err.Error(), Path: path}
		}
		return schema.NewScalarValue(declared, out), nil
	case *schema.Enum:
		v, err := state.schema.Coerce(enumName(raw), tt)
		if err != nil {
			return nil, &GraphQLError{Message: fmt.Sprintf("Enum %s cannot represent value: %v", tt.Name(), raw), Path: path}
		}
		return v, nil
	case *schema.Object:
		return schema.NewObjectValue(tt, raw), nil
	case *schema.Interface, *schema.Union:
		return state.resolveAbstract(ctx, tt.(schema.Named), raw, path)
	}
	return nil, &GraphQLError{Message: fmt.Sprintf("Cannot complete value of unexpected type: %s", t), Path: path}
}

func (state *executionState) resolveAbstract(ctx context.Context, abstract schema.Named, raw any, path Path) (schema.Value, error) {
	typeName, err := state.runtime.ResolveType(ctx, abstract.Name(), raw)
	if err != nil {
		return nil, err
	}
	named, ok := state.schema.ResolveType(typeName)
	obj, isObject := named.(*schema.Object)
	if !ok || !isObject || !state.schema.IsPossibleType(abstract, obj) {
		return nil, &GraphQLError{
			Message: fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstract.Name(), typeName),
			Path:    path,
		}
	}
	return schema.NewObjectValue(obj, raw), nil
}

func enumName(raw any) any {
	if s, ok := raw.(fmt.Stringer); ok {
		return s.String()
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return raw
}

func sliceOf(raw any) ([]any, bool) {
	if direct, ok := raw.([]any); ok {
		return direct, true
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
