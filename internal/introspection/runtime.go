// Package introspection answers the __schema and __type meta fields on the
// query root and every field of the introspection types.
package introspection

import (
	"context"
	"fmt"
	"strings"

	executor "github.com/hanpama/gqlengine/internal/executor"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// Wrap returns a Runtime that resolves introspection fields from sch and
// passes every other field to base.
func Wrap(base executor.Runtime, sch *schema.Schema) executor.Runtime {
	return &runtime{base: base, schema: sch}
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveField(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if q := r.schema.QueryType(); q != nil && objectType == q.Name() {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			return r.lookupType(args), nil
		}
	}
	if !strings.HasPrefix(objectType, "__") {
		return r.base.ResolveField(ctx, objectType, field, source, args)
	}

	switch src := source.(type) {
	case *schema.Schema:
		return r.resolveSchemaField(src, field)
	case schema.Type:
		return r.resolveTypeField(src, field, args)
	case *schema.Field:
		return r.resolveFieldField(src, field, args)
	case *schema.InputValue:
		return r.resolveInputValueField(src, field)
	case *schema.EnumValue:
		return resolveEnumValueField(src, field)
	case *schema.Directive:
		return r.resolveDirectiveField(src, field, args)
	}
	return nil, fmt.Errorf("introspection: unexpected %T source for %s.%s", source, objectType, field)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) lookupType(args map[string]any) schema.Type {
	name, _ := args["name"].(string)
	t, ok := r.schema.ResolveType(name)
	if !ok {
		return nil
	}
	return t
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}
