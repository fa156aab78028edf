package introspection

import (
	"fmt"

	schema "github.com/hanpama/gqlengine/internal/schema"
)

func (r *runtime) resolveSchemaField(sch *schema.Schema, field string) (any, error) {
	switch field {
	case "description":
		return optional(sch.Description()), nil
	case "types":
		types := sch.AllTypes()
		out := make([]schema.Type, len(types))
		for i, t := range types {
			out[i] = t
		}
		return out, nil
	case "queryType":
		return objectOrNil(sch.QueryType()), nil
	case "mutationType":
		return objectOrNil(sch.MutationType()), nil
	case "subscriptionType":
		return objectOrNil(sch.SubscriptionType()), nil
	case "directives":
		return sch.AllDirectives(), nil
	}
	return nil, unknownField("__Schema", field)
}

func (r *runtime) resolveTypeField(t schema.Type, field string, args map[string]any) (any, error) {
	switch field {
	case "kind":
		return string(t.Kind()), nil
	case "ofType":
		switch w := t.(type) {
		case *schema.List:
			return w.OfType, nil
		case *schema.NonNull:
			return w.OfType, nil
		}
		return nil, nil
	}

	named, ok := t.(schema.Named)
	if !ok {
		// Wrapper types only carry kind and ofType.
		return nil, nil
	}
	switch field {
	case "name":
		return named.Name(), nil
	case "description":
		return optional(named.Description()), nil
	case "specifiedByURL":
		if s, ok := named.(*schema.Scalar); ok {
			return optional(s.SpecifiedByURL()), nil
		}
		return nil, nil
	case "fields":
		ft, ok := named.(schema.FieldsType)
		if !ok {
			return nil, nil
		}
		out := make([]*schema.Field, 0, len(ft.Fields()))
		for _, f := range ft.Fields() {
			if f.IsDeprecated && !boolArg(args, "includeDeprecated") {
				continue
			}
			out = append(out, f)
		}
		return out, nil
	case "interfaces":
		ft, ok := named.(schema.FieldsType)
		if !ok {
			return nil, nil
		}
		out := make([]schema.Type, 0, len(ft.Interfaces()))
		for _, name := range ft.Interfaces() {
			if it, ok := r.schema.ResolveType(name); ok {
				out = append(out, it)
			}
		}
		return out, nil
	case "possibleTypes":
		if !schema.IsAbstractType(named) {
			return nil, nil
		}
		objs := r.schema.PossibleTypes(named)
		out := make([]schema.Type, len(objs))
		for i, o := range objs {
			out[i] = o
		}
		return out, nil
	case "enumValues":
		e, ok := named.(*schema.Enum)
		if !ok {
			return nil, nil
		}
		out := make([]*schema.EnumValue, 0, len(e.Values()))
		for _, v := range e.Values() {
			if v.IsDeprecated && !boolArg(args, "includeDeprecated") {
				continue
			}
			out = append(out, v)
		}
		return out, nil
	case "inputFields":
		in, ok := named.(*schema.InputObject)
		if !ok {
			return nil, nil
		}
		return inputValues(in.Fields(), args), nil
	case "isOneOf":
		if in, ok := named.(*schema.InputObject); ok {
			return in.IsOneOf(), nil
		}
		return nil, nil
	}
	return nil, unknownField("__Type", field)
}

func (r *runtime) resolveFieldField(f *schema.Field, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return f.Name, nil
	case "description":
		return optional(f.Description), nil
	case "args":
		return inputValues(f.Arguments, args), nil
	case "type":
		return r.schema.TypeOf(f.Type)
	case "isDeprecated":
		return f.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), nil
	}
	return nil, unknownField("__Field", field)
}

func (r *runtime) resolveInputValueField(v *schema.InputValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optional(v.Description), nil
	case "type":
		return r.schema.TypeOf(v.Type)
	case "defaultValue":
		if d := v.Default(); d != nil {
			return d.String(), nil
		}
		return nil, nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__InputValue", field)
}

func resolveEnumValueField(v *schema.EnumValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optional(v.Description), nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__EnumValue", field)
}

func (r *runtime) resolveDirectiveField(d *schema.Directive, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return d.Name, nil
	case "description":
		return optional(d.Description), nil
	case "isRepeatable":
		return d.IsRepeatable, nil
	case "locations":
		locs := make([]string, len(d.Locations))
		for i, l := range d.Locations {
			locs[i] = string(l)
		}
		return locs, nil
	case "args":
		return inputValues(d.Arguments, args), nil
	}
	return nil, unknownField("__Directive", field)
}

func inputValues(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	out := make([]*schema.InputValue, 0, len(values))
	for _, v := range values {
		if v.IsDeprecated && !boolArg(args, "includeDeprecated") {
			continue
		}
		out = append(out, v)
	}
	return out
}

// optional maps an empty string to null.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

// objectOrNil keeps a missing root type from becoming a typed nil.
func objectOrNil(o *schema.Object) any {
	if o == nil {
		return nil
	}
	return o
}

func unknownField(typeName, field string) error {
	return fmt.Errorf("introspection: %s has no field %q", typeName, field)
}
