package executor

import (
	"fmt"

	normalizer "github.com/hanpama/gqlengine/internal/normalizer"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// collectFields returns the fields of a normalized set that apply to the
// runtime object type and pass their @skip/@include conditions, in response
// order. Skipped fields never reach a resolver.
func collectFields(state *executionState, objectType *schema.Object, fields *normalizer.FieldSet, path Path) []*normalizer.Field {
	candidates := fields.ForObject(objectType)
	collected := make([]*normalizer.Field, 0, len(candidates))
	for _, f := range candidates {
		include, err := shouldIncludeField(state, f)
		if err != nil {
			state.addError(f, err, appendPath(path, f.ResponseKey()))
			continue
		}
		if include {
			collected = append(collected, f)
		}
	}
	return collected
}

// shouldIncludeField checks the field's condition groups. A field is included
// when it has no condition or when every usage of some group passes.
func shouldIncludeField(state *executionState, f *normalizer.Field) (bool, error) {
	if len(f.Conditions) == 0 {
		return true, nil
	}
	for _, group := range f.Conditions {
		pass, err := conditionHolds(state, group)
		if err != nil {
			return false, err
		}
		if pass {
			return true, nil
		}
	}
	return false, nil
}

func conditionHolds(state *executionState, group normalizer.Condition) (bool, error) {
	for _, u := range group {
		cond, err := directiveCondition(state, u)
		if err != nil {
			return false, err
		}
		switch u.Directive.Name {
		case "skip":
			if cond {
				return false, nil
			}
		case "include":
			if !cond {
				return false, nil
			}
		}
	}
	return true, nil
}

// directiveCondition gets the value of the "if" argument
func directiveCondition(state *executionState, u *schema.DirectiveUsage) (bool, error) {
	args, err := state.schema.Substitute(u.Directive.Arguments, u.Arguments, state.variables, schema.Path{"@" + u.Directive.Name})
	if err != nil {
		return false, err
	}
	v, ok := args.Get("if")
	if !ok {
		return false, fmt.Errorf("@%s requires an if argument", u.Directive.Name)
	}
	cond, ok := v.Raw().(bool)
	if !ok {
		return false, fmt.Errorf("@%s: if must be a Boolean, got %s", u.Directive.Name, v)
	}
	return cond, nil
}
