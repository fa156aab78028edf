package schema

import (
	"context"
	"errors"
	"fmt"

	language "github.com/hanpama/gqlengine/internal/language"
)

type DirectiveLocation string

const (
	LocationQuery                DirectiveLocation = "QUERY"
	LocationMutation             DirectiveLocation = "MUTATION"
	LocationSubscription         DirectiveLocation = "SUBSCRIPTION"
	LocationField                DirectiveLocation = "FIELD"
	LocationFragmentDefinition   DirectiveLocation = "FRAGMENT_DEFINITION"
	LocationFragmentSpread       DirectiveLocation = "FRAGMENT_SPREAD"
	LocationInlineFragment       DirectiveLocation = "INLINE_FRAGMENT"
	LocationVariableDefinition   DirectiveLocation = "VARIABLE_DEFINITION"
	LocationSchema               DirectiveLocation = "SCHEMA"
	LocationScalar               DirectiveLocation = "SCALAR"
	LocationObject               DirectiveLocation = "OBJECT"
	LocationFieldDefinition      DirectiveLocation = "FIELD_DEFINITION"
	LocationArgumentDefinition   DirectiveLocation = "ARGUMENT_DEFINITION"
	LocationInterface            DirectiveLocation = "INTERFACE"
	LocationUnion                DirectiveLocation = "UNION"
	LocationEnum                 DirectiveLocation = "ENUM"
	LocationEnumValue            DirectiveLocation = "ENUM_VALUE"
	LocationInputObject          DirectiveLocation = "INPUT_OBJECT"
	LocationInputFieldDefinition DirectiveLocation = "INPUT_FIELD_DEFINITION"
)

// Directive is a directive definition. Behaviour is attached through Hooks,
// which may implement UsageValidator, ValueTransformer, or both.
type Directive struct {
	Name         string
	Description  string
	Locations    []DirectiveLocation
	Arguments    []*InputValue
	IsRepeatable bool
	Hooks        any
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) AddLocation(locs ...DirectiveLocation) *Directive {
	d.Locations = append(d.Locations, locs...)
	return d
}

func (d *Directive) AddArgument(arg *InputValue) *Directive {
	d.Arguments = append(d.Arguments, arg)
	return d
}

func (d *Directive) SetRepeatable(r bool) *Directive {
	d.IsRepeatable = r
	return d
}

func (d *Directive) SetHooks(h any) *Directive {
	d.Hooks = h
	return d
}

func (d *Directive) HasLocation(loc DirectiveLocation) bool {
	for _, l := range d.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// UsageSite describes where a directive is applied.
type UsageSite struct {
	Location DirectiveLocation
	// Owner names the annotated element for diagnostics, e.g. "field Query.items".
	Owner string
	// Type is the type of the annotated field, argument or input field, or the
	// annotated named type itself. Nil for executable locations without a type.
	Type Type
}

// UsageValidator is implemented by directive hooks that restrict where and how
// a directive may be used. It runs at schema build for declared usages and at
// normalization for usages in queries.
type UsageValidator interface {
	ValidateUsage(s *Schema, site UsageSite, args *ArgumentValues) error
}

// ValueTransformer is implemented by directive hooks that rewrite a resolved
// field value. Transformers run in usage order, each seeing the previous
// output.
type ValueTransformer interface {
	TransformValue(ctx context.Context, v Value, args *ArgumentValues) (Value, error)
}

// DirectiveUsage is a directive bound to concrete argument values.
type DirectiveUsage struct {
	Directive *Directive
	Arguments *ArgumentValues
	Location  DirectiveLocation
	Position  *language.Position
}

type pendingDirective struct {
	name string
	args map[string]any
	pos  *language.Position
}

// directiveSet collects usages declared on a schema element; they are bound by
// Build once every directive definition is known.
type directiveSet struct {
	pending    []*pendingDirective
	usages     []*DirectiveUsage
	violations []*Violation
}

// AddDirective declares a directive usage with raw argument values.
func (d *directiveSet) AddDirective(name string, args map[string]any) {
	d.pending = append(d.pending, &pendingDirective{name: name, args: args})
}

// AddDirectiveAt is AddDirective with a source position for diagnostics.
func (d *directiveSet) AddDirectiveAt(name string, args map[string]any, pos *language.Position) {
	d.pending = append(d.pending, &pendingDirective{name: name, args: args, pos: pos})
}

// Directives returns the bound usages in declaration order.
func (d *directiveSet) Directives() []*DirectiveUsage { return d.usages }

func (d *directiveSet) hasDirective(name string) bool {
	for _, p := range d.pending {
		if p.name == name {
			return true
		}
	}
	return false
}

// BindDirective resolves a directive by name and binds raw arguments to it at
// the given site. Raw arguments may contain Values, such as variable
// references, which are checked for assignability instead of being coerced.
func (s *Schema) BindDirective(name string, raw map[string]any, site UsageSite) (*DirectiveUsage, error) {
	d, ok := s.ResolveDirective(name)
	if !ok {
		return nil, fmt.Errorf("%w @%s", ErrUnknownDirective, name)
	}
	if !d.HasLocation(site.Location) {
		return nil, fmt.Errorf("%w: @%s at %s", ErrDirectiveLocation, name, site.Location)
	}
	args, err := s.CoerceArguments(d.Arguments, raw, Path{"@" + name})
	if err != nil {
		return nil, err
	}
	if v, ok := d.Hooks.(UsageValidator); ok {
		if err := v.ValidateUsage(s, site, args); err != nil {
			if errors.Is(err, ErrDirectiveUsage) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: @%s on %s: %v", ErrDirectiveUsage, name, site.Owner, err)
		}
	}
	return &DirectiveUsage{Directive: d, Arguments: args, Location: site.Location}, nil
}

// bindUsages binds every pending usage of an element. Non-repeatable
// directives may appear once.
func (s *Schema) bindUsages(set *directiveSet, site UsageSite) []*Violation {
	var vs []*Violation
	seen := map[string]bool{}
	set.usages = set.usages[:0]
	for _, p := range set.pending {
		u, err := s.BindDirective(p.name, p.args, site)
		if err != nil {
			var v *Violation
			switch {
			case errors.Is(err, ErrUnknownDirective):
				v = violationUnknownDirective(p.name, site.Owner)
			case errors.Is(err, ErrDirectiveLocation):
				v = violationDirectiveLocation(p.name, site.Location, site.Owner)
			default:
				v = violationDirectiveUsage(p.name, site.Owner, err)
			}
			if p.pos != nil {
				pv := violationWithPosition(v.Message, p.pos)
				v = pv
			}
			vs = append(vs, v)
			continue
		}
		if seen[p.name] && !u.Directive.IsRepeatable {
			vs = append(vs, violationDirectiveNotRepeatable(p.name, site.Owner))
			continue
		}
		seen[p.name] = true
		u.Position = p.pos
		set.usages = append(set.usages, u)
	}
	return append(vs, set.violations...)
}
