package schema

import (
	"fmt"
	"strconv"

	language "github.com/hanpama/gqlengine/internal/language"
)

// BuildFromSDL parses an SDL string into a new schema and builds it.
func BuildFromSDL(sdl string) (*Schema, error) {
	s := NewSchema("")
	if err := s.LoadSDL("schema.graphql", sdl); err != nil {
		return nil, err
	}
	if err := s.Build(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSDL adds the definitions of an SDL document to an unbuilt schema.
// Type extensions are merged into their base definitions. Problems are
// reported by Build.
func (s *Schema) LoadSDL(name, sdl string) error {
	s.mustNotBeBuilt()
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return err
	}
	s.LoadDocument(doc)
	return nil
}

// LoadDocument adds the definitions of a parsed SDL document.
func (s *Schema) LoadDocument(doc *language.SchemaDocument) {
	s.mustNotBeBuilt()
	for _, def := range doc.Schema {
		s.loadSchemaDefinition(def.Description, def.Directives, def.OperationTypes)
	}
	for _, def := range doc.SchemaExtension {
		s.loadSchemaDefinition("", def.Directives, def.OperationTypes)
	}
	for _, def := range doc.Definitions {
		if t := s.buildDefinition(def); t != nil {
			s.AddType(t)
		}
	}
	for _, ext := range doc.Extensions {
		s.extendDefinition(ext)
	}
	for _, d := range doc.Directives {
		s.AddDirective(s.buildDirectiveDefinition(d))
	}
}

func (s *Schema) loadSchemaDefinition(description string, dirs language.DirectiveList, ops language.OperationTypeDefinitionList) {
	if description != "" {
		s.description = description
	}
	for _, op := range ops {
		switch op.Operation {
		case language.Query:
			s.queryType = op.Type
		case language.Mutation:
			s.mutationType = op.Type
		case language.Subscription:
			s.subscriptionType = op.Type
		}
	}
	s.addUsages(&s.usages, dirs)
}

func (s *Schema) buildDefinition(def *language.Definition) Named {
	switch def.Kind {
	case language.Scalar:
		t := NewScalar(def.Name, def.Description)
		s.addUsages(&t.directiveSet, def.Directives)
		return t
	case language.Enum:
		t := NewEnum(def.Name, def.Description)
		s.addUsages(&t.directiveSet, def.Directives)
		s.addEnumValues(t, def)
		return t
	case language.InputObject:
		t := NewInputObject(def.Name, def.Description)
		s.addUsages(&t.directiveSet, def.Directives)
		s.addInputFields(t, def)
		return t
	case language.Object:
		t := NewObject(def.Name, def.Description)
		s.addUsages(&t.directiveSet, def.Directives)
		for _, in := range def.Interfaces {
			t.AddInterface(in)
		}
		for _, f := range def.Fields {
			t.AddField(s.buildField(f))
		}
		return t
	case language.Interface:
		t := NewInterface(def.Name, def.Description)
		s.addUsages(&t.directiveSet, def.Directives)
		for _, in := range def.Interfaces {
			t.AddInterface(in)
		}
		for _, f := range def.Fields {
			t.AddField(s.buildField(f))
		}
		return t
	case language.Union:
		t := NewUnion(def.Name, def.Description)
		s.addUsages(&t.directiveSet, def.Directives)
		for _, m := range def.Types {
			t.AddMember(m)
		}
		return t
	}
	s.violations = append(s.violations, violationWithPosition(fmt.Sprintf("Unsupported definition kind %s for %q", def.Kind, def.Name), def.Position))
	return nil
}

func (s *Schema) extendDefinition(ext *language.Definition) {
	base, ok := s.types[ext.Name]
	if !ok {
		s.violations = append(s.violations, violationWithPosition(fmt.Sprintf("Cannot extend unknown type %q", ext.Name), ext.Position))
		return
	}
	if base.Kind() != TypeKind(ext.Kind) {
		s.violations = append(s.violations, violationWithPosition(fmt.Sprintf("Cannot extend %s %q as %s", base.Kind(), ext.Name, ext.Kind), ext.Position))
		return
	}
	switch t := base.(type) {
	case *Scalar:
		s.addUsages(&t.directiveSet, ext.Directives)
	case *Enum:
		s.addUsages(&t.directiveSet, ext.Directives)
		s.addEnumValues(t, ext)
	case *InputObject:
		s.addUsages(&t.directiveSet, ext.Directives)
		s.addInputFields(t, ext)
	case *Object:
		s.addUsages(&t.directiveSet, ext.Directives)
		for _, in := range ext.Interfaces {
			t.AddInterface(in)
		}
		for _, f := range ext.Fields {
			t.AddField(s.buildField(f))
		}
	case *Interface:
		s.addUsages(&t.directiveSet, ext.Directives)
		for _, in := range ext.Interfaces {
			t.AddInterface(in)
		}
		for _, f := range ext.Fields {
			t.AddField(s.buildField(f))
		}
	case *Union:
		s.addUsages(&t.directiveSet, ext.Directives)
		for _, m := range ext.Types {
			t.AddMember(m)
		}
	}
}

func (s *Schema) addEnumValues(t *Enum, def *language.Definition) {
	for _, v := range def.EnumValues {
		ev := NewEnumValue(v.Name, v.Description)
		for _, d := range v.Directives {
			if d.Name == "deprecated" {
				ev.IsDeprecated = true
				ev.DeprecationReason = deprecationReason(d)
			}
		}
		s.addUsages(&ev.directiveSet, v.Directives)
		t.AddValue(ev)
	}
}

func (s *Schema) addInputFields(t *InputObject, def *language.Definition) {
	for _, f := range def.Fields {
		in := s.buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue, f.Directives)
		t.AddField(in)
	}
}

func (s *Schema) buildField(def *language.FieldDefinition) *Field {
	f := NewField(def.Name, def.Description, TypeRefFromAST(def.Type))
	for _, a := range def.Arguments {
		f.AddArgument(s.buildInputValue(a.Name, a.Description, a.Type, a.DefaultValue, a.Directives))
	}
	for _, d := range def.Directives {
		if d.Name == "deprecated" {
			f.IsDeprecated = true
			f.DeprecationReason = deprecationReason(d)
		}
	}
	s.addUsages(&f.directiveSet, def.Directives)
	return f
}

func (s *Schema) buildInputValue(name, description string, typ *language.Type, def *language.Value, dirs language.DirectiveList) *InputValue {
	in := NewInputValue(name, description, TypeRefFromAST(typ))
	if def != nil {
		raw, err := RawFromAST(def, nil)
		if err != nil {
			s.violations = append(s.violations, violationWithPosition(fmt.Sprintf("Invalid default value for %s: %v", name, err), def.Position))
		} else {
			in.SetDefault(raw)
		}
	}
	for _, d := range dirs {
		if d.Name == "deprecated" {
			in.IsDeprecated = true
			in.DeprecationReason = deprecationReason(d)
		}
	}
	s.addUsages(&in.directiveSet, dirs)
	return in
}

func (s *Schema) buildDirectiveDefinition(def *language.DirectiveDefinition) *Directive {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	for _, l := range def.Locations {
		d.AddLocation(DirectiveLocation(l))
	}
	for _, a := range def.Arguments {
		d.AddArgument(s.buildInputValue(a.Name, a.Description, a.Type, a.DefaultValue, a.Directives))
	}
	return d
}

// addUsages records the directive usages of an SDL element.
func (s *Schema) addUsages(set *directiveSet, dirs language.DirectiveList) {
	for _, d := range dirs {
		args := make(map[string]any, len(d.Arguments))
		for _, a := range d.Arguments {
			raw, err := RawFromAST(a.Value, nil)
			if err != nil {
				s.violations = append(s.violations, violationWithPosition(fmt.Sprintf("Invalid argument %s of @%s: %v", a.Name, d.Name, err), a.Position))
				continue
			}
			args[a.Name] = raw
		}
		set.AddDirectiveAt(d.Name, args, d.Position)
	}
}

func deprecationReason(d *language.Directive) string {
	if a := d.Arguments.ForName("reason"); a != nil && a.Value != nil {
		return a.Value.Raw
	}
	return "No longer supported"
}

// RawFromAST converts a literal into its raw form. Variable references are
// resolved through variable; a nil resolver rejects them.
func RawFromAST(v *language.Value, variable func(name string) (Value, error)) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case language.Variable:
		if variable == nil {
			return nil, fmt.Errorf("variable $%s is not allowed in a constant value", v.Raw)
		}
		return variable(v.Raw)
	case language.IntValue:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %s", v.Raw)
		}
		return f, nil
	case language.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %s", v.Raw)
		}
		return f, nil
	case language.StringValue, language.BlockValue:
		return v.Raw, nil
	case language.BooleanValue:
		return v.Raw == "true", nil
	case language.NullValue:
		return nil, nil
	case language.EnumValue:
		return EnumLiteral(v.Raw), nil
	case language.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			item, err := RawFromAST(c.Value, variable)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			item, err := RawFromAST(c.Value, variable)
			if err != nil {
				return nil, err
			}
			out[c.Name] = item
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported literal kind %d", v.Kind)
}
