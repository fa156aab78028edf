package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Build validates the registry and freezes it. Every problem found is
// reported in the returned ValidationError.
func (s *Schema) Build() error {
	s.mustNotBeBuilt()
	vs := append([]*Violation{}, s.violations...)

	// Without a schema definition the roots default to their conventional names.
	if s.queryType == "" && s.mutationType == "" && s.subscriptionType == "" {
		for _, root := range []struct {
			name string
			dst  *string
		}{
			{"Query", &s.queryType},
			{"Mutation", &s.mutationType},
			{"Subscription", &s.subscriptionType},
		} {
			if _, ok := s.types[root.name]; ok {
				*root.dst = root.name
			}
		}
	}
	vs = append(vs, s.checkRoots()...)

	for _, t := range s.Types() {
		if strings.HasPrefix(t.Name(), "__") {
			vs = append(vs, violationReservedName("Type", t.Name()))
		}
	}
	for _, t := range s.AllTypes() {
		vs = append(vs, s.checkType(t)...)
	}
	for _, d := range s.AllDirectives() {
		vs = append(vs, s.checkDirectiveDefinition(d)...)
	}
	vs = append(vs, s.bindUsages(&s.usages, UsageSite{Location: LocationSchema, Owner: "schema"})...)

	s.computePossibleTypes()
	for _, t := range s.Types() {
		if obj, ok := t.(*Object); ok {
			vs = append(vs, s.checkImplementations(obj.Name(), obj.Fields(), obj.Interfaces())...)
		}
		if iface, ok := t.(*Interface); ok {
			vs = append(vs, s.checkImplementations(iface.Name(), iface.Fields(), iface.Interfaces())...)
		}
	}

	if len(vs) > 0 {
		return ValidationError(vs)
	}
	s.built = true
	return nil
}

func (s *Schema) checkRoots() []*Violation {
	var vs []*Violation
	if s.queryType == "" {
		return append(vs, &Violation{Message: "Schema must define a query root type"})
	}
	for _, root := range []struct{ op, name string }{
		{"query", s.queryType},
		{"mutation", s.mutationType},
		{"subscription", s.subscriptionType},
	} {
		if root.name == "" {
			continue
		}
		t, ok := s.ResolveType(root.name)
		if !ok {
			vs = append(vs, violationUnknownType(root.name, root.op+" root"))
			continue
		}
		if _, ok := t.(*Object); !ok {
			vs = append(vs, violationRootType(root.op, root.name))
		}
	}
	return vs
}

func (s *Schema) checkType(t Named) []*Violation {
	var vs []*Violation
	switch tt := t.(type) {
	case *Scalar:
		vs = append(vs, s.bindUsages(&tt.directiveSet, UsageSite{Location: LocationScalar, Owner: "scalar " + tt.Name(), Type: tt})...)
	case *Enum:
		vs = append(vs, s.bindUsages(&tt.directiveSet, UsageSite{Location: LocationEnum, Owner: "enum " + tt.Name(), Type: tt})...)
		if len(tt.values) == 0 {
			vs = append(vs, violationEmptyType("Enum", tt.Name()))
		}
		for _, v := range tt.values {
			vs = append(vs, s.bindUsages(&v.directiveSet, UsageSite{Location: LocationEnumValue, Owner: "enum value " + tt.Name() + "." + v.Name, Type: tt})...)
		}
	case *InputObject:
		vs = append(vs, s.bindUsages(&tt.directiveSet, UsageSite{Location: LocationInputObject, Owner: "input " + tt.Name(), Type: tt})...)
		if len(tt.fields) == 0 {
			vs = append(vs, violationEmptyType("Input object", tt.Name()))
		}
		for _, f := range tt.fields {
			vs = append(vs, s.checkInputValue(f, LocationInputFieldDefinition, "input field "+tt.Name()+"."+f.Name)...)
		}
		if tt.IsOneOf() {
			for _, f := range tt.fields {
				if f.Type.Kind == TypeRefKindNonNull || f.HasDefault {
					vs = append(vs, &Violation{Message: fmt.Sprintf("oneOf input field %s.%s must be nullable and have no default", tt.Name(), f.Name)})
				}
			}
		}
	case *Object:
		vs = append(vs, s.bindUsages(&tt.directiveSet, UsageSite{Location: LocationObject, Owner: "type " + tt.Name(), Type: tt})...)
		vs = append(vs, s.checkFields(tt.Name(), tt.fields)...)
	case *Interface:
		vs = append(vs, s.bindUsages(&tt.directiveSet, UsageSite{Location: LocationInterface, Owner: "interface " + tt.Name(), Type: tt})...)
		vs = append(vs, s.checkFields(tt.Name(), tt.fields)...)
	case *Union:
		vs = append(vs, s.bindUsages(&tt.directiveSet, UsageSite{Location: LocationUnion, Owner: "union " + tt.Name(), Type: tt})...)
		if len(tt.members) == 0 {
			vs = append(vs, violationEmptyType("Union", tt.Name()))
		}
		for _, m := range tt.members {
			mt, ok := s.ResolveType(m)
			if !ok {
				vs = append(vs, violationUnknownType(m, "union "+tt.Name()))
				continue
			}
			if _, ok := mt.(*Object); !ok {
				vs = append(vs, violationUnionMember(tt.Name(), m))
			}
		}
	}
	return vs
}

func (s *Schema) checkFields(owner string, fields []*Field) []*Violation {
	var vs []*Violation
	if len(fields) == 0 {
		vs = append(vs, violationEmptyType("Type", owner))
	}
	for _, f := range fields {
		where := "field " + owner + "." + f.Name
		if strings.HasPrefix(f.Name, "__") && !strings.HasPrefix(owner, "__") {
			vs = append(vs, violationReservedName("Field", f.Name))
		}
		ft, err := s.TypeOf(f.Type)
		if err != nil {
			vs = append(vs, typeRefViolation(err, f.Type, where))
		} else if !IsOutputType(ft) {
			vs = append(vs, violationTypeNotOutput(ft.String(), where))
		}
		for _, a := range f.Arguments {
			vs = append(vs, s.checkInputValue(a, LocationArgumentDefinition, "argument "+owner+"."+f.Name+"("+a.Name+":)")...)
		}
		if ft != nil {
			vs = append(vs, s.bindUsages(&f.directiveSet, UsageSite{Location: LocationFieldDefinition, Owner: where, Type: ft})...)
		}
	}
	return vs
}

func (s *Schema) checkInputValue(v *InputValue, loc DirectiveLocation, where string) []*Violation {
	var vs []*Violation
	t, err := s.TypeOf(v.Type)
	if err != nil {
		return append(vs, typeRefViolation(err, v.Type, where))
	}
	if !IsInputType(t) {
		return append(vs, violationTypeNotInput(t.String(), where))
	}
	if v.HasDefault {
		def, err := s.Coerce(v.DefaultValue, t)
		if err != nil {
			vs = append(vs, violationInvalidDefault(where, err))
		} else {
			v.defaultValue = def
		}
	}
	return append(vs, s.bindUsages(&v.directiveSet, UsageSite{Location: loc, Owner: where, Type: t})...)
}

func (s *Schema) checkDirectiveDefinition(d *Directive) []*Violation {
	var vs []*Violation
	if len(d.Locations) == 0 {
		vs = append(vs, &Violation{Message: fmt.Sprintf("Directive @%s must declare at least one location", d.Name)})
	}
	for _, a := range d.Arguments {
		vs = append(vs, s.checkInputValue(a, LocationArgumentDefinition, "argument @"+d.Name+"("+a.Name+":)")...)
	}
	return vs
}

func (s *Schema) checkImplementations(name string, fields []*Field, ifaces []string) []*Violation {
	var vs []*Violation
	for _, in := range ifaces {
		t, ok := s.ResolveType(in)
		if !ok {
			vs = append(vs, violationUnknownType(in, "type "+name))
			continue
		}
		iface, ok := t.(*Interface)
		if !ok {
			vs = append(vs, violationNotInterface(name, in))
			continue
		}
		for _, want := range iface.Fields() {
			var got *Field
			for _, f := range fields {
				if f.Name == want.Name {
					got = f
				}
			}
			if got == nil {
				vs = append(vs, violationInterfaceField(name, in, want.Name, "is missing"))
				continue
			}
			gt, err1 := s.TypeOf(got.Type)
			wt, err2 := s.TypeOf(want.Type)
			if err1 == nil && err2 == nil && !s.isSubtype(gt, wt) {
				vs = append(vs, violationInterfaceField(name, in, want.Name, "has type "+gt.String()+", expected "+wt.String()))
			}
			for _, wa := range want.Arguments {
				if _, ok := got.Argument(wa.Name); !ok {
					vs = append(vs, violationInterfaceField(name, in, want.Name, "is missing argument "+wa.Name))
				}
			}
		}
	}
	return vs
}

// isSubtype extends IsAssignable with object/interface/union membership for
// output field covariance.
func (s *Schema) isSubtype(sub, super Type) bool {
	if IsAssignable(sub, super) {
		return true
	}
	if sn, ok := super.(*NonNull); ok {
		bn, ok := sub.(*NonNull)
		return ok && s.isSubtype(bn.OfType, sn.OfType)
	}
	if bn, ok := sub.(*NonNull); ok {
		return s.isSubtype(bn.OfType, super)
	}
	if sl, ok := super.(*List); ok {
		bl, ok := sub.(*List)
		return ok && s.isSubtype(bl.OfType, sl.OfType)
	}
	obj, ok1 := sub.(*Object)
	abs, ok2 := super.(Named)
	return ok1 && ok2 && IsAbstractType(abs) && s.IsPossibleType(abs, obj)
}

func (s *Schema) computePossibleTypes() {
	s.possible = map[string][]*Object{}
	for _, t := range s.AllTypes() {
		switch tt := t.(type) {
		case *Object:
			for _, in := range tt.Interfaces() {
				s.possible[in] = append(s.possible[in], tt)
			}
		case *Union:
			for _, m := range tt.Members() {
				if obj := s.objectType(m); obj != nil {
					s.possible[tt.Name()] = append(s.possible[tt.Name()], obj)
				}
			}
		}
	}
}

func typeRefViolation(err error, ref *TypeRef, where string) *Violation {
	if errors.Is(err, ErrUnknownType) {
		return violationUnknownType(ref.GetNamedType(), where)
	}
	return &Violation{Message: fmt.Sprintf("Invalid type %s for %s: %v", ref, where, err)}
}
