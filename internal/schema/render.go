package schema

import (
	"sort"
	"strings"
)

// Render produces SDL from the Schema.
// Deterministic ordering: type/directive names sorted lexicographically.
// Built-in types and directives are skipped.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	renderSchemaDefinition(&b, s)

	for _, typ := range s.Types() {
		switch t := typ.(type) {
		case *Scalar:
			renderScalar(&b, t)
		case *Enum:
			renderEnum(&b, t)
		case *InputObject:
			renderInputObject(&b, t)
		case *Object:
			renderFieldsType(&b, "type", t)
		case *Interface:
			renderFieldsType(&b, "interface", t)
		case *Union:
			renderUnion(&b, t)
		}
	}

	for _, d := range s.Directives() {
		renderDirective(&b, d)
	}

	out := strings.TrimRight(b.String(), "\n") + "\n"
	return out
}

// ----- render helpers -----

func renderSchemaDefinition(b *strings.Builder, s *Schema) {
	conventional := (s.queryType == "" || s.queryType == "Query") &&
		(s.mutationType == "" || s.mutationType == "Mutation") &&
		(s.subscriptionType == "" || s.subscriptionType == "Subscription")
	if conventional && len(s.usages.pending) == 0 && s.description == "" {
		return
	}
	renderDescription(b, s.description, "")
	b.WriteString("schema")
	renderUsages(b, &s.usages)
	b.WriteString(" {\n")
	for _, root := range []struct{ op, name string }{
		{"query", s.queryType},
		{"mutation", s.mutationType},
		{"subscription", s.subscriptionType},
	} {
		if root.name != "" {
			b.WriteString("  " + root.op + ": " + root.name + "\n")
		}
	}
	b.WriteString("}\n\n")
}

func renderDescription(b *strings.Builder, desc, indent string) {
	if desc == "" {
		return
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
	// Escape triple quotes in description
	escaped := strings.ReplaceAll(desc, `"""`, `\"""`)
	for _, line := range strings.Split(escaped, "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
}

// renderUsages prints declared directive usages in declaration order.
func renderUsages(b *strings.Builder, set *directiveSet) {
	for _, p := range set.pending {
		b.WriteString(" @")
		b.WriteString(p.name)
		if len(p.args) > 0 {
			b.WriteString("(")
			for i, k := range sortedKeys(p.args) {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(k)
				b.WriteString(": ")
				b.WriteString(printRaw(p.args[k]))
			}
			b.WriteString(")")
		}
	}
}

func renderScalar(b *strings.Builder, typ *Scalar) {
	renderDescription(b, typ.Description(), "")
	b.WriteString("scalar ")
	b.WriteString(typ.Name())
	renderUsages(b, &typ.directiveSet)
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, typ *Enum) {
	renderDescription(b, typ.Description(), "")
	b.WriteString("enum ")
	b.WriteString(typ.Name())
	renderUsages(b, &typ.directiveSet)
	b.WriteString(" {\n")
	for _, val := range typ.Values() {
		renderDescription(b, val.Description, "  ")
		b.WriteString("  ")
		b.WriteString(val.Name)
		renderUsages(b, &val.directiveSet)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *InputObject) {
	renderDescription(b, typ.Description(), "")
	b.WriteString("input ")
	b.WriteString(typ.Name())
	renderUsages(b, &typ.directiveSet)
	b.WriteString(" {\n")
	for _, field := range typ.Fields() {
		renderDescription(b, field.Description, "  ")
		b.WriteString("  ")
		renderInputValue(b, field)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderFieldsType(b *strings.Builder, keyword string, typ FieldsType) {
	renderDescription(b, typ.Description(), "")
	b.WriteString(keyword)
	b.WriteString(" ")
	b.WriteString(typ.Name())
	if ifaces := typ.Interfaces(); len(ifaces) > 0 {
		b.WriteString(" implements ")
		b.WriteString(strings.Join(ifaces, " & "))
	}
	switch t := typ.(type) {
	case *Object:
		renderUsages(b, &t.directiveSet)
	case *Interface:
		renderUsages(b, &t.directiveSet)
	}
	b.WriteString(" {\n")
	for _, field := range typ.Fields() {
		renderField(b, field)
	}
	b.WriteString("}\n\n")
}

func renderUnion(b *strings.Builder, typ *Union) {
	renderDescription(b, typ.Description(), "")
	b.WriteString("union ")
	b.WriteString(typ.Name())
	renderUsages(b, &typ.directiveSet)
	b.WriteString(" = ")
	b.WriteString(strings.Join(typ.Members(), " | "))
	b.WriteString("\n\n")
}

func renderField(b *strings.Builder, field *Field) {
	renderDescription(b, field.Description, "  ")
	b.WriteString("  ")
	b.WriteString(field.Name)
	renderArguments(b, field.Arguments)
	b.WriteString(": ")
	b.WriteString(field.Type.String())
	renderUsages(b, &field.directiveSet)
	b.WriteString("\n")
}

func renderArguments(b *strings.Builder, args []*InputValue) {
	if len(args) == 0 {
		return
	}
	b.WriteString("(")
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		renderInputValue(b, arg)
	}
	b.WriteString(")")
}

func renderInputValue(b *strings.Builder, v *InputValue) {
	b.WriteString(v.Name)
	b.WriteString(": ")
	b.WriteString(v.Type.String())
	if v.HasDefault {
		b.WriteString(" = ")
		if v.defaultValue != nil {
			b.WriteString(v.defaultValue.String())
		} else {
			b.WriteString(printRaw(v.DefaultValue))
		}
	}
	renderUsages(b, &v.directiveSet)
}

func renderDirective(b *strings.Builder, directive *Directive) {
	renderDescription(b, directive.Description, "")
	b.WriteString("directive @")
	b.WriteString(directive.Name)
	renderArguments(b, directive.Arguments)
	if directive.IsRepeatable {
		b.WriteString(" repeatable")
	}
	b.WriteString(" on ")
	locs := make([]string, len(directive.Locations))
	for i, l := range directive.Locations {
		locs[i] = string(l)
	}
	sort.Strings(locs)
	b.WriteString(strings.Join(locs, " | "))
	b.WriteString("\n\n")
}
