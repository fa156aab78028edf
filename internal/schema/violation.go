package schema

import (
	"fmt"
	"strconv"

	language "github.com/hanpama/gqlengine/internal/language"
)

// Violation is a single schema construction problem.
type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"positionStart,omitempty"`
	Column  int    `json:"positionEnd,omitempty"`
}

// ValidationError is returned by Build when the schema cannot be constructed.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.File != "" {
			line += fmt.Sprintf(" %s:%d:%d", v.File, v.Line, v.Column)
		}
		msg += line + "\n"
	}
	return msg
}

func violationWithPosition(message string, pos *language.Position) *Violation {
	v := &Violation{Message: message}
	if pos != nil {
		if pos.Src != nil {
			v.File = pos.Src.Name
		}
		v.Line = pos.Line
		v.Column = pos.Column
	}
	return v
}

func quote(s string) string { return strconv.Quote(s) }

func violationDuplicateType(name string) *Violation {
	return &Violation{Message: fmt.Sprintf("Duplicate type %q", name)}
}

func violationBuiltinCollision(kind, name string) *Violation {
	return &Violation{Message: fmt.Sprintf("%s %q collides with a built-in definition", kind, name)}
}

func violationUnknownType(name, where string) *Violation {
	return &Violation{Message: fmt.Sprintf("Unknown type %q referenced by %s", name, where)}
}

func violationTypeNotInput(typ, where string) *Violation {
	return &Violation{Message: fmt.Sprintf("%s has type %s which is not an input type", where, typ)}
}

func violationTypeNotOutput(typ, where string) *Violation {
	return &Violation{Message: fmt.Sprintf("%s has type %s which is not an output type", where, typ)}
}

func violationInvalidDefault(where string, err error) *Violation {
	return &Violation{Message: fmt.Sprintf("Invalid default value for %s: %v", where, err)}
}

func violationUnknownDirective(name, where string) *Violation {
	return &Violation{Message: fmt.Sprintf("Unknown directive @%s on %s", name, where)}
}

func violationDirectiveLocation(name string, loc DirectiveLocation, where string) *Violation {
	return &Violation{Message: fmt.Sprintf("Directive @%s is not allowed at %s (%s)", name, loc, where)}
}

func violationDirectiveNotRepeatable(name, where string) *Violation {
	return &Violation{Message: fmt.Sprintf("Directive @%s may not be repeated on %s", name, where)}
}

func violationDirectiveUsage(name, where string, err error) *Violation {
	return &Violation{Message: fmt.Sprintf("Invalid usage of @%s on %s: %v", name, where, err)}
}

func violationReservedName(kind, name string) *Violation {
	return &Violation{Message: fmt.Sprintf("%s name %q cannot start with '__' (reserved prefix)", kind, name)}
}

func violationRootType(op, name string) *Violation {
	return &Violation{Message: fmt.Sprintf("Root %s type %q must be an object type", op, name)}
}

func violationInterfaceField(typ, iface, field, reason string) *Violation {
	return &Violation{Message: fmt.Sprintf("Type %q does not correctly implement %q: field %q %s", typ, iface, field, reason)}
}

func violationNotInterface(typ, name string) *Violation {
	return &Violation{Message: fmt.Sprintf("Type %q implements %q which is not an interface", typ, name)}
}

func violationUnionMember(union, name string) *Violation {
	return &Violation{Message: fmt.Sprintf("Union %q member %q must be an object type", union, name)}
}

func violationEmptyType(kind, name string) *Violation {
	return &Violation{Message: fmt.Sprintf("%s %q must define at least one member", kind, name)}
}
