// Package language is the boundary to the external GraphQL parser. The rest of
// the engine consumes the untyped AST through the aliases declared here.
package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Location is a line and column in a query document, as reported in
// GraphQL errors.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// LocationOf converts an AST position. A nil position has no location.
func LocationOf(pos *Position) []Location {
	if pos == nil {
		return nil
	}
	return []Location{{Line: pos.Line, Column: pos.Column}}
}

// Locations extracts the source locations carried by a parser error, if any.
func Locations(err error) []Location {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	locs := make([]Location, 0, len(e.Locations))
	for _, l := range e.Locations {
		locs = append(locs, Location{Line: l.Line, Column: l.Column})
	}
	return locs
}
