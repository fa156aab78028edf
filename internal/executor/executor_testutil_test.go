package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	directive "github.com/hanpama/gqlengine/internal/directive"
	language "github.com/hanpama/gqlengine/internal/language"
	normalizer "github.com/hanpama/gqlengine/internal/normalizer"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustBuildSchema builds an SDL schema with the where directives registered.
func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	sch := schema.NewSchema("")
	directive.Register(sch)
	require.NoError(t, sch.LoadSDL("test.graphql", sdl))
	require.NoError(t, sch.Build())
	return sch
}

func mustNormalize(t *testing.T, sch *schema.Schema, query string) *normalizer.Operation {
	t.Helper()
	op, err := normalizer.Normalize(sch, mustParseQuery(t, query), "")
	require.NoError(t, err)
	return op
}

func execute(t *testing.T, sch *schema.Schema, rt Runtime, query string, variables map[string]any, opts ...Option) *Result {
	t.Helper()
	return New(sch, rt, opts...).Execute(context.Background(), mustNormalize(t, sch, query), variables, nil)
}

func resultJSON(t *testing.T, res *Result) string {
	t.Helper()
	b, err := res.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}
