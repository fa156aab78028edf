package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/gqlengine/internal/executor"
	language "github.com/hanpama/gqlengine/internal/language"
	normalizer "github.com/hanpama/gqlengine/internal/normalizer"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

const librarySDL = `
type Query {
  book(id: ID!, format: Format = PLAIN): Book
  legacy: String @deprecated(reason: "use book")
}

type Book {
  title: String!
  tags: [String!]!
}

enum Format {
  PLAIN
  HTML @deprecated
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.NewSchema("")
	require.NoError(t, sch.LoadSDL("library.graphql", librarySDL))
	require.NoError(t, sch.Build())
	return sch
}

func run(t *testing.T, sch *schema.Schema, query string) string {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	op, err := normalizer.Normalize(sch, doc, "")
	require.NoError(t, err)

	base := executor.ResolverMap{Fields: map[string]executor.FieldResolver{
		"Query.book": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return map[string]any{"title": "Dune", "tags": []string{"sf"}}, nil
		},
	}}
	res := executor.New(sch, Wrap(base, sch)).Execute(context.Background(), op, nil, nil)
	b, err := res.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func TestIntrospectionQueries(t *testing.T) {
	sch := buildSchema(t)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "Root types",
			query: `{ __schema { __typename queryType { name } mutationType { name } } }`,
			want:  `{"data":{"__schema":{"__typename":"__Schema","queryType":{"name":"Query"},"mutationType":null}}}`,
		},
		{
			name:  "Wrapped field types",
			query: `{ __type(name: "Book") { kind name fields { name type { kind name ofType { kind name ofType { kind name } } } } } }`,
			want: `{"data":{"__type":{"kind":"OBJECT","name":"Book","fields":[` +
				`{"name":"title","type":{"kind":"NON_NULL","name":null,"ofType":{"kind":"SCALAR","name":"String","ofType":null}}},` +
				`{"name":"tags","type":{"kind":"NON_NULL","name":null,"ofType":{"kind":"LIST","name":null,"ofType":{"kind":"NON_NULL","name":null}}}}]}}}`,
		},
		{
			name:  "Deprecated fields hidden by default",
			query: `{ __type(name: "Query") { fields { name isDeprecated } } }`,
			want:  `{"data":{"__type":{"fields":[{"name":"book","isDeprecated":false}]}}}`,
		},
		{
			name:  "Deprecated fields on request",
			query: `{ __type(name: "Query") { fields(includeDeprecated: true) { name deprecationReason } } }`,
			want:  `{"data":{"__type":{"fields":[{"name":"book","deprecationReason":null},{"name":"legacy","deprecationReason":"use book"}]}}}`,
		},
		{
			name:  "Argument defaults",
			query: `{ __type(name: "Query") { fields { args { name defaultValue } } } }`,
			want:  `{"data":{"__type":{"fields":[{"args":[{"name":"id","defaultValue":null},{"name":"format","defaultValue":"PLAIN"}]}]}}}`,
		},
		{
			name:  "Enum values",
			query: `{ __type(name: "Format") { kind enumValues { name } fields { name } } }`,
			want:  `{"data":{"__type":{"kind":"ENUM","enumValues":[{"name":"PLAIN"}],"fields":null}}}`,
		},
		{
			name:  "Unknown type",
			query: `{ __type(name: "Missing") { name } }`,
			want:  `{"data":{"__type":null}}`,
		},
		{
			name:  "Regular fields reach the base runtime",
			query: `{ book(id: "1") { title tags } }`,
			want:  `{"data":{"book":{"title":"Dune","tags":["sf"]}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, sch, tt.query)
			// Pattern: Result comparison
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIntrospectionDirectives(t *testing.T) {
	sch := buildSchema(t)
	got := run(t, sch, `{ __schema { directives { name isRepeatable locations } } }`)
	require.Contains(t, got, `{"name":"skip","isRepeatable":false,"locations":["FIELD","FRAGMENT_SPREAD","INLINE_FRAGMENT"]}`)
}

func TestIntrospectionDisabled(t *testing.T) {
	sch := buildSchema(t)
	doc, err := language.ParseQuery(`{ __schema { queryType { name } } }`)
	require.NoError(t, err)

	_, err = normalizer.Normalize(sch, doc, "", normalizer.WithIntrospection(false))
	require.True(t, normalizer.IsKind(err, normalizer.UnknownField))

	// __typename stays available.
	doc, err = language.ParseQuery(`{ __typename }`)
	require.NoError(t, err)
	_, err = normalizer.Normalize(sch, doc, "", normalizer.WithIntrospection(false))
	require.NoError(t, err)
}
