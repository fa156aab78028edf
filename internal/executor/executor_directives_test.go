package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const directivesSDL = `
type Product {
  name: String
  price: Float
}

type Query {
  a: String
  b: String
  c: String
  prices: [Float]
  products: [Product]
  expensive: [Product] @floatWhere(field: "price", greaterThan: 10)
}
`

func directivesRuntime() *MockRuntime {
	products := []any{
		map[string]any{"name": "apple", "price": 5.0},
		map[string]any{"name": "bread", "price": 20.0},
		map[string]any{"name": "cheese", "price": 30.0},
	}
	return NewMockRuntime(map[string]MockResolver{
		"Query.a":         NewMockValueResolver("A"),
		"Query.b":         NewMockValueResolver("B"),
		"Query.c":         NewMockValueResolver("C"),
		"Query.prices":    NewMockValueResolver([]any{3.0, nil, 7.0}),
		"Query.products":  NewMockValueResolver(products),
		"Query.expensive": NewMockValueResolver(products),
	})
}

func TestExecuteGating(t *testing.T) {
	sch := mustBuildSchema(t, directivesSDL)

	tests := []struct {
		name      string
		query     string
		variables map[string]any
		want      string
		skipped   []string
	}{
		{
			name:    "Literal conditions",
			query:   `{ a @skip(if: true) b @include(if: false) c }`,
			want:    `{"data":{"c":"C"}}`,
			skipped: []string{"a", "b"},
		},
		{
			name:  "Passing conditions",
			query: `{ a @skip(if: false) b @include(if: true) }`,
			want:  `{"data":{"a":"A","b":"B"}}`,
		},
		{
			name:      "Variable conditions",
			query:     `query($skip: Boolean!, $include: Boolean!) { a @skip(if: $skip) b @include(if: $include) }`,
			variables: map[string]any{"skip": true, "include": true},
			want:      `{"data":{"b":"B"}}`,
			skipped:   []string{"a"},
		},
		{
			name:    "Both directives must pass",
			query:   `{ a @include(if: true) @skip(if: true) c }`,
			want:    `{"data":{"c":"C"}}`,
			skipped: []string{"a"},
		},
		{
			name:  "One passing occurrence keeps the field",
			query: `{ a @skip(if: true) ... on Query { a } }`,
			want:  `{"data":{"a":"A"}}`,
		},
		{
			name:    "Gated fragment",
			query:   `{ ... @skip(if: true) { a b } c }`,
			want:    `{"data":{"c":"C"}}`,
			skipped: []string{"a", "b"},
		},
		{
			name:    "Gated fragment spread",
			query:   `query { ...F @include(if: false) c } fragment F on Query { a }`,
			want:    `{"data":{"c":"C"}}`,
			skipped: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := directivesRuntime()
			got := resultJSON(t, execute(t, sch, rt, tt.query, tt.variables))
			// Pattern: Result comparison
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
			for _, field := range tt.skipped {
				require.Equal(t, 0, rt.CallCount("Query", field), "resolver for %s was called", field)
			}
		})
	}
}

func TestExecuteWhereDirectives(t *testing.T) {
	sch := mustBuildSchema(t, directivesSDL)

	tests := []struct {
		name      string
		query     string
		variables map[string]any
		want      string
	}{
		{
			name:  "Float list with nulls",
			query: `{ prices @floatWhere(greaterThan: 5, orNull: true) }`,
			want:  `{"data":{"prices":[null,7]}}`,
		},
		{
			name:  "Nulls dropped by default",
			query: `{ prices @floatWhere(greaterThan: 5) }`,
			want:  `{"data":{"prices":[7]}}`,
		},
		{
			name:  "Inverted",
			query: `{ prices @floatWhere(greaterThan: 5, not: true) }`,
			want:  `{"data":{"prices":[3,null]}}`,
		},
		{
			name:      "Variable argument",
			query:     `query($min: Float) { prices @floatWhere(lessThan: $min) }`,
			variables: map[string]any{"min": 5},
			want:      `{"data":{"prices":[3]}}`,
		},
		{
			name:  "Object entries by path",
			query: `{ products @floatWhere(field: "price", lessThan: 25) { name } }`,
			want:  `{"data":{"products":[{"name":"apple"},{"name":"bread"}]}}`,
		},
		{
			name:  "Repeated directives",
			query: `{ products @floatWhere(field: "price", lessThan: 25) @stringWhere(field: "name", startsWith: "b") { name } }`,
			want:  `{"data":{"products":[{"name":"bread"}]}}`,
		},
		{
			name:  "Definition directive",
			query: `{ expensive { name } }`,
			want:  `{"data":{"expensive":[{"name":"bread"},{"name":"cheese"}]}}`,
		},
		{
			name:  "Definition directive runs before query directive",
			query: `{ expensive @stringWhere(field: "name", startsWith: "c") { name } }`,
			want:  `{"data":{"expensive":[{"name":"cheese"}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultJSON(t, execute(t, sch, directivesRuntime(), tt.query, tt.variables))
			// Pattern: Result comparison
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteWhereFiltersBeforeChildren(t *testing.T) {
	sch := mustBuildSchema(t, directivesSDL)
	rt := directivesRuntime()

	res := execute(t, sch, rt, `{ products @stringWhere(field: "name", equals: "bread") { name price } }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, rt.CallCount("Product", "name"))
	require.Equal(t, 1, rt.CallCount("Product", "price"))
}

func TestExecuteWhereEntryError(t *testing.T) {
	sch := mustBuildSchema(t, directivesSDL)
	rt := directivesRuntime()
	rt.SetResolver("Query", "products", NewMockValueResolver([]any{
		map[string]any{"name": 12},
	}))

	res := execute(t, sch, rt, `{ products @stringWhere(field: "name", equals: "x") { name } }`, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, Path{"products"}, res.Errors[0].Path)
	require.Contains(t, res.Errors[0].Message, "@stringWhere")
	got, _ := res.Data.Get("products")
	require.Nil(t, got)
}

func TestExecuteMergedFieldUsesRuntimeTypeDefinition(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Cheap { prices: [Float] }
		type Pricey { prices: [Float] @floatWhere(greaterThan: 10) }
		union Box = Cheap | Pricey
		type Query { boxes: [Box] }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.boxes": NewMockValueResolver([]any{
			map[string]any{"__typename": "Cheap", "prices": []any{5.0, 20.0}},
			map[string]any{"__typename": "Pricey", "prices": []any{5.0, 20.0}},
		}),
	})

	got := resultJSON(t, execute(t, sch, rt, `{ boxes { ... on Cheap { prices } ... on Pricey { prices } } }`, nil))
	want := `{"data":{"boxes":[{"prices":[5,20]},{"prices":[20]}]}}`
	// Pattern: Result comparison
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}
