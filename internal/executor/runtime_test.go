package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type book struct {
	Title    string `json:"title"`
	Pages    int
	internal string
}

func TestDefaultResolve(t *testing.T) {
	tests := []struct {
		name   string
		source any
		field  string
		want   any
	}{
		{"map", map[string]any{"title": "Dune"}, "title", "Dune"},
		{"map missing key", map[string]any{}, "title", nil},
		{"typed map", map[string]int{"pages": 3}, "pages", 3},
		{"struct json tag", book{Title: "Dune"}, "title", "Dune"},
		{"struct name", &book{Pages: 412}, "pages", 412},
		{"unexported field", book{internal: "x"}, "internal", nil},
		{"nil source", nil, "title", nil},
		{"nil pointer", (*book)(nil), "title", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultResolve(tt.source, tt.field)
			require.NoError(t, err)
			// Pattern: Result comparison
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, err := DefaultResolve(42, "title")
	require.Error(t, err)
}

func TestDefaultResolveType(t *testing.T) {
	name, err := DefaultResolveType(map[string]any{"__typename": "Book"})
	require.NoError(t, err)
	require.Equal(t, "Book", name)

	name, err = DefaultResolveType(&book{})
	require.NoError(t, err)
	require.Equal(t, "book", name)

	_, err = DefaultResolveType(map[string]any{})
	require.Error(t, err)
}

func TestResolverMap(t *testing.T) {
	sch := mustBuildSchema(t, `
		interface Named { name: String }
		type Person implements Named { name: String greeting(polite: Boolean = true): String }
		type Query { me: Named }
	`)
	rt := ResolverMap{
		Fields: map[string]FieldResolver{
			"Query.me": func(ctx context.Context, source any, args map[string]any) (any, error) {
				return map[string]any{"name": "Ann"}, nil
			},
			"Person.greeting": func(ctx context.Context, source any, args map[string]any) (any, error) {
				if args["polite"] == true {
					return "Good day", nil
				}
				return "Hey", nil
			},
		},
		Types: map[string]TypeResolver{
			"Named": func(ctx context.Context, value any) (string, error) { return "Person", nil },
		},
	}

	got := resultJSON(t, execute(t, sch, rt, `{ me { name ... on Person { greeting casual: greeting(polite: false) } } }`, nil))
	want := `{"data":{"me":{"name":"Ann","greeting":"Good day","casual":"Hey"}}}`
	// Pattern: Result comparison
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}
