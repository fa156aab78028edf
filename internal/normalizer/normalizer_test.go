package normalizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	directive "github.com/hanpama/gqlengine/internal/directive"
	language "github.com/hanpama/gqlengine/internal/language"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

const librarySDL = `
interface Node { id: ID! }

type Book implements Node {
	id: ID!
	title: String
	price: Float
	author: Author
}

type Author implements Node {
	id: ID!
	name: String
	books: [Book]
}

union SearchResult = Book | Author

input BookInput {
	title: String!
	copies: Int = 1
}

type Query {
	book(id: ID!): Book
	books(first: Int, filter: BookInput): [Book]
	search(text: String): [SearchResult]
	node(id: ID!): Node
	prices: [Float]
	title: String
}

type Mutation {
	addBook(input: BookInput!): Book
}
`

func newLibrarySchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.NewSchema("")
	directive.Register(s)
	require.NoError(t, s.LoadSDL("library.graphql", librarySDL))
	require.NoError(t, s.Build())
	return s
}

func mustParseQuery(t *testing.T, src string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(src)
	require.NoError(t, err)
	return doc
}

func normalize(t *testing.T, s *schema.Schema, src, operationName string, opts ...Option) (*Operation, error) {
	t.Helper()
	return Normalize(s, mustParseQuery(t, src), operationName, opts...)
}

func mustNormalize(t *testing.T, s *schema.Schema, src string) *Operation {
	t.Helper()
	op, err := normalize(t, s, src, "")
	require.NoError(t, err)
	return op
}

func TestNormalizeOperationSelection(t *testing.T) {
	s := newLibrarySchema(t)
	doc := `query A { title } query B { prices }`

	t.Run("named", func(t *testing.T) {
		op, err := normalize(t, s, doc, "B")
		require.NoError(t, err)
		require.Equal(t, "B", op.Name)
		require.Equal(t, "prices", op.Fields.Fields()[0].Name)
	})
	t.Run("ambiguous", func(t *testing.T) {
		_, err := normalize(t, s, doc, "")
		require.True(t, IsKind(err, AmbiguousOperation), "got %v", err)
	})
	t.Run("unknown", func(t *testing.T) {
		_, err := normalize(t, s, doc, "C")
		require.True(t, IsKind(err, UnknownOperation), "got %v", err)
	})
	t.Run("mutation root", func(t *testing.T) {
		op, err := normalize(t, s, `mutation { addBook(input: {title: "Dune"}) { id } }`, "")
		require.NoError(t, err)
		require.Equal(t, language.Mutation, op.Type)
		require.Equal(t, "Mutation", op.RootType.Name())
	})
	t.Run("missing root", func(t *testing.T) {
		_, err := normalize(t, s, `subscription { title }`, "")
		require.True(t, IsKind(err, UnknownRootType), "got %v", err)
	})
}

func TestNormalizeErrors(t *testing.T) {
	s := newLibrarySchema(t)

	tests := []struct {
		name  string
		query string
		kind  ErrorKind
	}{
		{"unknown field", `{ missing }`, UnknownField},
		{"selection on leaf", `{ title { length } }`, SelectionMismatch},
		{"missing selection", `{ book(id: "1") }`, SelectionMismatch},
		{"unknown argument", `{ book(id: "1", bogus: 1) { id } }`, UnknownArgument},
		{"missing required argument", `{ book { id } }`, Coercion},
		{"invalid literal", `{ books(first: "ten") { id } }`, Coercion},
		{"nullable variable for non-null argument", `query($id: ID) { book(id: $id) { id } }`, VariableTypeMismatch},
		{"variable of another type", `query($first: String) { books(first: $first) { id } }`, VariableTypeMismatch},
		{"undefined variable", `{ book(id: $nope) { id } }`, UnknownVariable},
		{"undefined variable in object", `{ books(filter: {title: $nope}) { id } }`, UnknownVariable},
		{"output variable type", `query($b: Book) { title }`, VariableTypeInputable},
		{"unknown variable type", `query($b: Nope) { title }`, UnknownType},
		{"duplicate variable", `query($a: Int, $a: Int) { title }`, DuplicateVariable},
		{"invalid variable default", `query($a: Int = "x") { title }`, Coercion},
		{"unknown fragment", `{ ...Missing }`, UnknownFragment},
		{"fragment cycle", `{ ...A } fragment A on Query { ...B } fragment B on Query { title ...A }`, FragmentCycle},
		{"fragment on scalar", `{ book(id: "1") { ... on String { id } } }`, FragmentOnNonComposite},
		{"fragment on unknown type", `{ book(id: "1") { ... on Nope { id } } }`, UnknownType},
		{"fragment never applies", `{ book(id: "1") { ... on Author { name } } }`, FragmentTypeMismatch},
		{"spread never applies", `{ book(id: "1") { ...A } } fragment A on Author { name }`, FragmentTypeMismatch},
		{"alias conflict", `{ title title: prices }`, FieldConflict},
		{"argument conflict", `{ book(id: "1") { id } book(id: "2") { id } }`, FieldConflict},
		{"nested conflict", `{ book(id: "1") { x: title } book(id: "1") { x: id } }`, FieldConflict},
		{"unknown directive", `{ title @unknown }`, UnknownDirective},
		{"directive location", `{ title @oneOf }`, DirectiveLocation},
		{"duplicate directive", `{ title @skip(if: true) @skip(if: false) }`, DuplicateDirective},
		{"directive argument", `{ title @skip(if: "yes") }`, Coercion},
		{"where on non list", `{ title @stringWhere(equals: "a") }`, DirectiveUsage},
		{"where on wrong leaf", `{ prices @stringWhere(equals: "a") }`, DirectiveUsage},
		{"where path from variable", `query($p: String) { books @floatWhere(field: $p, greaterThan: 1) { id } }`, DirectiveUsage},
		{"schema outside query root", `{ book(id: "1") { __schema { queryType { name } } } }`, UnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(t, s, tt.query, "")
			require.Error(t, err)
			require.True(t, IsKind(err, tt.kind), "want %s, got %v", tt.kind, err)
		})
	}
}

func TestNormalizeErrorLocations(t *testing.T) {
	s := newLibrarySchema(t)
	_, err := normalize(t, s, "{\n  title\n  missing\n}", "")
	var ne *Error
	require.ErrorAs(t, err, &ne)
	if diff := cmp.Diff([]language.Location{{Line: 3, Column: 3}}, ne.Locations); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeCoercionErrorKeepsKind(t *testing.T) {
	s := newLibrarySchema(t)
	_, err := normalize(t, s, `{ books(filter: {copies: 2}) { id } }`, "")
	require.True(t, IsKind(err, Coercion), "got %v", err)
	require.True(t, schema.IsCoercionKind(err, schema.ValueCannotBeNull), "got %v", err)
}

// Pattern: Result comparison
func TestNormalizeFieldTree(t *testing.T) {
	s := newLibrarySchema(t)
	op := mustNormalize(t, s, `
		query Catalog($first: Int = 3) {
			books(first: $first) { id ...BookParts }
			search(text: "go") {
				__typename
				... on Book { title }
				... on Author { name }
			}
			t: title @include(if: true)
		}
		fragment BookParts on Book { title id }
	`)

	want := "" +
		"books(first: $first)\n" +
		"  id\n" +
		"  title [on Book]\n" +
		"search(text: \"go\")\n" +
		"  __typename\n" +
		"  title [on Book]\n" +
		"  name [on Author]\n" +
		"t: title if(@include)\n"
	if diff := cmp.Diff(want, op.Fields.String()); diff != "" {
		t.Fatalf("field tree mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeVariables(t *testing.T) {
	s := newLibrarySchema(t)
	op := mustNormalize(t, s, `
		query($first: Int = 5, $filter: BookInput = {title: "Dune"}, $id: ID!) {
			books(first: $first, filter: $filter) { id }
			book(id: $id) { id }
		}
	`)
	require.Len(t, op.Variables, 3)

	first, ok := op.Variable("first")
	require.True(t, ok)
	require.Equal(t, "Int", first.Type.String())
	require.Equal(t, 5, first.Default.Raw())

	filter, ok := op.Variable("filter")
	require.True(t, ok)
	if diff := cmp.Diff(map[string]any{"title": "Dune", "copies": 1}, filter.Default.Raw()); diff != "" {
		t.Fatalf("default mismatch (-want +got):\n%s", diff)
	}

	id, ok := op.Variable("id")
	require.True(t, ok)
	require.Equal(t, "ID!", id.Type.String())
	require.Nil(t, id.Default)

	books := op.Fields.Fields()[0]
	arg, ok := books.Arguments.Get("first")
	require.True(t, ok)
	ref, ok := arg.(*schema.VariableValue)
	require.True(t, ok, "argument should stay a variable reference, got %T", arg)
	require.Equal(t, "first", ref.Name())
	require.True(t, books.Arguments.HasVariables())
}

// A nested list argument keeps the variable in place.
func TestNormalizeVariableInsideLiteral(t *testing.T) {
	s := newLibrarySchema(t)
	op := mustNormalize(t, s, `query($title: String!) { books(filter: {title: $title}) { id } }`)
	filter, ok := op.Fields.Fields()[0].Arguments.Get("filter")
	require.True(t, ok)
	require.True(t, schema.ContainsVariables(filter))
}

func TestNormalizeMergesConditions(t *testing.T) {
	s := newLibrarySchema(t)

	t.Run("unconditional occurrence wins", func(t *testing.T) {
		op := mustNormalize(t, s, `query($s: Boolean!) { ... @skip(if: $s) { title } title }`)
		fields := op.Fields.Fields()
		require.Len(t, fields, 1)
		require.Empty(t, fields[0].Conditions)
	})

	t.Run("conditions are alternatives", func(t *testing.T) {
		op := mustNormalize(t, s, `
			query($a: Boolean!, $b: Boolean!) {
				... @include(if: $a) { title }
				... @include(if: $b) { title @skip(if: $b) }
			}
		`)
		want := "title if(@include) if(@include @skip)\n"
		if diff := cmp.Diff(want, op.Fields.String()); diff != "" {
			t.Fatalf("field tree mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("parent conditions move to children", func(t *testing.T) {
		op := mustNormalize(t, s, `
			query($a: Boolean!) {
				book(id: "1") @include(if: $a) { title }
				book(id: "1") { id }
			}
		`)
		want := "" +
			"book(id: \"1\")\n" +
			"  title if(@include)\n" +
			"  id\n"
		if diff := cmp.Diff(want, op.Fields.String()); diff != "" {
			t.Fatalf("field tree mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestNormalizeAbstractSelections(t *testing.T) {
	s := newLibrarySchema(t)
	op := mustNormalize(t, s, `{
		node(id: "1") {
			id
			... on Book { label: title }
			... on Author { label: name }
		}
	}`)
	node := op.Fields.Fields()[0]
	require.Equal(t, 3, node.Children.Len())

	book, _ := s.ResolveType("Book")
	author, _ := s.ResolveType("Author")

	names := func(fields []*Field) []string {
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = f.ResponseKey() + "=" + f.Definition.Name
		}
		return out
	}
	if diff := cmp.Diff([]string{"id=id", "label=title"}, names(node.Children.ForObject(book.(*schema.Object)))); diff != "" {
		t.Fatalf("Book fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id=id", "label=name"}, names(node.Children.ForObject(author.(*schema.Object)))); diff != "" {
		t.Fatalf("Author fields mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDirectives(t *testing.T) {
	s := newLibrarySchema(t)
	op := mustNormalize(t, s, `{
		prices @floatWhere(greaterThan: 1) @floatWhere(lessThan: 10) @skip(if: false)
	}`)
	prices := op.Fields.Fields()[0]
	require.Len(t, prices.Directives, 2)
	require.Equal(t, "floatWhere", prices.Directives[0].Directive.Name)
	gt, ok := prices.Directives[0].Arguments.Get("greaterThan")
	require.True(t, ok)
	require.Equal(t, 1.0, gt.Raw())
	require.NotNil(t, prices.Directives[1].Position)
	require.Len(t, prices.Conditions, 1)
	require.Equal(t, "skip", prices.Conditions[0][0].Directive.Name)
}

func TestNormalizeIntrospectionFields(t *testing.T) {
	s := newLibrarySchema(t)
	query := `{ __schema { queryType { name } } __type(name: "Book") { name } }`

	op, err := normalize(t, s, query, "")
	require.NoError(t, err)
	require.Equal(t, "__schema", op.Fields.Fields()[0].Definition.Name)

	_, err = normalize(t, s, query, "", WithIntrospection(false))
	require.True(t, IsKind(err, UnknownField), "got %v", err)
}
