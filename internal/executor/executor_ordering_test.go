package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
)

const orderingSDL = `
type Obj {
  a: String
}

type Query {
  a: String
  b: String
  c: String
  obj: Obj
  boom: String
}

type Mutation {
  first: Int
  second: Int
  third: Int
}
`

func TestExecuteKeepsSelectionOrderUnderConcurrency(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)

	cStarted := make(chan struct{})
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": func(ctx context.Context, source any, args map[string]any) (any, error) {
			select {
			case <-cStarted:
				return "A", nil
			case <-time.After(5 * time.Second):
				return nil, errors.New("c never started")
			}
		},
		"Query.b": NewMockValueResolver("B"),
		"Query.c": func(ctx context.Context, source any, args map[string]any) (any, error) {
			close(cStarted)
			return "C", nil
		},
	})

	got := resultJSON(t, execute(t, sch, rt, `{ a b c }`, nil, WithConcurrency(4)))
	want := `{"data":{"a":"A","b":"B","c":"C"}}`
	// Pattern: Result comparison
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteBoundsConcurrentResolvers(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)

	var active, peak int32
	slow := func(ctx context.Context, source any, args map[string]any) (any, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return "x", nil
	}
	rt := NewMockRuntime(map[string]MockResolver{"Query.a": slow, "Query.b": slow, "Query.c": slow})

	res := execute(t, sch, rt, `{ a b c }`, nil, WithConcurrency(2))
	require.Empty(t, res.Errors)
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecuteMutationFieldsSerially(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)

	var mu sync.Mutex
	var order []string
	var active int32
	record := func(name string, delay time.Duration) MockResolver {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
			if atomic.AddInt32(&active, 1) != 1 {
				return nil, errors.New("mutation fields overlapped")
			}
			defer atomic.AddInt32(&active, -1)
			time.Sleep(delay)
			mu.Lock()
			order = append(order, name)
			n := len(order)
			mu.Unlock()
			return n, nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Mutation.first":  record("first", 30*time.Millisecond),
		"Mutation.second": record("second", 10*time.Millisecond),
		"Mutation.third":  record("third", 0),
	})

	got := resultJSON(t, execute(t, sch, rt, `mutation { first second third }`, nil, WithConcurrency(4)))
	want := `{"data":{"first":1,"second":2,"third":3}}`
	// Pattern: Result comparison
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestExecutePublishesFieldEvents(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)

	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	var mu sync.Mutex
	var got []events.FieldResolved
	unsubscribe := eventbus.Subscribe(func(ctx context.Context, e events.FieldResolved) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	defer unsubscribe()

	rt := NewMockRuntime(map[string]MockResolver{
		"Query.obj":  NewMockValueResolver(map[string]any{"a": "x"}),
		"Query.boom": NewMockErrorResolver(errors.New("boom")),
	})
	execute(t, sch, rt, `{ obj { a } boom __typename }`, nil)

	type summary struct {
		ObjectType, Field, Path string
		Failed                  bool
	}
	var summaries []summary
	for _, e := range got {
		summaries = append(summaries, summary{ObjectType: e.ObjectType, Field: e.Field, Path: e.Path, Failed: e.Err != nil})
	}
	want := []summary{
		{ObjectType: "Query", Field: "obj", Path: "obj"},
		{ObjectType: "Obj", Field: "a", Path: "obj.a"},
		{ObjectType: "Query", Field: "boom", Path: "boom", Failed: true},
	}
	// Pattern: Result comparison
	if diff := cmp.Diff(want, summaries); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRecoversResolverPanic(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": func(ctx context.Context, source any, args map[string]any) (any, error) {
			panic("kaboom")
		},
		"Query.b": NewMockValueResolver("B"),
	})

	got := resultJSON(t, execute(t, sch, rt, `{ a b }`, nil, WithConcurrency(2)))
	want := `{"data":{"a":null,"b":"B"},"errors":[{"message":"resolver for Query.a panicked: kaboom","locations":[{"line":1,"column":3}],"path":["a"]}]}`
	// Pattern: Result comparison
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

type codedError struct{ code string }

func (e codedError) Error() string { return "coded failure" }

func (e codedError) Extensions() map[string]any { return map[string]any{"code": e.code} }

func TestExecuteErrorExtensions(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockErrorResolver(codedError{code: "FORBIDDEN"}),
		"Query.b": NewMockErrorResolver(&GraphQLError{Message: "custom", Path: Path{"elsewhere"}}),
	})

	got := resultJSON(t, execute(t, sch, rt, `{ a b }`, nil))
	want := `{"data":{"a":null,"b":null},"errors":[` +
		`{"message":"coded failure","locations":[{"line":1,"column":3}],"path":["a"],"extensions":{"code":"FORBIDDEN"}},` +
		`{"message":"custom","locations":[{"line":1,"column":5}],"path":["elsewhere"]}]}`
	// Pattern: Result comparison
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}
