// Package engine runs GraphQL requests end to end: parse, normalize and
// execute, with normalized operations cached across requests.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	executor "github.com/hanpama/gqlengine/internal/executor"
	introspection "github.com/hanpama/gqlengine/internal/introspection"
	language "github.com/hanpama/gqlengine/internal/language"
	normalizer "github.com/hanpama/gqlengine/internal/normalizer"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// Request is a single GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type Options struct {
	// CacheSize is the number of normalized operations kept. 0 disables the cache.
	CacheSize int64
	// Concurrency bounds resolver calls in flight per request.
	Concurrency int
	// Introspection answers __schema and __type when true.
	Introspection bool
	// RootValue is the source of the root fields.
	RootValue any
}

type Option func(*Options)

func WithCacheSize(n int64) Option     { return func(o *Options) { o.CacheSize = n } }
func WithConcurrency(n int) Option     { return func(o *Options) { o.Concurrency = n } }
func WithIntrospection(on bool) Option { return func(o *Options) { o.Introspection = on } }
func WithRootValue(root any) Option    { return func(o *Options) { o.RootValue = root } }

// Engine is safe for concurrent use.
type Engine struct {
	runtime executor.Runtime
	opt     Options
	cache   *ristretto.Cache[string, *normalizer.Operation]
	current atomic.Pointer[state]
}

// state is everything that changes with the schema.
type state struct {
	schema     *schema.Schema
	executor   *executor.Executor
	generation uint64
}

// New creates an Engine serving sch through runtime.
func New(sch *schema.Schema, runtime executor.Runtime, opts ...Option) (*Engine, error) {
	opt := Options{CacheSize: 1000, Concurrency: 1, Introspection: true}
	for _, f := range opts {
		f(&opt)
	}
	e := &Engine{runtime: runtime, opt: opt}
	if opt.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, *normalizer.Operation]{
			NumCounters: opt.CacheSize * 10,
			MaxCost:     opt.CacheSize,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("create operation cache: %w", err)
		}
		e.cache = cache
	}
	e.current.Store(e.newState(sch, 0))
	return e, nil
}

func (e *Engine) newState(sch *schema.Schema, generation uint64) *state {
	rt := e.runtime
	if e.opt.Introspection {
		rt = introspection.Wrap(rt, sch)
	}
	return &state{
		schema:     sch,
		executor:   executor.New(sch, rt, executor.WithConcurrency(e.opt.Concurrency)),
		generation: generation,
	}
}

// Schema returns the schema currently served.
func (e *Engine) Schema() *schema.Schema { return e.current.Load().schema }

// Swap replaces the served schema. Requests already running finish against
// the previous one; cached operations of the previous schema are dropped.
func (e *Engine) Swap(sch *schema.Schema) {
	prev := e.current.Load()
	e.current.Store(e.newState(sch, prev.generation+1))
	if e.cache != nil {
		e.cache.Clear()
	}
}

// Close releases the operation cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Do runs one request. Parse and normalization failures produce a result
// without data.
func (e *Engine) Do(ctx context.Context, req Request) *executor.Result {
	st := e.current.Load()
	start := time.Now()

	op, cached, err := e.prepare(st, req)
	opType := ""
	if op != nil {
		opType = string(op.Type)
	}
	eventbus.Publish(ctx, events.GraphQLStart{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Cached:        cached,
	})

	var res *executor.Result
	if err != nil {
		res = &executor.Result{Errors: []*executor.GraphQLError{requestError(err)}}
	} else {
		res = st.executor.Execute(ctx, op, req.Variables, e.opt.RootValue)
	}

	errs := make([]error, len(res.Errors))
	for i, ge := range res.Errors {
		errs[i] = ge
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		HasData:       res.HasData,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return res
}

// prepare returns the normalized operation for a request, from the cache
// when possible, and whether the cache served it. Variable references stay unresolved in a normalized
// operation, so one entry serves every set of variable values.
func (e *Engine) prepare(st *state, req Request) (*normalizer.Operation, bool, error) {
	key := fmt.Sprintf("%d\x00%s\x00%s", st.generation, req.OperationName, req.Query)
	if e.cache != nil {
		if op, ok := e.cache.Get(key); ok {
			return op, true, nil
		}
	}
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return nil, false, err
	}
	op, err := normalizer.Normalize(st.schema, doc, req.OperationName, normalizer.WithIntrospection(e.opt.Introspection))
	if err != nil {
		return nil, false, err
	}
	if e.cache != nil {
		e.cache.Set(key, op, 1)
		e.cache.Wait()
	}
	return op, false, nil
}

func requestError(err error) *executor.GraphQLError {
	var syntaxErr *language.Error
	if errors.As(err, &syntaxErr) {
		return &executor.GraphQLError{
			Message:    syntaxErr.Message,
			Locations:  language.Locations(err),
			Extensions: map[string]any{"code": "GRAPHQL_PARSE_FAILED"},
		}
	}
	var normErr *normalizer.Error
	if errors.As(err, &normErr) {
		ext := map[string]any{"code": string(normErr.Kind)}
		var ce *schema.CoercionError
		if errors.As(err, &ce) {
			ext["coercion"] = string(ce.Kind)
		}
		return &executor.GraphQLError{Message: normErr.Message, Locations: normErr.Locations, Extensions: ext}
	}
	return &executor.GraphQLError{Message: err.Error()}
}
