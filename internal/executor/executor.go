package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	language "github.com/hanpama/gqlengine/internal/language"
	normalizer "github.com/hanpama/gqlengine/internal/normalizer"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

type Executor struct {
	runtime     Runtime
	schema      *schema.Schema
	concurrency int
}

type Option func(*Executor)

// WithConcurrency resolves up to n sibling fields at once. Values below 2
// keep execution on the calling goroutine.
func WithConcurrency(n int) Option {
	return func(e *Executor) { e.concurrency = n }
}

func New(sch *schema.Schema, runtime Runtime, opts ...Option) *Executor {
	e := &Executor{runtime: runtime, schema: sch, concurrency: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// executionState holds the state during query execution
type executionState struct {
	runtime   Runtime
	schema    *schema.Schema
	variables map[string]schema.Value
	// sem bounds concurrent resolver calls; nil when execution is serial.
	sem *semaphore.Weighted

	mu     sync.Mutex
	errors []*GraphQLError
}

// Execute runs a normalized operation. Variable coercion failures end the
// request without data; field failures are recorded and nulled.
func (e *Executor) Execute(ctx context.Context, op *normalizer.Operation, variableValues map[string]any, rootValue any) *Result {
	coerced, err := coerceVariableValues(e.schema, op, variableValues)
	if err != nil {
		return &Result{Errors: []*GraphQLError{requestError(err)}}
	}

	state := &executionState{
		runtime:   e.runtime,
		schema:    e.schema,
		variables: coerced,
	}
	if e.concurrency > 1 {
		state.sem = semaphore.NewWeighted(int64(e.concurrency))
	}

	// Mutation root fields run one after another.
	serial := op.Type == language.Mutation
	data, ok := state.executeFields(ctx, op.RootType, rootValue, op.Fields, Path{}, serial)

	res := &Result{HasData: true, Errors: state.errors}
	if ok {
		res.Data = data
	}
	return res
}

type fieldResult struct {
	field *normalizer.Field
	value any
	ok    bool
}

// executeFields resolves the fields selected for a runtime object type. It
// returns false when a non-null field came back null, so the object itself
// must become null.
func (state *executionState) executeFields(ctx context.Context, objectType *schema.Object, objectValue any, fields *normalizer.FieldSet, path Path, serial bool) (*ResultMap, bool) {
	collected := collectFields(state, objectType, fields, path)
	results := make([]fieldResult, len(collected))

	if serial || state.sem == nil || len(collected) < 2 {
		for i, f := range collected {
			value, ok := state.executeField(ctx, objectType, objectValue, f, appendPath(path, f.ResponseKey()))
			results[i] = fieldResult{field: f, value: value, ok: ok}
		}
	} else {
		var g errgroup.Group
		for i, f := range collected {
			g.Go(func() error {
				value, ok := state.executeField(ctx, objectType, objectValue, f, appendPath(path, f.ResponseKey()))
				results[i] = fieldResult{field: f, value: value, ok: ok}
				return nil
			})
		}
		_ = g.Wait()
	}

	resultMap := NewResultMap(len(results))
	for _, r := range results {
		if !r.ok {
			return nil, false
		}
		resultMap.Set(r.field.ResponseKey(), r.value)
	}
	return resultMap, true
}

// executeField runs the field pipeline: argument substitution, resolver,
// output coercion, directive transforms and completion.
func (state *executionState) executeField(ctx context.Context, objectType *schema.Object, objectValue any, f *normalizer.Field, path Path) (any, bool) {
	if f.Name == "__typename" {
		return objectType.Name(), true
	}

	def, t, err := state.fieldDefinition(objectType, f)
	if err != nil {
		state.addError(f, err, path)
		return nil, isNullable(f.Type)
	}

	args, err := state.schema.Substitute(def.Arguments, f.Arguments, state.variables, schema.Path{f.Name})
	if err != nil {
		state.addError(f, err, path)
		return nil, isNullable(t)
	}

	resolved, err := state.resolveField(ctx, objectType, f, objectValue, args.Raw(), path)
	if err != nil {
		state.addError(f, err, path)
		return nil, isNullable(t)
	}

	value, err := state.outputValue(ctx, objectType, f, resolved, t, path)
	if err != nil {
		state.addError(f, err, path)
		return nil, isNullable(t)
	}

	value, err = state.applyDirectives(ctx, def, f, value)
	if err != nil {
		state.addError(f, err, path)
		return nil, isNullable(t)
	}

	return state.completeValue(ctx, objectType, f, t, value, path)
}

// fieldDefinition returns the definition of f on the runtime object type. A
// merged field may have been selected through fragments on several types,
// and each object runs its own definition's arguments and directives.
func (state *executionState) fieldDefinition(objectType *schema.Object, f *normalizer.Field) (*schema.Field, schema.Type, error) {
	def, ok := objectType.Field(f.Name)
	if !ok || def == f.Definition {
		return f.Definition, f.Type, nil
	}
	t, err := state.schema.TypeOf(def.Type)
	if err != nil {
		return nil, nil, err
	}
	return def, t, nil
}

// resolveField calls the runtime, bounded by the semaphore, and publishes a
// FieldResolved event.
func (state *executionState) resolveField(ctx context.Context, objectType *schema.Object, f *normalizer.Field, source any, args map[string]any, path Path) (value any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if state.sem != nil {
		if err := state.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer state.sem.Release(1)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("resolver for %s.%s panicked: %v", objectType.Name(), f.Name, r)
		}
		eventbus.Publish(ctx, events.FieldResolved{
			ObjectType: objectType.Name(),
			Field:      f.Name,
			Path:       path.String(),
			Start:      start,
			Duration:   time.Since(start),
			Err:        err,
		})
	}()
	return state.runtime.ResolveField(ctx, objectType.Name(), f.Name, source, args)
}

// applyDirectives runs value transformers declared on the field definition,
// then those of the query, in declaration order. Each sees the previous
// output.
func (state *executionState) applyDirectives(ctx context.Context, def *schema.Field, f *normalizer.Field, value schema.Value) (schema.Value, error) {
	usages := append(append([]*schema.DirectiveUsage(nil), def.Directives()...), f.Directives...)
	for _, u := range usages {
		t, ok := u.Directive.Hooks.(schema.ValueTransformer)
		if !ok {
			continue
		}
		args, err := state.schema.Substitute(u.Directive.Arguments, u.Arguments, state.variables, schema.Path{"@" + u.Directive.Name})
		if err != nil {
			return nil, err
		}
		value, err = t.TransformValue(ctx, value, args)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

// completeValue turns a typed value into its response form. The boolean is
// false while a non-null violation propagates.
func (state *executionState) completeValue(ctx context.Context, parent *schema.Object, f *normalizer.Field, t schema.Type, value schema.Value, path Path) (any, bool) {
	if nn, ok := t.(*schema.NonNull); ok {
		completed, ok := state.completeNullable(ctx, parent, f, nn.OfType, value, path)
		if !ok {
			return nil, false
		}
		if completed == nil {
			state.addError(f, state.nonNullError(parent, f, path), path)
			return nil, false
		}
		return completed, true
	}
	completed, ok := state.completeNullable(ctx, parent, f, t, value, path)
	if !ok {
		// A nullable position absorbs the propagation.
		return nil, true
	}
	return completed, true
}

func (state *executionState) completeNullable(ctx context.Context, parent *schema.Object, f *normalizer.Field, t schema.Type, value schema.Value, path Path) (any, bool) {
	if schema.IsNull(value) {
		return nil, true
	}
	switch v := value.(type) {
	case *schema.ListValue:
		return state.completeListValue(ctx, parent, f, t, v, path)
	case *schema.ObjectValue:
		data, ok := state.executeFields(ctx, v.Object(), v.Raw(), f.Children, path, false)
		if !ok {
			return nil, false
		}
		return data, true
	default:
		return value.Raw(), true
	}
}

// completeListValue completes a list value
func (state *executionState) completeListValue(ctx context.Context, parent *schema.Object, f *normalizer.Field, t schema.Type, list *schema.ListValue, path Path) (any, bool) {
	lt, ok := t.(*schema.List)
	if !ok {
		state.addError(f, fmt.Errorf("expected %s, got a list", t), path)
		return nil, true
	}
	completed := make([]any, list.Len())
	for i, item := range list.Items() {
		v, ok := state.completeValue(ctx, parent, f, lt.OfType, item, appendPath(path, i))
		if !ok {
			return nil, false
		}
		completed[i] = v
	}
	return completed, true
}

func (state *executionState) nonNullError(parent *schema.Object, f *normalizer.Field, path Path) *GraphQLError {
	return &GraphQLError{
		Message: fmt.Sprintf("Cannot return null for non-nullable field %s.%s.", parent.Name(), f.Name),
		Path:    path,
	}
}

// addError records a field error. Errors that already carry a path keep it.
func (state *executionState) addError(f *normalizer.Field, err error, path Path) {
	gqlErr := fieldError(err, path)
	if gqlErr.Locations == nil && f != nil {
		gqlErr.Locations = language.LocationOf(f.Position)
	}
	state.mu.Lock()
	state.errors = append(state.errors, gqlErr)
	state.mu.Unlock()
}

// ExtensionsError is implemented by resolver errors that carry GraphQL error
// extensions.
type ExtensionsError interface {
	error
	Extensions() map[string]any
}

func fieldError(err error, path Path) *GraphQLError {
	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		out := *gqlErr
		if out.Path == nil {
			out.Path = path
		}
		return &out
	}
	out := &GraphQLError{Message: err.Error(), Path: path}
	var ext ExtensionsError
	var ce *schema.CoercionError
	switch {
	case errors.As(err, &ext):
		out.Extensions = ext.Extensions()
	case errors.As(err, &ce):
		out.Extensions = map[string]any{"code": string(ce.Kind)}
	}
	return out
}

func requestError(err error) *GraphQLError {
	out := &GraphQLError{Message: err.Error()}
	var ce *schema.CoercionError
	if errors.As(err, &ce) {
		out.Extensions = map[string]any{"code": string(ce.Kind)}
	}
	return out
}

func isNullable(t schema.Type) bool {
	_, nonNull := t.(*schema.NonNull)
	return !nonNull
}
