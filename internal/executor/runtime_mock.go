package executor

import (
	"context"
	"fmt"
	"sync"
)

// MockResolver resolves a single field for MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// NewMockValueResolver returns a MockResolver that always returns the provided value.
func NewMockValueResolver(val any) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return val, nil
	}
}

// NewMockErrorResolver returns a MockResolver that always returns the provided error.
func NewMockErrorResolver(err error) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, err
	}
}

// Call represents a single resolver invocation record.
type Call struct {
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
}

// MockRuntime implements Runtime with a resolver registry and a call log.
// Fields without a resolver fall back to DefaultResolve.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	calls     []Call

	typeResolver func(value any) (string, error)
}

// NewMockRuntime creates a MockRuntime with the provided resolvers.
// The resolvers map keys are of the form "ObjectType.Field".
func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{
		resolvers:    make(map[string]MockResolver),
		typeResolver: DefaultResolveType,
	}
	for k, v := range resolvers {
		m.resolvers[k] = v
	}
	return m
}

// SetResolver registers or updates a resolver for the given object type and field.
func (m *MockRuntime) SetResolver(objectType, field string, resolver MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = resolver
}

func (m *MockRuntime) SetTypeResolver(f func(value any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeResolver = f
}

// ResolveField implements Runtime.ResolveField.
func (m *MockRuntime) ResolveField(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	m.mu.Lock()
	r := m.resolvers[objectType+"."+field]
	m.calls = append(m.calls, Call{ObjectType: objectType, Field: field, Source: source, Args: args})
	m.mu.Unlock()

	if r == nil {
		return DefaultResolve(source, field)
	}
	return r(ctx, source, args)
}

// ResolveType implements Runtime.ResolveType
func (m *MockRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	m.mu.Lock()
	f := m.typeResolver
	m.mu.Unlock()
	if f == nil {
		return "", fmt.Errorf("type resolver not configured")
	}
	return f(value)
}

// GetCalls returns a copy of the recorded calls in order.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times a field was resolved.
func (m *MockRuntime) CallCount(objectType, field string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.ObjectType == objectType && c.Field == field {
			n++
		}
	}
	return n
}

// Reset clears recorded calls (resolvers remain).
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
