package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header that carries a request ID.
const Header = "X-Request-Id"

// key is the context key for the request ID.
type key struct{}

// NewContext returns a copy of parent with id stored. An id that is not a
// UUID is replaced by a new random one. It also returns the stored ID.
func NewContext(parent context.Context, id string) (context.Context, string) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
