package events

import "time"

// FieldResolved is emitted after each resolver call.
type FieldResolved struct {
	ObjectType string
	Field      string
	// Path is the response path, e.g. "books[0].author".
	Path     string
	Start    time.Time
	Duration time.Duration
	Err      error
}
