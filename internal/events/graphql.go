package events

import "time"

// GraphQLStart is published once a request's operation is prepared, before
// execution. OperationType is empty when the document failed to parse or
// normalize.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
	// Cached is true when the normalized operation came from the plan cache.
	Cached bool
}

// GraphQLFinish is published with the outcome of an operation.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	// HasData is false when the request failed before execution.
	HasData  bool
	Errors   []error
	Duration time.Duration
}
