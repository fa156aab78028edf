package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the endpoint receives a request. The event
// context carries the request ID.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published after the response is written. Operations counts
// the GraphQL operations run for the request; a batch runs several and a
// rejected request none.
type HTTPFinish struct {
	Request    *http.Request
	Status     int
	Operations int
	Duration   time.Duration
}
