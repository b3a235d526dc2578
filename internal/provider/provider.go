// Package provider defines the interface for delivery targets of composed
// test messages.
package provider

import (
	"context"
	"net/http"

	"github.com/shineum/email-worker-devsend/internal/email"
)

// Provider is the interface that delivery targets must implement. Each
// provider makes exactly one delivery attempt per call.
type Provider interface {
	// Deliver hands env to the target and returns its response uninterpreted.
	// An error means the target could not be reached at all.
	Deliver(ctx context.Context, env *Envelope) (*Response, error)

	// Name returns the human-readable name of this provider.
	Name() string
}

// Envelope is a fully serialized message plus its routing information.
type Envelope struct {
	From string
	To   string

	// Raw is the exact payload to transmit, trace header included.
	Raw []byte

	// Message is the structured form Raw was rendered from.
	Message *email.Email
}

// Response is what a provider got back from its target.
type Response struct {
	Provider   string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
