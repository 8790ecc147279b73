package testutil

import (
	"net/http"

	"almoner/pkg/requestcontext"
)

// WithCaller stamps a caller address onto the request context, simulating
// what the auth middleware does for an authenticated request.
func WithCaller(req *http.Request, addr string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), addr))
}

// WithRequestID stamps a request ID onto the request context.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
