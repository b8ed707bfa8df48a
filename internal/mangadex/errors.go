package mangadex

import "errors"

var (
	// ErrUpstreamFetch marks any failed provider call: transport error,
	// non-2xx status, empty or unparseable body.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrMalformedResponse marks a body that is not valid JSON.
	// Errors carrying it also match ErrUpstreamFetch.
	ErrMalformedResponse = errors.New("malformed upstream response")
)
