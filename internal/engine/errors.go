package engine

import "errors"

// Sentinel errors for the engine package.
// Use errors.Is to check: errors.Is(err, engine.ErrSessionNotFound)
var (
	// ErrSessionNotFound means the session id is unknown. Fatal for the
	// request only; nothing is retried.
	ErrSessionNotFound = errors.New("engine: session not found")

	// ErrContentUnavailable means the content boundary returned nothing
	// after every fallback. Surfaced to the caller, never retried here.
	ErrContentUnavailable = errors.New("engine: no content available")

	// ErrMalformedState means a stored session blob failed to parse even
	// with tolerant defaults. Callers see it joined with
	// ErrSessionNotFound: an unreadable session is a missing session.
	ErrMalformedState = errors.New("engine: malformed session state")
)
