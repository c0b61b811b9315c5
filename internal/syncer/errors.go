package syncer

import "errors"

// Failure categories the workflow reports. Each use wraps these with
// detail, so callers match with errors.Is.
var (
	// ErrInvalidArgument flags a request rejected by validation, before any
	// network call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEndpointNotFound means mirror or personal endpoint discovery came
	// up empty.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrListingFailed means the directory-listing retry budget ran out.
	ErrListingFailed = errors.New("listing failed")
)
