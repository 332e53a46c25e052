package data

import "errors"

// Sentinel errors for the lifecycle engine and stores. Handlers map these to
// HTTP status codes with errors.Is; wrap with fmt.Errorf("...: %w", Err...) to
// attach detail.
var (
	// ErrValidation marks malformed input (empty title, blank description, ...).
	ErrValidation = errors.New("validation failed")

	ErrPostNotFound  = errors.New("post not found")
	ErrClaimNotFound = errors.New("claim not found")
	ErrNoteNotFound  = errors.New("note not found")

	// ErrClaimMismatch marks a claim that does not belong to the given post.
	ErrClaimMismatch = errors.New("claim does not belong to post")

	// ErrInvalidPostType marks a claim submitted against a lost post.
	ErrInvalidPostType = errors.New("only found items can be claimed")

	// ErrPostNotClaimable marks a claim submitted against a non-pending post.
	ErrPostNotClaimable = errors.New("post is no longer accepting claims")

	// ErrInvalidState marks an operation not valid for the current status,
	// including the loser of a racing accept.
	ErrInvalidState = errors.New("operation not valid in current status")

	// ErrForbidden marks an ownership check failure.
	ErrForbidden = errors.New("not permitted for this identity")

	// ErrStorage marks a transient persistence failure. Unlike the precondition
	// errors above, callers may retry these.
	ErrStorage = errors.New("storage unavailable")
)
