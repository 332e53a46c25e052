package store

import (
	"context"

	"github.com/campuslink/server/src/server/data"
)

// Store is the persistence interface behind the lifecycle engine. Implementations
// must keep AcceptClaim atomic: the claim decision and the post status change
// together or not at all, and the pending -> claimed transition is a
// compare-and-set so a racing second accept fails with data.ErrInvalidState.
//
// Stores expose no raw field setters; every mutation below corresponds to one
// engine operation.
type Store interface {
	// Posts
	CreatePost(ctx context.Context, post data.LostFoundPost) error
	GetPost(ctx context.Context, id string) (data.LostFoundPost, error)
	ListPosts(ctx context.Context) ([]data.LostFoundPost, error)
	// SetPostStatus transitions id from one status to another, failing with
	// data.ErrInvalidState when the current status is not `from`.
	SetPostStatus(ctx context.Context, id string, from, to data.PostStatus) error

	// Claims
	CreateClaim(ctx context.Context, claim data.Claim) error
	GetClaim(ctx context.Context, id string) (data.Claim, error)
	ListClaimsForPost(ctx context.Context, postID string) ([]data.Claim, error)
	// FindClaimByKey looks up a prior claim by idempotency key.
	FindClaimByKey(ctx context.Context, postID, key string) (data.Claim, error)
	SetClaimDecision(ctx context.Context, claimID string, decision data.Decision, reason string) (data.Claim, error)
	// AcceptClaim performs the combined transition: claim decision -> accepted,
	// post status pending -> claimed. Returns the updated post.
	AcceptClaim(ctx context.Context, postID, claimID string) (data.LostFoundPost, error)

	// Notes
	CreateNote(ctx context.Context, note data.Note) error
	GetNote(ctx context.Context, id string) (data.Note, error)
	ListNotes(ctx context.Context) ([]data.Note, error)
	AddComment(ctx context.Context, comment data.Comment) error
	// SetRating inserts or replaces the user's rating for a note.
	SetRating(ctx context.Context, noteID string, rating data.Rating) error
	IncrementDownloads(ctx context.Context, noteID string) (data.Note, error)

	Ping(ctx context.Context) error
	Close() error
}
