// Package engine is the claims & post lifecycle engine. All post and claim
// mutation goes through it; the stores expose no raw setters to handlers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/server/src/server/data"
	"github.com/campuslink/server/src/server/query"
	"github.com/campuslink/server/src/server/store"
)

type Engine struct {
	store store.Store

	// Injected for deterministic tests.
	now   func() time.Time
	newID func() string
}

func New(s store.Store) *Engine {
	return &Engine{
		store: s,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ── Posts ──

func (e *Engine) CreatePost(ctx context.Context, draft data.PostDraft, poster data.Identity) (data.LostFoundPost, error) {
	if err := validateDraft(draft, poster); err != nil {
		return data.LostFoundPost{}, err
	}

	post := data.LostFoundPost{
		ID:          e.newID(),
		Type:        draft.Type,
		Title:       draft.Title,
		ImageURL:    draft.ImageURL,
		Location:    draft.Location,
		Date:        draft.Date,
		Details:     draft.Details,
		Status:      data.PostStatusPending,
		PosterUID:   poster.UID,
		PosterEmail: poster.Email,
		PosterName:  poster.Name,
		CreatedAt:   e.now(),
	}
	if err := e.store.CreatePost(ctx, post); err != nil {
		return data.LostFoundPost{}, err
	}
	slog.Info("post created", "post_id", post.ID, "type", post.Type, "poster", poster.UID)
	return post, nil
}

func validateDraft(draft data.PostDraft, poster data.Identity) error {
	switch {
	case !draft.Type.Valid():
		return fmt.Errorf("%w: type must be lost or found", data.ErrValidation)
	case data.Blank(draft.Title):
		return fmt.Errorf("%w: title is required", data.ErrValidation)
	case data.Blank(draft.Details):
		return fmt.Errorf("%w: details are required", data.ErrValidation)
	case data.Blank(draft.Location):
		return fmt.Errorf("%w: location is required", data.ErrValidation)
	case draft.Date.IsZero():
		return fmt.Errorf("%w: date is required", data.ErrValidation)
	case data.Blank(draft.ImageURL):
		return fmt.Errorf("%w: image_url is required", data.ErrValidation)
	case data.Blank(poster.UID):
		return fmt.Errorf("%w: poster identity is required", data.ErrValidation)
	}
	return nil
}

// GetPost returns the post with its claims view joined on from the claim store.
func (e *Engine) GetPost(ctx context.Context, id string) (data.LostFoundPost, error) {
	post, err := e.store.GetPost(ctx, id)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	claims, err := e.store.ListClaimsForPost(ctx, id)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	post.Claims = claims
	return post, nil
}

// ListPosts filters by type and case-insensitive substring search over title,
// details and location, sorted by item date descending.
func (e *Engine) ListPosts(ctx context.Context, filter data.PostFilter) ([]data.LostFoundPost, error) {
	posts, err := e.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(posts,
		func(p data.LostFoundPost) time.Time { return p.Date },
		query.Equals(filter.Type, func(p data.LostFoundPost) data.PostType { return p.Type }),
		query.Search(filter.Search,
			func(p data.LostFoundPost) string { return p.Title },
			func(p data.LostFoundPost) string { return p.Details },
			func(p data.LostFoundPost) string { return p.Location },
		),
	), nil
}

// ── Claims ──

// SubmitClaim files a claim against a pending found-item post. An orphan claim
// is never created: every precondition failure happens before the write.
// A non-empty idempotencyKey makes resubmission return the original claim.
func (e *Engine) SubmitClaim(ctx context.Context, postID string, claimer data.Identity, description, idempotencyKey string) (data.Claim, error) {
	if data.Blank(description) {
		return data.Claim{}, fmt.Errorf("%w: claim description is required", data.ErrValidation)
	}
	if data.Blank(claimer.UID) {
		return data.Claim{}, fmt.Errorf("%w: claimer identity is required", data.ErrValidation)
	}

	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return data.Claim{}, err
	}
	if post.Type != data.PostTypeFound {
		return data.Claim{}, data.ErrInvalidPostType
	}
	if post.Status != data.PostStatusPending {
		return data.Claim{}, data.ErrPostNotClaimable
	}

	if idempotencyKey != "" {
		if prior, err := e.store.FindClaimByKey(ctx, postID, idempotencyKey); err == nil {
			return prior, nil
		} else if !errors.Is(err, data.ErrClaimNotFound) {
			return data.Claim{}, err
		}
	}

	claim := data.Claim{
		ID:                 e.newID(),
		PostID:             postID,
		ClaimerUID:         claimer.UID,
		ClaimerEmail:       claimer.Email,
		ClaimerName:        claimer.Name,
		ClaimerDescription: description,
		Decision:           data.DecisionPending,
		IdempotencyKey:     idempotencyKey,
		CreatedAt:          e.now(),
	}
	if err := e.store.CreateClaim(ctx, claim); err != nil {
		return data.Claim{}, err
	}
	slog.Info("claim submitted", "claim_id", claim.ID, "post_id", postID, "claimer", claimer.UID)
	return claim, nil
}

// AcceptClaim is the one operation that mutates claim decision and post status
// together. Only the reporter of the post may accept, only while the post is
// pending. The store makes the pending -> claimed transition a compare-and-set,
// so of two racing accepts exactly one wins.
func (e *Engine) AcceptClaim(ctx context.Context, postID, claimID string, actor data.Identity) (data.LostFoundPost, error) {
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	claim, err := e.store.GetClaim(ctx, claimID)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	if claim.PostID != postID {
		return data.LostFoundPost{}, data.ErrClaimMismatch
	}
	if post.Status != data.PostStatusPending {
		return data.LostFoundPost{}, data.ErrInvalidState
	}
	if actor.UID != post.PosterUID {
		return data.LostFoundPost{}, data.ErrForbidden
	}

	updated, err := e.store.AcceptClaim(ctx, postID, claimID)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	slog.Info("claim accepted", "claim_id", claimID, "post_id", postID, "actor", actor.UID)

	claims, err := e.store.ListClaimsForPost(ctx, postID)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	updated.Claims = claims
	return updated, nil
}

// RejectClaim records an explicit rejection with an optional reason. Same
// guards as accept, but the post status is untouched and other claims stay
// acceptable.
func (e *Engine) RejectClaim(ctx context.Context, postID, claimID string, actor data.Identity, reason string) (data.Claim, error) {
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return data.Claim{}, err
	}
	claim, err := e.store.GetClaim(ctx, claimID)
	if err != nil {
		return data.Claim{}, err
	}
	if claim.PostID != postID {
		return data.Claim{}, data.ErrClaimMismatch
	}
	if post.Status != data.PostStatusPending {
		return data.Claim{}, data.ErrInvalidState
	}
	if actor.UID != post.PosterUID {
		return data.Claim{}, data.ErrForbidden
	}

	rejected, err := e.store.SetClaimDecision(ctx, claimID, data.DecisionRejected, reason)
	if err != nil {
		return data.Claim{}, err
	}
	slog.Info("claim rejected", "claim_id", claimID, "post_id", postID, "actor", actor.UID)
	return rejected, nil
}

// MarkReturned closes out a claimed post once the item is physically handed
// back. Owner-only, and only from claimed.
func (e *Engine) MarkReturned(ctx context.Context, postID string, actor data.Identity) (data.LostFoundPost, error) {
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	if actor.UID != post.PosterUID {
		return data.LostFoundPost{}, data.ErrForbidden
	}
	if err := e.store.SetPostStatus(ctx, postID, data.PostStatusClaimed, data.PostStatusReturned); err != nil {
		return data.LostFoundPost{}, err
	}
	slog.Info("post returned", "post_id", postID, "actor", actor.UID)
	return e.GetPost(ctx, postID)
}

// ── Notes ──

func (e *Engine) CreateNote(ctx context.Context, draft data.NoteDraft, uploader data.Identity) (data.Note, error) {
	switch {
	case data.Blank(draft.Title):
		return data.Note{}, fmt.Errorf("%w: title is required", data.ErrValidation)
	case data.Blank(draft.Subject):
		return data.Note{}, fmt.Errorf("%w: subject is required", data.ErrValidation)
	case draft.Semester <= 0:
		return data.Note{}, fmt.Errorf("%w: semester must be positive", data.ErrValidation)
	case !draft.Type.Valid():
		return data.Note{}, fmt.Errorf("%w: type must be pdf, docx or image", data.ErrValidation)
	case data.Blank(draft.FileURL):
		return data.Note{}, fmt.Errorf("%w: file_url is required", data.ErrValidation)
	case data.Blank(uploader.UID):
		return data.Note{}, fmt.Errorf("%w: uploader identity is required", data.ErrValidation)
	}

	note := data.Note{
		ID:           e.newID(),
		Title:        draft.Title,
		Description:  draft.Description,
		Semester:     draft.Semester,
		Subject:      draft.Subject,
		Type:         draft.Type,
		Tags:         draft.Tags,
		FileURL:      draft.FileURL,
		UploaderUID:  uploader.UID,
		UploaderName: uploader.Name,
		// New notes are visible immediately; moderation flips this later.
		Status:    data.NoteStatusApproved,
		Comments:  []data.Comment{},
		CreatedAt: e.now(),
	}
	if err := e.store.CreateNote(ctx, note); err != nil {
		return data.Note{}, err
	}
	slog.Info("note created", "note_id", note.ID, "uploader", uploader.UID)
	return note, nil
}

func (e *Engine) GetNote(ctx context.Context, id string) (data.Note, error) {
	return e.store.GetNote(ctx, id)
}

// ListNotes returns approved notes only, filtered by subject, semester and a
// search over title, description and tags, newest first.
func (e *Engine) ListNotes(ctx context.Context, filter data.NoteFilter) ([]data.Note, error) {
	notes, err := e.store.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(notes,
		func(n data.Note) time.Time { return n.CreatedAt },
		func(n data.Note) bool { return n.Status == data.NoteStatusApproved },
		query.Equals(filter.Subject, func(n data.Note) string { return n.Subject }),
		query.Equals(filter.Semester, func(n data.Note) int { return n.Semester }),
		query.Search(filter.Search,
			func(n data.Note) string { return n.Title },
			func(n data.Note) string { return n.Description },
			func(n data.Note) string { return joinTags(n.Tags) },
		),
	), nil
}

func joinTags(tags []string) string {
	out := ""
	for _, t := range tags {
		out += t + "\n"
	}
	return out
}

func (e *Engine) AddComment(ctx context.Context, noteID, text string, user data.Identity) (data.Comment, error) {
	if data.Blank(text) {
		return data.Comment{}, fmt.Errorf("%w: comment text is required", data.ErrValidation)
	}
	if data.Blank(user.UID) {
		return data.Comment{}, fmt.Errorf("%w: commenter identity is required", data.ErrValidation)
	}
	comment := data.Comment{
		ID:        e.newID(),
		NoteID:    noteID,
		UserUID:   user.UID,
		UserName:  user.Name,
		Text:      text,
		CreatedAt: e.now(),
	}
	if err := e.store.AddComment(ctx, comment); err != nil {
		return data.Comment{}, err
	}
	return comment, nil
}

// RateNote upserts the user's score; a second rating replaces the first.
func (e *Engine) RateNote(ctx context.Context, noteID string, stars int, user data.Identity) (data.Note, error) {
	if stars < 1 || stars > 5 {
		return data.Note{}, fmt.Errorf("%w: rating must be between 1 and 5", data.ErrValidation)
	}
	if data.Blank(user.UID) {
		return data.Note{}, fmt.Errorf("%w: rater identity is required", data.ErrValidation)
	}
	if err := e.store.SetRating(ctx, noteID, data.Rating{UID: user.UID, Rating: stars}); err != nil {
		return data.Note{}, err
	}
	return e.store.GetNote(ctx, noteID)
}

func (e *Engine) RegisterDownload(ctx context.Context, noteID string) (data.Note, error) {
	return e.store.IncrementDownloads(ctx, noteID)
}
