package store

import (
	"context"
	"sync"

	"github.com/campuslink/server/src/server/data"
)

// MemoryStore keeps everything in maps guarded by one RWMutex. It backs tests
// and small deployments; the mutex section in AcceptClaim is what makes the
// combined claim/post mutation atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	posts      map[string]data.LostFoundPost
	postOrder  []string
	claims     map[string]data.Claim
	claimOrder []string
	notes      map[string]data.Note
	noteOrder  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:  make(map[string]data.LostFoundPost),
		claims: make(map[string]data.Claim),
		notes:  make(map[string]data.Note),
	}
}

// ── Posts ──

func (s *MemoryStore) CreatePost(_ context.Context, post data.LostFoundPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.Claims = nil // claims live in the claim map only
	s.posts[post.ID] = post
	s.postOrder = append(s.postOrder, post.ID)
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, id string) (data.LostFoundPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return data.LostFoundPost{}, data.ErrPostNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListPosts(_ context.Context) ([]data.LostFoundPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]data.LostFoundPost, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		posts = append(posts, s.posts[id])
	}
	return posts, nil
}

func (s *MemoryStore) SetPostStatus(_ context.Context, id string, from, to data.PostStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return data.ErrPostNotFound
	}
	if p.Status != from {
		return data.ErrInvalidState
	}
	p.Status = to
	s.posts[id] = p
	return nil
}

// ── Claims ──

func (s *MemoryStore) CreateClaim(_ context.Context, claim data.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = claim
	s.claimOrder = append(s.claimOrder, claim.ID)
	return nil
}

func (s *MemoryStore) GetClaim(_ context.Context, id string) (data.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[id]
	if !ok {
		return data.Claim{}, data.ErrClaimNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListClaimsForPost(_ context.Context, postID string) ([]data.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var claims []data.Claim
	for _, id := range s.claimOrder {
		if c := s.claims[id]; c.PostID == postID {
			claims = append(claims, c)
		}
	}
	return claims, nil
}

func (s *MemoryStore) FindClaimByKey(_ context.Context, postID, key string) (data.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.claimOrder {
		if c := s.claims[id]; c.PostID == postID && c.IdempotencyKey == key {
			return c, nil
		}
	}
	return data.Claim{}, data.ErrClaimNotFound
}

func (s *MemoryStore) SetClaimDecision(_ context.Context, claimID string, decision data.Decision, reason string) (data.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return data.Claim{}, data.ErrClaimNotFound
	}
	if c.Decision != data.DecisionPending {
		return data.Claim{}, data.ErrInvalidState
	}
	c.Decision = decision
	c.DecisionReason = reason
	s.claims[claimID] = c
	return c, nil
}

func (s *MemoryStore) AcceptClaim(_ context.Context, postID, claimID string) (data.LostFoundPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return data.LostFoundPost{}, data.ErrPostNotFound
	}
	c, ok := s.claims[claimID]
	if !ok {
		return data.LostFoundPost{}, data.ErrClaimNotFound
	}
	if c.PostID != postID {
		return data.LostFoundPost{}, data.ErrClaimMismatch
	}
	// Compare-and-set: the loser of two racing accepts fails here.
	if p.Status != data.PostStatusPending {
		return data.LostFoundPost{}, data.ErrInvalidState
	}
	if c.Decision != data.DecisionPending {
		return data.LostFoundPost{}, data.ErrInvalidState
	}

	c.Decision = data.DecisionAccepted
	p.Status = data.PostStatusClaimed
	s.claims[claimID] = c
	s.posts[postID] = p
	return p, nil
}

// ── Notes ──

func (s *MemoryStore) CreateNote(_ context.Context, note data.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = note
	s.noteOrder = append(s.noteOrder, note.ID)
	return nil
}

func (s *MemoryStore) GetNote(_ context.Context, id string) (data.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return data.Note{}, data.ErrNoteNotFound
	}
	return copyNote(n), nil
}

func (s *MemoryStore) ListNotes(_ context.Context) ([]data.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := make([]data.Note, 0, len(s.noteOrder))
	for _, id := range s.noteOrder {
		notes = append(notes, copyNote(s.notes[id]))
	}
	return notes, nil
}

func (s *MemoryStore) AddComment(_ context.Context, comment data.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[comment.NoteID]
	if !ok {
		return data.ErrNoteNotFound
	}
	n.Comments = append(n.Comments, comment)
	s.notes[comment.NoteID] = n
	return nil
}

func (s *MemoryStore) SetRating(_ context.Context, noteID string, rating data.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteID]
	if !ok {
		return data.ErrNoteNotFound
	}
	replaced := false
	ratings := make([]data.Rating, len(n.Ratings))
	copy(ratings, n.Ratings)
	for i, r := range ratings {
		if r.UID == rating.UID {
			ratings[i] = rating
			replaced = true
			break
		}
	}
	if !replaced {
		ratings = append(ratings, rating)
	}
	n.Ratings = ratings
	s.notes[noteID] = n
	return nil
}

func (s *MemoryStore) IncrementDownloads(_ context.Context, noteID string) (data.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteID]
	if !ok {
		return data.Note{}, data.ErrNoteNotFound
	}
	n.Downloads++
	s.notes[noteID] = n
	return copyNote(n), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// copyNote clones the nested slices so callers cannot mutate stored state.
func copyNote(n data.Note) data.Note {
	if n.Comments != nil {
		comments := make([]data.Comment, len(n.Comments))
		copy(comments, n.Comments)
		n.Comments = comments
	}
	if n.Ratings != nil {
		ratings := make([]data.Rating, len(n.Ratings))
		copy(ratings, n.Ratings)
		n.Ratings = ratings
	}
	if n.Tags != nil {
		tags := make([]string, len(n.Tags))
		copy(tags, n.Tags)
		n.Tags = tags
	}
	return n
}
