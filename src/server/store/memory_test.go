package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campuslink/server/src/server/data"
)

func seedPost(t *testing.T, s *MemoryStore, id string, status data.PostStatus) {
	t.Helper()
	err := s.CreatePost(context.Background(), data.LostFoundPost{
		ID:        id,
		Type:      data.PostTypeFound,
		Title:     "Found item " + id,
		Status:    status,
		PosterUID: "owner",
		Date:      time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
}

func seedClaim(t *testing.T, s *MemoryStore, id, postID string) {
	t.Helper()
	err := s.CreateClaim(context.Background(), data.Claim{
		ID:         id,
		PostID:     postID,
		ClaimerUID: "claimer-" + id,
		Decision:   data.DecisionPending,
	})
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
}

func TestSetPostStatus_CompareAndSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", data.PostStatusPending)

	if err := s.SetPostStatus(ctx, "p1", data.PostStatusPending, data.PostStatusClaimed); err != nil {
		t.Fatalf("SetPostStatus: %v", err)
	}

	// The same transition must fail the second time.
	err := s.SetPostStatus(ctx, "p1", data.PostStatusPending, data.PostStatusClaimed)
	if !errors.Is(err, data.ErrInvalidState) {
		t.Errorf("second transition err = %v, want ErrInvalidState", err)
	}

	p, _ := s.GetPost(ctx, "p1")
	if p.Status != data.PostStatusClaimed {
		t.Errorf("status = %q, want claimed", p.Status)
	}
}

func TestAcceptClaim_Atomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", data.PostStatusPending)
	seedClaim(t, s, "c1", "p1")
	seedClaim(t, s, "c2", "p1")

	post, err := s.AcceptClaim(ctx, "p1", "c1")
	if err != nil {
		t.Fatalf("AcceptClaim: %v", err)
	}
	if post.Status != data.PostStatusClaimed {
		t.Errorf("post status = %q, want claimed", post.Status)
	}

	c1, _ := s.GetClaim(ctx, "c1")
	if c1.Decision != data.DecisionAccepted {
		t.Errorf("claim decision = %q, want accepted", c1.Decision)
	}

	// The post is claimed now, so the second accept must lose.
	if _, err := s.AcceptClaim(ctx, "p1", "c2"); !errors.Is(err, data.ErrInvalidState) {
		t.Errorf("second accept err = %v, want ErrInvalidState", err)
	}
	c2, _ := s.GetClaim(ctx, "c2")
	if c2.Decision != data.DecisionPending {
		t.Errorf("losing claim decision = %q, want pending", c2.Decision)
	}
}

func TestAcceptClaim_WrongPost(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", data.PostStatusPending)
	seedPost(t, s, "p2", data.PostStatusPending)
	seedClaim(t, s, "c1", "p1")

	if _, err := s.AcceptClaim(ctx, "p2", "c1"); !errors.Is(err, data.ErrClaimMismatch) {
		t.Errorf("err = %v, want ErrClaimMismatch", err)
	}
}

func TestAcceptClaim_Concurrent(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 20; round++ {
		s := NewMemoryStore()
		seedPost(t, s, "p1", data.PostStatusPending)
		seedClaim(t, s, "c1", "p1")
		seedClaim(t, s, "c2", "p1")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, claimID := range []string{"c1", "c2"} {
			wg.Add(1)
			go func(i int, claimID string) {
				defer wg.Done()
				_, errs[i] = s.AcceptClaim(ctx, "p1", claimID)
			}(i, claimID)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else if !errors.Is(err, data.ErrInvalidState) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("round %d: wins = %d, want exactly 1", round, wins)
		}

		accepted := 0
		claims, _ := s.ListClaimsForPost(ctx, "p1")
		for _, c := range claims {
			if c.Decision == data.DecisionAccepted {
				accepted++
			}
		}
		if accepted != 1 {
			t.Fatalf("round %d: accepted claims = %d, want exactly 1", round, accepted)
		}
	}
}

func TestSetClaimDecision_TerminalIsFinal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", data.PostStatusPending)
	seedClaim(t, s, "c1", "p1")

	c, err := s.SetClaimDecision(ctx, "c1", data.DecisionRejected, "not a match")
	if err != nil {
		t.Fatalf("SetClaimDecision: %v", err)
	}
	if c.DecisionReason != "not a match" {
		t.Errorf("reason = %q", c.DecisionReason)
	}

	if _, err := s.SetClaimDecision(ctx, "c1", data.DecisionAccepted, ""); !errors.Is(err, data.ErrInvalidState) {
		t.Errorf("re-decide err = %v, want ErrInvalidState", err)
	}
}

func TestFindClaimByKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", data.PostStatusPending)
	if err := s.CreateClaim(ctx, data.Claim{
		ID:             "c1",
		PostID:         "p1",
		ClaimerUID:     "u1",
		Decision:       data.DecisionPending,
		IdempotencyKey: "key-1",
	}); err != nil {
		t.Fatal(err)
	}

	c, err := s.FindClaimByKey(ctx, "p1", "key-1")
	if err != nil {
		t.Fatalf("FindClaimByKey: %v", err)
	}
	if c.ID != "c1" {
		t.Errorf("id = %q, want c1", c.ID)
	}

	if _, err := s.FindClaimByKey(ctx, "p1", "other-key"); !errors.Is(err, data.ErrClaimNotFound) {
		t.Errorf("unknown key err = %v, want ErrClaimNotFound", err)
	}
	if _, err := s.FindClaimByKey(ctx, "p2", "key-1"); !errors.Is(err, data.ErrClaimNotFound) {
		t.Errorf("wrong post err = %v, want ErrClaimNotFound", err)
	}
}

func TestListPosts_InsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		seedPost(t, s, id, data.PostStatusPending)
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(posts))
	for i, p := range posts {
		got[i] = p.ID
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestNotes_RatingUpsertAndIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.CreateNote(ctx, data.Note{
		ID:     "n1",
		Title:  "Calc II Summary",
		Status: data.NoteStatusApproved,
		Tags:   []string{"integrals"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.SetRating(ctx, "n1", data.Rating{UID: "u1", Rating: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRating(ctx, "n1", data.Rating{UID: "u1", Rating: 5}); err != nil {
		t.Fatal(err)
	}

	n, err := s.GetNote(ctx, "n1")
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Ratings) != 1 || n.Ratings[0].Rating != 5 {
		t.Errorf("ratings = %+v, want single 5-star entry", n.Ratings)
	}

	// Mutating the returned note must not leak into the store.
	n.Tags[0] = "mutated"
	n2, _ := s.GetNote(ctx, "n1")
	if n2.Tags[0] != "integrals" {
		t.Error("returned note shares backing array with stored note")
	}
}

func TestIncrementDownloads(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.CreateNote(ctx, data.Note{ID: "n1", Title: "OS Lecture 4", Status: data.NoteStatusApproved}); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		n, err := s.IncrementDownloads(ctx, "n1")
		if err != nil {
			t.Fatal(err)
		}
		if n.Downloads != i {
			t.Errorf("downloads = %d, want %d", n.Downloads, i)
		}
	}

	if _, err := s.IncrementDownloads(ctx, "missing"); !errors.Is(err, data.ErrNoteNotFound) {
		t.Errorf("err = %v, want ErrNoteNotFound", err)
	}
}
