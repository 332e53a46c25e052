package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/server/src/server/data"
	"github.com/campuslink/server/src/server/engine"
	"github.com/campuslink/server/src/server/middleware"
	"github.com/campuslink/server/src/server/storage"
	"github.com/campuslink/server/src/server/store"
)

// newTestServer wires the handlers onto a router the same way main does,
// backed by the memory store and dev identity headers.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s := store.NewMemoryStore()
	eng := engine.New(s)

	local, err := storage.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatal(err)
	}

	postHandler := &PostHandler{Engine: eng}
	claimHandler := &ClaimHandler{Engine: eng}
	noteHandler := &NoteHandler{Engine: eng}
	uploadHandler := &UploadHandler{Storage: local}
	healthHandler := &HealthHandler{Store: s, Storage: local}

	r := chi.NewRouter()
	r.Get("/health", healthHandler.Check)
	r.Get("/posts", postHandler.List)
	r.Get("/posts/{id}", postHandler.Get)
	r.Get("/notes", noteHandler.List)
	r.Get("/notes/{id}", noteHandler.Get)
	r.Post("/notes/{id}/download", noteHandler.Download)
	r.Group(func(r chi.Router) {
		r.Use(middleware.DevIdentity)
		r.Post("/posts", postHandler.Create)
		r.Post("/posts/{id}/claims", claimHandler.Submit)
		r.Post("/posts/{id}/claims/{claimID}/accept", claimHandler.Accept)
		r.Post("/posts/{id}/claims/{claimID}/reject", claimHandler.Reject)
		r.Post("/posts/{id}/return", claimHandler.Return)
		r.Post("/notes", noteHandler.Create)
		r.Post("/notes/{id}/comments", noteHandler.AddComment)
		r.Put("/notes/{id}/rating", noteHandler.Rate)
		r.Post("/uploads", uploadHandler.Upload)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, userID string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Name", "Name of "+userID)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal: %v\nbody: %s", err, raw)
	}
	return v
}

var foundDraft = map[string]any{
	"type":      "found",
	"title":     "Blue Backpack",
	"location":  "Library, 2nd floor",
	"date":      "2026-08-29T14:00:00Z",
	"details":   "Has a keychain on the zipper",
	"image_url": "/files/uploads/backpack.jpg",
}

func TestCreatePost_RequiresIdentity(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/posts", "", foundDraft)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCreatePost_ValidationAndFetch(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, srv, http.MethodPost, "/posts", "alice", foundDraft)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", resp.StatusCode, raw)
	}
	created := decode[data.LostFoundPost](t, raw)
	if created.Status != data.PostStatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.PosterUID != "alice" {
		t.Errorf("poster_uid = %q, want alice", created.PosterUID)
	}

	resp, raw = doJSON(t, srv, http.MethodGet, "/posts/"+created.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d\nbody: %s", resp.StatusCode, raw)
	}

	// Missing title must be a 400.
	bad := map[string]any{
		"type":      "found",
		"location":  "Gym",
		"date":      "2026-08-29T14:00:00Z",
		"details":   "Water bottle on bench 3",
		"image_url": "/files/uploads/bottle.jpg",
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/posts", "alice", bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing title status = %d, want 400", resp.StatusCode)
	}
}

func TestListPosts_FilterByType(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/posts", "alice", foundDraft)
	doJSON(t, srv, http.MethodPost, "/posts", "bob", map[string]any{
		"type":      "lost",
		"title":     "Red Scarf",
		"location":  "Bus stop",
		"date":      "2026-08-28T08:00:00Z",
		"details":   "Wool, hand-knitted",
		"image_url": "/files/uploads/scarf.jpg",
	})

	resp, raw := doJSON(t, srv, http.MethodGet, "/posts?type=lost", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	posts := decode[[]data.LostFoundPost](t, raw)
	if len(posts) != 1 || posts[0].Title != "Red Scarf" {
		t.Errorf("filtered posts = %+v, want just Red Scarf", posts)
	}

	resp, _ = doJSON(t, srv, http.MethodGet, "/posts?type=stolen", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad type filter status = %d, want 400", resp.StatusCode)
	}
}

func TestClaimLifecycle_HTTP(t *testing.T) {
	srv := newTestServer(t)

	_, raw := doJSON(t, srv, http.MethodPost, "/posts", "owner", foundDraft)
	post := decode[data.LostFoundPost](t, raw)

	resp, raw := doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/claims", "claimer", map[string]any{
		"description": "Keychain is a small brass owl",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d\nbody: %s", resp.StatusCode, raw)
	}
	claim := decode[data.Claim](t, raw)
	if claim.Decision != data.DecisionPending {
		t.Errorf("decision = %q, want pending", claim.Decision)
	}

	// A stranger cannot accept.
	resp, _ = doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/claims/"+claim.ID+"/accept", "stranger", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("stranger accept status = %d, want 403", resp.StatusCode)
	}

	resp, raw = doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/claims/"+claim.ID+"/accept", "owner", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept status = %d\nbody: %s", resp.StatusCode, raw)
	}
	updated := decode[data.LostFoundPost](t, raw)
	if updated.Status != data.PostStatusClaimed {
		t.Errorf("post status = %q, want claimed", updated.Status)
	}

	// Accepting again conflicts.
	resp, _ = doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/claims/"+claim.ID+"/accept", "owner", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second accept status = %d, want 409", resp.StatusCode)
	}

	// And the item can be marked returned.
	resp, raw = doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/return", "owner", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("return status = %d\nbody: %s", resp.StatusCode, raw)
	}
	returned := decode[data.LostFoundPost](t, raw)
	if returned.Status != data.PostStatusReturned {
		t.Errorf("post status = %q, want returned", returned.Status)
	}
}

func TestClaimOnLostPost_Conflicts(t *testing.T) {
	srv := newTestServer(t)

	_, raw := doJSON(t, srv, http.MethodPost, "/posts", "owner", map[string]any{
		"type":      "lost",
		"title":     "Laptop Charger",
		"location":  "Lecture Hall A",
		"date":      "2026-08-29T14:00:00Z",
		"details":   "65W USB-C brick",
		"image_url": "/files/uploads/charger.jpg",
	})
	post := decode[data.LostFoundPost](t, raw)

	resp, _ := doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/claims", "claimer", map[string]any{
		"description": "That charger is mine",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestRejectClaim_HTTP(t *testing.T) {
	srv := newTestServer(t)

	_, raw := doJSON(t, srv, http.MethodPost, "/posts", "owner", foundDraft)
	post := decode[data.LostFoundPost](t, raw)

	_, raw = doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/claims", "claimer", map[string]any{
		"description": "It is mine",
	})
	claim := decode[data.Claim](t, raw)

	resp, raw := doJSON(t, srv, http.MethodPost, "/posts/"+post.ID+"/claims/"+claim.ID+"/reject", "owner", map[string]any{
		"reason": "description does not match",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject status = %d\nbody: %s", resp.StatusCode, raw)
	}
	rejected := decode[data.Claim](t, raw)
	if rejected.Decision != data.DecisionRejected {
		t.Errorf("decision = %q, want rejected", rejected.Decision)
	}
	if rejected.DecisionReason != "description does not match" {
		t.Errorf("reason = %q", rejected.DecisionReason)
	}

	// The post is still open for other claims.
	resp, raw = doJSON(t, srv, http.MethodGet, "/posts/"+post.ID, "", nil)
	fetched := decode[data.LostFoundPost](t, raw)
	if fetched.Status != data.PostStatusPending {
		t.Errorf("post status = %q, want pending", fetched.Status)
	}
}

func TestUnknownPost_Is404(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/posts/no-such-id", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, srv, http.MethodPost, "/posts/no-such-id/claims", "claimer", map[string]any{
		"description": "mine",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("claim on unknown post status = %d, want 404", resp.StatusCode)
	}
}

func TestNotes_HTTPFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, srv, http.MethodPost, "/notes", "uploader", map[string]any{
		"title":    "Discrete Math Midterm Review",
		"subject":  "Mathematics",
		"semester": 2,
		"type":     "pdf",
		"tags":     []string{"graphs", "logic"},
		"file_url": "/files/uploads/discrete-review.pdf",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d\nbody: %s", resp.StatusCode, raw)
	}
	note := decode[data.Note](t, raw)
	if note.Status != data.NoteStatusApproved {
		t.Errorf("status = %q, want approved", note.Status)
	}

	resp, raw = doJSON(t, srv, http.MethodPost, "/notes/"+note.ID+"/comments", "reader", map[string]any{
		"text": "Very helpful before the exam",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("comment status = %d\nbody: %s", resp.StatusCode, raw)
	}

	resp, raw = doJSON(t, srv, http.MethodPut, "/notes/"+note.ID+"/rating", "reader", map[string]any{
		"rating": 5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rating status = %d\nbody: %s", resp.StatusCode, raw)
	}

	resp, _ = doJSON(t, srv, http.MethodPut, "/notes/"+note.ID+"/rating", "reader", map[string]any{
		"rating": 9,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range rating status = %d, want 400", resp.StatusCode)
	}

	resp, raw = doJSON(t, srv, http.MethodGet, "/notes?search=logic", "", nil)
	notes := decode[[]data.Note](t, raw)
	if len(notes) != 1 || notes[0].ID != note.ID {
		t.Errorf("tag search returned %+v", notes)
	}

	resp, raw = doJSON(t, srv, http.MethodPost, "/notes/"+note.ID+"/download", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	bumped := decode[data.Note](t, raw)
	if bumped.Downloads != 1 {
		t.Errorf("downloads = %d, want 1", bumped.Downloads)
	}
}

func TestUpload_HTTP(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("fake image bytes"))
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/uploads", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Id", "alice")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d\nbody: %s", resp.StatusCode, raw)
	}

	var out struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Key == "" || out.URL == "" {
		t.Errorf("upload response = %+v, want key and url", out)
	}
}

func TestHealth_HTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d\nbody: %s", resp.StatusCode, raw)
	}
	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(raw, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Checks["database"] != "ok" {
		t.Errorf("database check = %q", health.Checks["database"])
	}
}
