package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/campuslink/server/src/server/data"
)

//go:embed migrations/001_initial.sql
var migrationSQL string

type SQLiteStore struct {
	db *sql.DB
}

func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite performs best with a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate() error {
	_, err := s.db.Exec(migrationSQL)
	if err != nil {
		return fmt.Errorf("running migration: %w", err)
	}
	slog.Info("SQLite migration completed")
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// storageErr tags driver failures so callers can tell transient faults from
// precondition violations.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, data.ErrStorage, err)
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ── Posts ──

func (s *SQLiteStore) CreatePost(ctx context.Context, p data.LostFoundPost) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, type, title, image_url, location, date, details, status, poster_uid, poster_email, poster_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Type), p.Title, p.ImageURL, p.Location, encodeTime(p.Date),
		p.Details, string(p.Status), p.PosterUID, p.PosterEmail, p.PosterName, encodeTime(p.CreatedAt),
	)
	if err != nil {
		return storageErr("insert post", err)
	}
	return nil
}

func scanPost(row interface {
	Scan(dest ...any) error
}) (data.LostFoundPost, error) {
	var p data.LostFoundPost
	var typ, status, date, createdAt string
	err := row.Scan(&p.ID, &typ, &p.Title, &p.ImageURL, &p.Location, &date,
		&p.Details, &status, &p.PosterUID, &p.PosterEmail, &p.PosterName, &createdAt)
	if err != nil {
		return data.LostFoundPost{}, err
	}
	p.Type = data.PostType(typ)
	p.Status = data.PostStatus(status)
	p.Date = decodeTime(date)
	p.CreatedAt = decodeTime(createdAt)
	return p, nil
}

const postColumns = `id, type, title, image_url, location, date, details, status, poster_uid, poster_email, poster_name, created_at`

func (s *SQLiteStore) GetPost(ctx context.Context, id string) (data.LostFoundPost, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return data.LostFoundPost{}, data.ErrPostNotFound
	}
	if err != nil {
		return data.LostFoundPost{}, storageErr("get post", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context) ([]data.LostFoundPost, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY rowid`)
	if err != nil {
		return nil, storageErr("list posts", err)
	}
	defer rows.Close()

	var posts []data.LostFoundPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			slog.Error("ListPosts scan failed", "error", err)
			continue
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list posts", err)
	}
	return posts, nil
}

func (s *SQLiteStore) SetPostStatus(ctx context.Context, id string, from, to data.PostStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return storageErr("update post status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish a missing post from a status mismatch.
		if _, err := s.GetPost(ctx, id); err != nil {
			return err
		}
		return data.ErrInvalidState
	}
	return nil
}

// ── Claims ──

const claimColumns = `id, post_id, claimer_uid, claimer_email, claimer_name, claimer_description, decision, decision_reason, idempotency_key, created_at`

func scanClaim(row interface {
	Scan(dest ...any) error
}) (data.Claim, error) {
	var c data.Claim
	var decision, createdAt string
	err := row.Scan(&c.ID, &c.PostID, &c.ClaimerUID, &c.ClaimerEmail, &c.ClaimerName,
		&c.ClaimerDescription, &decision, &c.DecisionReason, &c.IdempotencyKey, &createdAt)
	if err != nil {
		return data.Claim{}, err
	}
	c.Decision = data.Decision(decision)
	c.CreatedAt = decodeTime(createdAt)
	return c, nil
}

func (s *SQLiteStore) CreateClaim(ctx context.Context, c data.Claim) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claims (id, post_id, claimer_uid, claimer_email, claimer_name, claimer_description, decision, decision_reason, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.ClaimerUID, c.ClaimerEmail, c.ClaimerName,
		c.ClaimerDescription, string(c.Decision), c.DecisionReason, c.IdempotencyKey, encodeTime(c.CreatedAt),
	)
	if err != nil {
		return storageErr("insert claim", err)
	}
	return nil
}

func (s *SQLiteStore) GetClaim(ctx context.Context, id string) (data.Claim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return data.Claim{}, data.ErrClaimNotFound
	}
	if err != nil {
		return data.Claim{}, storageErr("get claim", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListClaimsForPost(ctx context.Context, postID string) ([]data.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE post_id = ? ORDER BY rowid`, postID)
	if err != nil {
		return nil, storageErr("list claims", err)
	}
	defer rows.Close()

	var claims []data.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			slog.Error("ListClaimsForPost scan failed", "error", err)
			continue
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list claims", err)
	}
	return claims, nil
}

func (s *SQLiteStore) FindClaimByKey(ctx context.Context, postID, key string) (data.Claim, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE post_id = ? AND idempotency_key = ?`, postID, key)
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return data.Claim{}, data.ErrClaimNotFound
	}
	if err != nil {
		return data.Claim{}, storageErr("find claim by key", err)
	}
	return c, nil
}

func (s *SQLiteStore) SetClaimDecision(ctx context.Context, claimID string, decision data.Decision, reason string) (data.Claim, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE claims SET decision = ?, decision_reason = ? WHERE id = ? AND decision = 'pending'`,
		string(decision), reason, claimID)
	if err != nil {
		return data.Claim{}, storageErr("update claim decision", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetClaim(ctx, claimID); err != nil {
			return data.Claim{}, err
		}
		return data.Claim{}, data.ErrInvalidState
	}
	return s.GetClaim(ctx, claimID)
}

// AcceptClaim flips the claim to accepted and the post from pending to claimed
// in one transaction. The guarded UPDATEs are the compare-and-set: if either
// row changed under us, zero rows are affected and the whole thing rolls back.
func (s *SQLiteStore) AcceptClaim(ctx context.Context, postID, claimID string) (data.LostFoundPost, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return data.LostFoundPost{}, storageErr("begin accept tx", err)
	}
	defer tx.Rollback()

	var claimPostID string
	err = tx.QueryRowContext(ctx, `SELECT post_id FROM claims WHERE id = ?`, claimID).Scan(&claimPostID)
	if errors.Is(err, sql.ErrNoRows) {
		return data.LostFoundPost{}, data.ErrClaimNotFound
	}
	if err != nil {
		return data.LostFoundPost{}, storageErr("accept claim", err)
	}
	if claimPostID != postID {
		return data.LostFoundPost{}, data.ErrClaimMismatch
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE posts SET status = 'claimed' WHERE id = ? AND status = 'pending'`, postID)
	if err != nil {
		return data.LostFoundPost{}, storageErr("accept claim", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists); err != nil {
			return data.LostFoundPost{}, data.ErrPostNotFound
		}
		return data.LostFoundPost{}, data.ErrInvalidState
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE claims SET decision = 'accepted' WHERE id = ? AND decision = 'pending'`, claimID)
	if err != nil {
		return data.LostFoundPost{}, storageErr("accept claim", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return data.LostFoundPost{}, data.ErrInvalidState
	}

	row := tx.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, postID)
	p, err := scanPost(row)
	if err != nil {
		return data.LostFoundPost{}, storageErr("accept claim", err)
	}

	if err := tx.Commit(); err != nil {
		return data.LostFoundPost{}, storageErr("commit accept tx", err)
	}
	return p, nil
}

// ── Notes ──

const noteColumns = `id, title, description, semester, subject, type, tags, file_url, uploader_uid, uploader_name, status, downloads, created_at`

func (s *SQLiteStore) CreateNote(ctx context.Context, n data.Note) error {
	tagsJSON, _ := json.Marshal(n.Tags)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, description, semester, subject, type, tags, file_url, uploader_uid, uploader_name, status, downloads, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Description, n.Semester, n.Subject, string(n.Type), string(tagsJSON),
		n.FileURL, n.UploaderUID, n.UploaderName, string(n.Status), n.Downloads, encodeTime(n.CreatedAt),
	)
	if err != nil {
		return storageErr("insert note", err)
	}
	return nil
}

func scanNote(row interface {
	Scan(dest ...any) error
}) (data.Note, error) {
	var n data.Note
	var typ, status, tags, createdAt string
	err := row.Scan(&n.ID, &n.Title, &n.Description, &n.Semester, &n.Subject, &typ, &tags,
		&n.FileURL, &n.UploaderUID, &n.UploaderName, &status, &n.Downloads, &createdAt)
	if err != nil {
		return data.Note{}, err
	}
	n.Type = data.NoteType(typ)
	n.Status = data.NoteStatus(status)
	n.CreatedAt = decodeTime(createdAt)
	json.Unmarshal([]byte(tags), &n.Tags)
	return n, nil
}

func (s *SQLiteStore) GetNote(ctx context.Context, id string) (data.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return data.Note{}, data.ErrNoteNotFound
	}
	if err != nil {
		return data.Note{}, storageErr("get note", err)
	}
	return s.attachNoteChildren(ctx, n)
}

func (s *SQLiteStore) attachNoteChildren(ctx context.Context, n data.Note) (data.Note, error) {
	n.Comments = []data.Comment{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, note_id, user_uid, user_name, body, created_at FROM note_comments WHERE note_id = ? ORDER BY rowid`, n.ID)
	if err != nil {
		return data.Note{}, storageErr("list comments", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c data.Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.NoteID, &c.UserUID, &c.UserName, &c.Text, &createdAt); err != nil {
			slog.Error("comment scan failed", "error", err)
			continue
		}
		c.CreatedAt = decodeTime(createdAt)
		n.Comments = append(n.Comments, c)
	}

	ratingRows, err := s.db.QueryContext(ctx,
		`SELECT uid, rating FROM note_ratings WHERE note_id = ? ORDER BY uid`, n.ID)
	if err != nil {
		return data.Note{}, storageErr("list ratings", err)
	}
	defer ratingRows.Close()
	for ratingRows.Next() {
		var r data.Rating
		if err := ratingRows.Scan(&r.UID, &r.Rating); err != nil {
			slog.Error("rating scan failed", "error", err)
			continue
		}
		n.Ratings = append(n.Ratings, r)
	}
	return n, nil
}

func (s *SQLiteStore) ListNotes(ctx context.Context) ([]data.Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY rowid`)
	if err != nil {
		return nil, storageErr("list notes", err)
	}
	defer rows.Close()

	var notes []data.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			slog.Error("ListNotes scan failed", "error", err)
			continue
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list notes", err)
	}
	for i, n := range notes {
		full, err := s.attachNoteChildren(ctx, n)
		if err != nil {
			return nil, err
		}
		notes[i] = full
	}
	return notes, nil
}

func (s *SQLiteStore) AddComment(ctx context.Context, c data.Comment) error {
	if _, err := s.GetNote(ctx, c.NoteID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO note_comments (id, note_id, user_uid, user_name, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.NoteID, c.UserUID, c.UserName, c.Text, encodeTime(c.CreatedAt))
	if err != nil {
		return storageErr("insert comment", err)
	}
	return nil
}

func (s *SQLiteStore) SetRating(ctx context.Context, noteID string, r data.Rating) error {
	if _, err := s.GetNote(ctx, noteID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO note_ratings (note_id, uid, rating) VALUES (?, ?, ?)
		 ON CONFLICT (note_id, uid) DO UPDATE SET rating = excluded.rating`,
		noteID, r.UID, r.Rating)
	if err != nil {
		return storageErr("upsert rating", err)
	}
	return nil
}

func (s *SQLiteStore) IncrementDownloads(ctx context.Context, noteID string) (data.Note, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET downloads = downloads + 1 WHERE id = ?`, noteID)
	if err != nil {
		return data.Note{}, storageErr("increment downloads", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return data.Note{}, data.ErrNoteNotFound
	}
	return s.GetNote(ctx, noteID)
}
