package data

import (
	"strings"
	"time"
)

// Identity is the authenticated principal performing an operation.
// It is always passed explicitly; nothing in the engine reads a global user.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type PostType string

const (
	PostTypeLost  PostType = "lost"
	PostTypeFound PostType = "found"
)

func (t PostType) Valid() bool {
	return t == PostTypeLost || t == PostTypeFound
}

type PostStatus string

const (
	PostStatusPending  PostStatus = "pending"
	PostStatusClaimed  PostStatus = "claimed"
	PostStatusReturned PostStatus = "returned"
)

type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// LostFoundPost is a reported lost or found item listing.
// Status only moves forward: pending -> claimed -> returned.
type LostFoundPost struct {
	ID          string     `json:"id"`
	Type        PostType   `json:"type"`
	Title       string     `json:"title"`
	ImageURL    string     `json:"image_url"`
	Location    string     `json:"location"`
	Date        time.Time  `json:"date"`
	Details     string     `json:"details"`
	Status      PostStatus `json:"status"`
	PosterUID   string     `json:"poster_uid"`
	PosterEmail string     `json:"poster_email,omitempty"`
	PosterName  string     `json:"poster_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// Claims is a derived view joined from the claim store on read.
	// The claim store stays authoritative.
	Claims []Claim `json:"claims,omitempty"`
}

// PostDraft carries the caller-supplied fields of a new post.
type PostDraft struct {
	Type     PostType  `json:"type"`
	Title    string    `json:"title"`
	ImageURL string    `json:"image_url"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Details  string    `json:"details"`
}

// Claim is an assertion that the claimer owns a given found-item post.
// At most one claim per post ever reaches DecisionAccepted.
type Claim struct {
	ID                 string    `json:"id"`
	PostID             string    `json:"post_id"`
	ClaimerUID         string    `json:"claimer_uid"`
	ClaimerEmail       string    `json:"claimer_email"`
	ClaimerName        string    `json:"claimer_name"`
	ClaimerDescription string    `json:"claimer_description"`
	Decision           Decision  `json:"decision"`
	DecisionReason     string    `json:"decision_reason,omitempty"`
	IdempotencyKey     string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
}

type PostFilter struct {
	Type   PostType
	Search string
}

// ── Notes types ──

type NoteType string

const (
	NoteTypePDF   NoteType = "pdf"
	NoteTypeDOCX  NoteType = "docx"
	NoteTypeImage NoteType = "image"
)

func (t NoteType) Valid() bool {
	return t == NoteTypePDF || t == NoteTypeDOCX || t == NoteTypeImage
}

type NoteStatus string

const (
	NoteStatusPending  NoteStatus = "pending"
	NoteStatusApproved NoteStatus = "approved"
	NoteStatusRejected NoteStatus = "rejected"
)

type Note struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Semester     int        `json:"semester"`
	Subject      string     `json:"subject"`
	Type         NoteType   `json:"type"`
	Tags         []string   `json:"tags"`
	FileURL      string     `json:"file_url"`
	UploaderUID  string     `json:"uploader_uid"`
	UploaderName string     `json:"uploader_name"`
	Status       NoteStatus `json:"status"`
	Downloads    int        `json:"downloads"`
	Comments     []Comment  `json:"comments"`
	Ratings      []Rating   `json:"ratings,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type NoteDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Semester    int      `json:"semester"`
	Subject     string   `json:"subject"`
	Type        NoteType `json:"type"`
	Tags        []string `json:"tags"`
	FileURL     string   `json:"file_url"`
}

type Comment struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	UserUID   string    `json:"user_uid"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating is one user's 1-5 score for a note.
type Rating struct {
	UID    string `json:"uid"`
	Rating int    `json:"rating"`
}

type NoteFilter struct {
	Search   string
	Subject  string
	Semester int
}

// AverageRating returns the mean score, or 0 with false when unrated.
func (n Note) AverageRating() (float64, bool) {
	if len(n.Ratings) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range n.Ratings {
		sum += r.Rating
	}
	return float64(sum) / float64(len(n.Ratings)), true
}

// Blank reports whether s is empty or whitespace-only.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
