package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		// ── lostfound_posts ──
		posts := core.NewBaseCollection("lostfound_posts")
		posts.Fields.Add(
			&core.TextField{Name: "post_id", Required: true, Max: 200},
			&core.SelectField{
				Name:     "type",
				Required: true,
				Values:   []string{"lost", "found"},
			},
			&core.TextField{Name: "title", Required: true, Max: 500},
			&core.TextField{Name: "details"},
			&core.TextField{Name: "location", Max: 300},
			&core.DateField{Name: "date"},
			&core.TextField{Name: "image_url", Max: 1000},
			&core.SelectField{
				Name:     "status",
				Required: true,
				Values:   []string{"pending", "claimed", "returned"},
			},
			&core.TextField{Name: "poster_uid", Required: true, Max: 200},
			&core.TextField{Name: "poster_email", Max: 300},
			&core.TextField{Name: "poster_name", Max: 200},
		)
		posts.Indexes = types.JSONArray[string]{
			"CREATE UNIQUE INDEX idx_lostfound_posts_post_id ON lostfound_posts (post_id)",
			"CREATE INDEX idx_lostfound_posts_status ON lostfound_posts (status)",
		}
		// Public read, authenticated write
		posts.ViewRule = types.Pointer("")
		posts.ListRule = types.Pointer("")
		posts.CreateRule = types.Pointer("@request.auth.id != ''")
		posts.UpdateRule = types.Pointer("@request.auth.id != ''")
		if err := app.Save(posts); err != nil {
			return err
		}

		// ── claims ──
		claims := core.NewBaseCollection("claims")
		claims.Fields.Add(
			&core.TextField{Name: "claim_id", Required: true, Max: 200},
			&core.TextField{Name: "post_id", Required: true, Max: 200},
			&core.TextField{Name: "claimer_uid", Required: true, Max: 200},
			&core.TextField{Name: "claimer_email", Max: 300},
			&core.TextField{Name: "claimer_name", Max: 200},
			&core.TextField{Name: "claimer_description"},
			&core.SelectField{
				Name:     "decision",
				Required: true,
				Values:   []string{"pending", "accepted", "rejected"},
			},
			&core.TextField{Name: "decision_reason"},
			&core.TextField{Name: "idempotency_key", Max: 200},
		)
		claims.Indexes = types.JSONArray[string]{
			"CREATE UNIQUE INDEX idx_claims_claim_id ON claims (claim_id)",
			"CREATE INDEX idx_claims_post_id ON claims (post_id)",
		}
		claims.ViewRule = types.Pointer("")
		claims.ListRule = types.Pointer("")
		claims.CreateRule = types.Pointer("@request.auth.id != ''")
		claims.UpdateRule = types.Pointer("@request.auth.id != ''")
		if err := app.Save(claims); err != nil {
			return err
		}

		// ── notes ──
		notes := core.NewBaseCollection("notes")
		notes.Fields.Add(
			&core.TextField{Name: "note_id", Required: true, Max: 200},
			&core.TextField{Name: "title", Required: true, Max: 500},
			&core.TextField{Name: "description"},
			&core.NumberField{Name: "semester", OnlyInt: true},
			&core.TextField{Name: "subject", Max: 200},
			&core.SelectField{
				Name:   "note_type",
				Values: []string{"pdf", "docx", "image"},
			},
			&core.SelectField{
				Name:     "status",
				Required: true,
				Values:   []string{"pending", "approved", "rejected"},
			},
			&core.TextField{Name: "uploader_uid", Required: true, Max: 200},
			&core.TextField{Name: "uploader_name", Max: 200},
			&core.JSONField{Name: "tags"},
			&core.JSONField{Name: "comments"},
			&core.JSONField{Name: "ratings"},
			&core.NumberField{Name: "downloads", OnlyInt: true},
			&core.FileField{
				Name:      "file",
				MaxSelect: 1,
				MaxSize:   20 * 1024 * 1024, // 20MB
			},
		)
		notes.Indexes = types.JSONArray[string]{
			"CREATE UNIQUE INDEX idx_notes_note_id ON notes (note_id)",
			"CREATE INDEX idx_notes_subject ON notes (subject)",
		}
		notes.ViewRule = types.Pointer("")
		notes.ListRule = types.Pointer("")
		notes.CreateRule = types.Pointer("@request.auth.id != ''")
		notes.UpdateRule = types.Pointer("@request.auth.id != ''")
		if err := app.Save(notes); err != nil {
			return err
		}

		// ── user profile fields ──
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		users.Fields.Add(
			&core.TextField{Name: "display_name", Max: 200},
			&core.TextField{Name: "campus_id", Max: 100},
			&core.TextField{Name: "department", Max: 300},
		)
		if err := app.Save(users); err != nil {
			return err
		}

		return nil
	}, func(app core.App) error {
		// Rollback: delete collections in reverse dependency order
		for _, name := range []string{"notes", "claims", "lostfound_posts"} {
			c, _ := app.FindCollectionByNameOrId(name)
			if c != nil {
				app.Delete(c)
			}
		}
		return nil
	})
}
