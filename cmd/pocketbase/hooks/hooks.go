package hooks

import (
	"log/slog"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// Register adds all business logic hooks to the PocketBase app.
func Register(app core.App) {
	// Reject claims against posts that are not pending anymore.
	app.OnRecordCreate("claims").BindFunc(func(e *core.RecordEvent) error {
		postID := e.Record.GetString("post_id")
		if postID == "" {
			return e.Next()
		}

		post, err := e.App.FindFirstRecordByFilter("lostfound_posts", "post_id = {:pid}", map[string]any{
			"pid": postID,
		})
		if err != nil {
			slog.Warn("Claim references unknown post", "post_id", postID, "error", err)
			return e.Next()
		}

		if post.GetString("status") != "pending" {
			return apis.NewBadRequestError("post is no longer accepting claims", nil)
		}
		return e.Next()
	})

	// When a claim is accepted, move its post to "claimed".
	app.OnRecordAfterUpdateSuccess("claims").BindFunc(func(e *core.RecordEvent) error {
		if e.Record.GetString("decision") != "accepted" {
			return e.Next()
		}

		postID := e.Record.GetString("post_id")
		if postID == "" {
			return e.Next()
		}

		post, err := e.App.FindFirstRecordByFilter("lostfound_posts", "post_id = {:pid}", map[string]any{
			"pid": postID,
		})
		if err != nil {
			slog.Warn("Could not find post to mark as claimed",
				"post_id", postID, "error", err)
			return e.Next()
		}

		if post.GetString("status") == "pending" {
			post.Set("status", "claimed")
			if err := e.App.Save(post); err != nil {
				slog.Error("Failed to update post status to claimed",
					"post_id", postID, "error", err)
			}
		}

		return e.Next()
	})
}
