package main

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	"github.com/campuslink/server/cmd/pocketbase/hooks"
	_ "github.com/campuslink/server/cmd/pocketbase/migrations"
)

func main() {
	app := pocketbase.New()

	// Register migration system
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Dir:         "cmd/pocketbase/migrations",
		Automigrate: true,
	})

	// Register business logic hooks
	hooks.Register(app)

	// Register custom API routes that match the existing server's endpoints
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		registerRoutes(se, app)
		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// registerRoutes adds custom routes that preserve backward compatibility
// with the existing campuslink client.
//
// PocketBase auto-generates CRUD at /api/collections/{name}/records,
// but clients expect the original REST paths. These routes bridge the gap.
func registerRoutes(se *core.ServeEvent, app core.App) {
	// GET /posts — list all lost and found posts
	se.Router.GET("/posts", func(e *core.RequestEvent) error {
		records, err := app.FindAllRecords("lostfound_posts")
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		type postSummary struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Title    string `json:"title"`
			Location string `json:"location"`
			Date     string `json:"date"`
			Status   string `json:"status"`
			ImageURL string `json:"image_url,omitempty"`
		}

		summaries := make([]postSummary, 0, len(records))
		for _, r := range records {
			summaries = append(summaries, postSummary{
				ID:       r.GetString("post_id"),
				Type:     r.GetString("type"),
				Title:    r.GetString("title"),
				Location: r.GetString("location"),
				Date:     r.GetString("date"),
				Status:   r.GetString("status"),
				ImageURL: r.GetString("image_url"),
			})
		}
		return e.JSON(http.StatusOK, summaries)
	})

	// GET /posts/{id} — get specific post with its claims
	se.Router.GET("/posts/{id}", func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		record, err := app.FindFirstRecordByFilter("lostfound_posts", "post_id = {:pid}", map[string]any{
			"pid": id,
		})
		if err != nil {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		claimRecords, _ := app.FindRecordsByFilter("claims", "post_id = {:pid}", "", 0, 0, map[string]any{
			"pid": id,
		})
		claims := make([]map[string]any, 0, len(claimRecords))
		for _, c := range claimRecords {
			claims = append(claims, map[string]any{
				"id":                  c.GetString("claim_id"),
				"claimer_uid":         c.GetString("claimer_uid"),
				"claimer_name":        c.GetString("claimer_name"),
				"claimer_description": c.GetString("claimer_description"),
				"decision":            c.GetString("decision"),
			})
		}

		post := map[string]any{
			"id":         record.GetString("post_id"),
			"type":       record.GetString("type"),
			"title":      record.GetString("title"),
			"details":    record.GetString("details"),
			"location":   record.GetString("location"),
			"date":       record.GetString("date"),
			"status":     record.GetString("status"),
			"image_url":  record.GetString("image_url"),
			"poster_uid": record.GetString("poster_uid"),
			"poster_name": record.GetString("poster_name"),
			"claims":     claims,
		}
		return e.JSON(http.StatusOK, post)
	})

	// POST /posts — create a lost or found post
	se.Router.POST("/posts", func(e *core.RequestEvent) error {
		var body struct {
			Type     string `json:"type"`
			Title    string `json:"title"`
			Details  string `json:"details"`
			Location string `json:"location"`
			Date     string `json:"date"`
			ImageURL string `json:"image_url"`
		}
		if err := e.BindBody(&body); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		}
		if body.Type != "lost" && body.Type != "found" {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "type must be lost or found"})
		}

		collection, err := app.FindCollectionByNameOrId("lostfound_posts")
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		date := body.Date
		if date == "" {
			date = time.Now().UTC().Format(time.RFC3339)
		}

		record := core.NewRecord(collection)
		record.Set("post_id", uuid.NewString())
		record.Set("type", body.Type)
		record.Set("title", body.Title)
		record.Set("details", body.Details)
		record.Set("location", body.Location)
		record.Set("date", date)
		record.Set("image_url", body.ImageURL)
		record.Set("status", "pending")
		record.Set("poster_uid", e.Auth.Id)
		record.Set("poster_email", e.Auth.Email())
		record.Set("poster_name", e.Auth.GetString("display_name"))

		if err := app.Save(record); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		return e.JSON(http.StatusCreated, map[string]string{"id": record.GetString("post_id")})
	}).Bind(apis.RequireAuth())

	// POST /posts/{id}/claims — submit a claim against a found post
	se.Router.POST("/posts/{id}/claims", func(e *core.RequestEvent) error {
		postID := e.Request.PathValue("id")
		var body struct {
			Description string `json:"description"`
		}
		if err := e.BindBody(&body); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		}

		post, err := app.FindFirstRecordByFilter("lostfound_posts", "post_id = {:pid}", map[string]any{
			"pid": postID,
		})
		if err != nil {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "post not found"})
		}
		if post.GetString("type") != "found" {
			return e.JSON(http.StatusConflict, map[string]string{"error": "only found posts accept claims"})
		}

		collection, err := app.FindCollectionByNameOrId("claims")
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		record := core.NewRecord(collection)
		record.Set("claim_id", uuid.NewString())
		record.Set("post_id", postID)
		record.Set("claimer_uid", e.Auth.Id)
		record.Set("claimer_email", e.Auth.Email())
		record.Set("claimer_name", e.Auth.GetString("display_name"))
		record.Set("claimer_description", body.Description)
		record.Set("decision", "pending")
		record.Set("idempotency_key", e.Request.Header.Get("Idempotency-Key"))

		if err := app.Save(record); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		return e.JSON(http.StatusCreated, map[string]string{"id": record.GetString("claim_id")})
	}).Bind(apis.RequireAuth())

	// GET /notes — list approved notes
	se.Router.GET("/notes", func(e *core.RequestEvent) error {
		records, err := app.FindRecordsByFilter("notes", "status = 'approved'", "", 0, 0)
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		type noteSummary struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Subject   string `json:"subject"`
			Semester  int    `json:"semester"`
			Type      string `json:"type"`
			Downloads int    `json:"downloads"`
		}

		summaries := make([]noteSummary, 0, len(records))
		for _, r := range records {
			summaries = append(summaries, noteSummary{
				ID:        r.GetString("note_id"),
				Title:     r.GetString("title"),
				Subject:   r.GetString("subject"),
				Semester:  r.GetInt("semester"),
				Type:      r.GetString("note_type"),
				Downloads: r.GetInt("downloads"),
			})
		}
		return e.JSON(http.StatusOK, summaries)
	})

	// GET /notes/{id}/file — download the note attachment
	se.Router.GET("/notes/{id}/file", func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")

		record, err := app.FindFirstRecordByFilter("notes", "note_id = {:nid}", map[string]any{
			"nid": id,
		})
		if err != nil {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "note not found"})
		}

		fileName := record.GetString("file")
		if fileName == "" {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "note has no file"})
		}

		record.Set("downloads", record.GetInt("downloads")+1)
		if err := app.Save(record); err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "storage error"})
		}

		// Serve the file through PocketBase's filesystem
		fsys, err := app.NewFilesystem()
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "storage error"})
		}
		defer fsys.Close()

		filePath := record.BaseFilesPath() + "/" + fileName
		return fsys.Serve(e.Response, e.Request, filePath, fileName)
	})
}
