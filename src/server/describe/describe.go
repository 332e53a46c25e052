// Package describe generates listing descriptions for found items. The live
// implementation calls the Gemini REST API; it sits behind an interface so the
// server runs fine without a key.
package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Describer interface {
	Describe(ctx context.Context, title string) (string, error)
}

const (
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	geminiModel    = "gemini-2.5-flash"
)

type Gemini struct {
	apiKey string
	model  string
	client *http.Client
}

func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		apiKey: apiKey,
		model:  geminiModel,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Describe(ctx context.Context, title string) (string, error) {
	prompt := fmt.Sprintf("You are a helpful assistant for a university's Lost & Found portal. "+
		"Generate a detailed, friendly, and helpful description for a newly found item listing. "+
		"The title of the item is %q. The description should encourage the rightful owner to "+
		"come forward and claim it. Include some general details one might expect for such an "+
		"item, and mention that they should provide specific details to verify ownership. "+
		"Keep the tone helpful and clear. Keep it under 80 words.", title)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf(geminiEndpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
