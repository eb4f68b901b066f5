package api

import (
	"context"
	"fmt"
)

// GlossRequest asks for L1 glossary entries for a text.
type GlossRequest struct {
	Text string `json:"text"`
	L1   string `json:"l1"`
	TopK int    `json:"top_k,omitempty"`
}

// GlossEntry pairs a source word with its L1 translation.
type GlossEntry struct {
	En         string `json:"en"`
	L1         string `json:"l1"`
	Definition string `json:"definition,omitempty"`
}

// GlossResponse carries the translation and the per-word gloss.
type GlossResponse struct {
	Translation string       `json:"translation"`
	Gloss       []GlossEntry `json:"gloss"`
}

// Gloss requests a whole-text translation plus per-word gloss entries
func (c *Client) Gloss(ctx context.Context, req GlossRequest) (*GlossResponse, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if req.L1 == "" {
		return nil, fmt.Errorf("no l1 given")
	}

	var out GlossResponse
	if err := c.postJSON(ctx, "/v1/captions/gloss", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
