package api

import (
	"context"
	"fmt"
)

// LevelTextRequest asks for a text leveled to one or more readability
// targets, CEFR levels or grade levels.
type LevelTextRequest struct {
	Text    string   `json:"text"`
	Targets []string `json:"targets"` // e.g. ["A2", "B1", "Gr5"]
	L1      string   `json:"l1,omitempty"`
}

// Question is a generated comprehension question with its answer.
type Question struct {
	Type     string `json:"type"`
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// ReadabilityScore is the backend's analysis of a text's difficulty.
type ReadabilityScore struct {
	CEFR              string  `json:"cefr"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	DifficultWordPct  float64 `json:"difficult_word_pct"`
}

// LeveledText is one simplified version of the input text.
type LeveledText struct {
	Target    string       `json:"target"`
	Text      string       `json:"text"`
	Questions []Question   `json:"questions"`
	Gloss     []GlossEntry `json:"gloss"`
}

// LevelTextResponse carries every requested leveled version.
type LevelTextResponse struct {
	OriginalScore ReadabilityScore `json:"original_score"`
	Levels        []LeveledText    `json:"levels"`
}

// LevelText levels a text to the requested readability targets
func (c *Client) LevelText(ctx context.Context, req LevelTextRequest) (*LevelTextResponse, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("no targets given")
	}

	var out LevelTextResponse
	if err := c.postJSON(ctx, "/v1/authoring/level-text", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
