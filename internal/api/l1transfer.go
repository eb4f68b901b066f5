package api

import (
	"context"
	"fmt"
	"net/url"
)

// PhonologicalDifficulty is one known pronunciation challenge for an L1.
type PhonologicalDifficulty struct {
	Phoneme      string   `json:"phoneme"`
	Issue        string   `json:"issue"`
	Priority     string   `json:"priority"`
	MinimalPairs []string `json:"minimal_pairs,omitempty"`
	TeachingTip  string   `json:"teaching_tip,omitempty"`
}

// GrammarChallenge is one known grammar transfer challenge for an L1.
type GrammarChallenge struct {
	Feature      string   `json:"feature"`
	Priority     string   `json:"priority"`
	Issue        string   `json:"issue"`
	CommonErrors []string `json:"common_errors,omitempty"`
}

// TransferPatterns is the linguistic transfer profile for one L1.
type TransferPatterns struct {
	Code          string                   `json:"code"`
	Name          string                   `json:"name"`
	Family        string                   `json:"family"`
	WritingSystem string                   `json:"writing_system"`
	Phonology     []PhonologicalDifficulty `json:"phonology"`
	Grammar       []GrammarChallenge       `json:"grammar"`
}

// TransferPatterns fetches the transfer profile for an L1 language code
func (c *Client) TransferPatterns(ctx context.Context, code string) (*TransferPatterns, error) {
	if code == "" {
		return nil, fmt.Errorf("empty language code")
	}

	var out TransferPatterns
	endpoint := "/v1/l1-transfer/patterns/" + url.PathEscape(code)
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictErrorsRequest asks which transfer errors a text is likely to show.
type PredictErrorsRequest struct {
	Text string `json:"text"`
	L1   string `json:"l1"`
}

// ErrorPrediction is one predicted transfer error.
type ErrorPrediction struct {
	Type          string `json:"type"`
	Feature       string `json:"feature"`
	Location      string `json:"location"`
	Issue         string `json:"issue"`
	Suggestion    string `json:"suggestion"`
	L1Explanation string `json:"l1_explanation"`
}

// PredictErrors analyzes a text for likely L1 transfer errors
func (c *Client) PredictErrors(ctx context.Context, req PredictErrorsRequest) ([]ErrorPrediction, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if req.L1 == "" {
		return nil, fmt.Errorf("no l1 given")
	}

	var out []ErrorPrediction
	if err := c.postJSON(ctx, "/v1/l1-transfer/predict-errors", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
