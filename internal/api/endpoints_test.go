package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestLevelText(t *testing.T) {
	c, _ := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/authoring/level-text" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}

		var req LevelTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.L1 != "es" || len(req.Targets) != 2 {
			t.Errorf("Unexpected request: %+v", req)
		}

		json.NewEncoder(w).Encode(LevelTextResponse{
			OriginalScore: ReadabilityScore{CEFR: "B2", AvgSentenceLength: 18.2, DifficultWordPct: 0.21},
			Levels: []LeveledText{
				{
					Target:    "A2",
					Text:      "A short simple version.",
					Questions: []Question{{Type: "literal", Question: "What happened?", Answer: "It was short."}},
					Gloss:     []GlossEntry{{En: "short", L1: "corto"}},
				},
			},
		})
	}))

	resp, err := c.LevelText(context.Background(), LevelTextRequest{
		Text:    "A long and winding original paragraph.",
		Targets: []string{"A2", "B1"},
		L1:      "es",
	})
	if err != nil {
		t.Fatalf("LevelText failed: %v", err)
	}
	if resp.OriginalScore.CEFR != "B2" {
		t.Errorf("Unexpected original score: %+v", resp.OriginalScore)
	}
	if len(resp.Levels) != 1 || resp.Levels[0].Target != "A2" {
		t.Errorf("Unexpected levels: %+v", resp.Levels)
	}
}

func TestLevelText_Validation(t *testing.T) {
	c, _ := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no request for invalid input")
	}))

	if _, err := c.LevelText(context.Background(), LevelTextRequest{Targets: []string{"A2"}}); err == nil {
		t.Error("Expected error for empty text")
	}
	if _, err := c.LevelText(context.Background(), LevelTextRequest{Text: "hi"}); err == nil {
		t.Error("Expected error for missing targets")
	}
}

func TestGloss(t *testing.T) {
	c, _ := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/captions/gloss" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}

		var req GlossRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.L1 != "uk" {
			t.Errorf("Unexpected l1 %q", req.L1)
		}

		json.NewEncoder(w).Encode(GlossResponse{
			Translation: "Кіт сів на килимок.",
			Gloss:       []GlossEntry{{En: "cat", L1: "кіт"}},
		})
	}))

	resp, err := c.Gloss(context.Background(), GlossRequest{Text: "The cat sat on the mat.", L1: "uk"})
	if err != nil {
		t.Fatalf("Gloss failed: %v", err)
	}
	if len(resp.Gloss) != 1 || resp.Gloss[0].En != "cat" {
		t.Errorf("Unexpected gloss: %+v", resp.Gloss)
	}
}

func TestTransferPatterns(t *testing.T) {
	c, _ := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/l1-transfer/patterns/es" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}

		json.NewEncoder(w).Encode(TransferPatterns{
			Code:   "es",
			Name:   "Spanish",
			Family: "Romance",
			Phonology: []PhonologicalDifficulty{
				{Phoneme: "/v/", Issue: "confused with /b/", Priority: "high"},
			},
		})
	}))

	resp, err := c.TransferPatterns(context.Background(), "es")
	if err != nil {
		t.Fatalf("TransferPatterns failed: %v", err)
	}
	if resp.Name != "Spanish" || len(resp.Phonology) != 1 {
		t.Errorf("Unexpected patterns: %+v", resp)
	}
}

func TestPredictErrors(t *testing.T) {
	c, _ := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/l1-transfer/predict-errors" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}

		json.NewEncoder(w).Encode([]ErrorPrediction{
			{Type: "article_missing", Feature: "articles", Suggestion: "add 'the'"},
		})
	}))

	preds, err := c.PredictErrors(context.Background(), PredictErrorsRequest{Text: "Cat sat on mat.", L1: "uk"})
	if err != nil {
		t.Fatalf("PredictErrors failed: %v", err)
	}
	if len(preds) != 1 || preds[0].Type != "article_missing" {
		t.Errorf("Unexpected predictions: %+v", preds)
	}
}
