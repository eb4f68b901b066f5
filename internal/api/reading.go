package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"
)

// ReadingError is one word-level scoring error: substitution, deletion or
// insertion.
type ReadingError struct {
	Type string  `json:"type"` // "sub", "del", "ins"
	Ref  string  `json:"ref,omitempty"`
	Hyp  string  `json:"hyp,omitempty"`
	Time float64 `json:"t,omitempty"`
}

// ScoredWord is a recognized word with timing offsets in seconds.
type ScoredWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ScoredReading is the fluency result for one recorded reading.
type ScoredReading struct {
	WPM      float64        `json:"wpm"`
	WCPM     float64        `json:"wcpm"`
	Accuracy float64        `json:"accuracy"`
	Errors   []ReadingError `json:"errors"`
	Words    []ScoredWord   `json:"words_timed"`
	Feedback string         `json:"feedback,omitempty"`
}

// ScoreAudioRequest is one recorded reading to score.
type ScoreAudioRequest struct {
	Audio           []byte // complete WAV file bytes
	Filename        string // defaults to reading.wav
	ReferenceText   string // optional; enables accuracy and error typing
	DurationSeconds float64
}

// ScoreAudio uploads a recorded reading for fluency scoring. The audio
// travels as a multipart file field so the backend can sniff the container.
func (c *Client) ScoreAudio(ctx context.Context, req ScoreAudioRequest) (*ScoredReading, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("empty audio")
	}

	filename := req.Filename
	if filename == "" {
		filename = "reading.wav"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("audio_file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if req.ReferenceText != "" {
		if err := mw.WriteField("reference_text", req.ReferenceText); err != nil {
			return nil, fmt.Errorf("build multipart: %w", err)
		}
	}
	if req.DurationSeconds > 0 {
		if err := mw.WriteField("duration_seconds", strconv.FormatFloat(req.DurationSeconds, 'f', -1, 64)); err != nil {
			return nil, fmt.Errorf("build multipart: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}

	body := buf.Bytes()
	var out ScoredReading
	err = c.do(ctx, "POST", "/v1/reading/score_audio", mw.FormDataContentType(), func() io.Reader {
		return bytes.NewReader(body)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EstimateWPM is the caller-chosen fallback when the scoring endpoint is
// unreachable: a plain words-over-elapsed-time estimate, never substituted
// silently for a real score.
func EstimateWPM(text string, elapsed time.Duration) float64 {
	words := len(strings.Fields(text))
	if words == 0 || elapsed <= 0 {
		return 0
	}
	return float64(words) / elapsed.Minutes()
}

// DecodableRequest asks for phonics-constrained text using only the given
// graphemes.
type DecodableRequest struct {
	Graphemes       []string `json:"graphemes"`
	LengthSentences int      `json:"length_sentences,omitempty"`
	WordBank        []string `json:"word_bank,omitempty"`
}

// DecodableResponse carries the generated decodable text.
type DecodableResponse struct {
	Text string `json:"text"`
}

// GenerateDecodable generates decodable practice text from a grapheme set
func (c *Client) GenerateDecodable(ctx context.Context, req DecodableRequest) (*DecodableResponse, error) {
	if len(req.Graphemes) == 0 {
		return nil, fmt.Errorf("no graphemes given")
	}

	var out DecodableResponse
	if err := c.postJSON(ctx, "/v1/reading/generate_decodable", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
