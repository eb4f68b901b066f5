package captions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// Segment is one committed caption. Once committed it is immutable; the
// transcript only ever appends.
type Segment struct {
	ID         int64
	Text       string
	Simplified string
	Gloss      []GlossEntry
	Focus      []FocusCommand
	Words      []TimedWord
	ReceivedAt time.Time
}

// Transcript reconciles the stream of partial/final events into a stable,
// append-only sequence of segments plus at most one live partial line.
type Transcript struct {
	mu       sync.RWMutex
	segments []Segment
	partial  string
	lastID   int64
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// SetPartial replaces the live partial text. Partials never accumulate;
// each one displaces the previous.
func (t *Transcript) SetPartial(text string) {
	t.mu.Lock()
	t.partial = text
	t.mu.Unlock()
}

// Partial returns the current live partial text, empty if none
func (t *Transcript) Partial() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.partial
}

// CommitFinal clears the live partial and appends exactly one immutable
// segment. Segment IDs are kept strictly increasing: a server that omits
// or repeats an ID still yields a monotonic sequence on our side.
func (t *Transcript) CommitFinal(ev *ServerEvent, receivedAt time.Time) Segment {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := ev.SegmentID
	if id <= t.lastID {
		id = t.lastID + 1
	}
	t.lastID = id

	seg := Segment{
		ID:         id,
		Text:       ev.Text,
		Simplified: ev.Simplified,
		Gloss:      ev.Gloss,
		Focus:      ev.Focus,
		Words:      ev.Words,
		ReceivedAt: receivedAt,
	}

	t.partial = ""
	t.segments = append(t.segments, seg)
	return seg
}

// Segments returns a copy of the committed segments in commit order
func (t *Transcript) Segments() []Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Len returns the number of committed segments
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.segments)
}

// Reset clears all state for a fresh logical session
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.segments = nil
	t.partial = ""
	t.lastID = 0
	t.mu.Unlock()
}

// WriteCSV exports the committed segments as CSV, one row per segment.
// Gloss pairs are flattened into a single semicolon-separated column.
func (t *Transcript) WriteCSV(w io.Writer) error {
	segments := t.Segments()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"segment_id", "received_at", "text", "simplified", "gloss"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, seg := range segments {
		gloss := ""
		for i, g := range seg.Gloss {
			if i > 0 {
				gloss += "; "
			}
			gloss += g.En + "=" + g.L1
		}

		row := []string{
			strconv.FormatInt(seg.ID, 10),
			seg.ReceivedAt.UTC().Format(time.RFC3339),
			seg.Text,
			seg.Simplified,
			gloss,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
