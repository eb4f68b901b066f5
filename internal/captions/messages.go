package captions

import "encoding/json"

// Client -> server message types
const (
	msgTypeStart = "start"
	msgTypeStop  = "stop"
	msgTypePong  = "pong"
)

// Server -> client event kinds. Unknown kinds are ignored so the backend
// can add event types without breaking deployed clients.
const (
	eventReady   = "ready"
	eventStarted = "started"
	eventPartial = "partial"
	eventFinal   = "final"
	eventError   = "error"
	eventPing    = "ping"
)

// StartMessage is the initialization message sent once per connection,
// immediately after transport open.
type StartMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate"`
	Lang       string `json:"lang"`
	Save       bool   `json:"save"`
	L1         string `json:"l1,omitempty"`
	Simplify   int    `json:"simplify"`
	Token      string `json:"token,omitempty"`
}

// ControlMessage is a bare typed message: stop or pong.
type ControlMessage struct {
	Type string `json:"type"`
}

// GlossEntry pairs a source word with its L1 translation.
type GlossEntry struct {
	En string `json:"en"`
	L1 string `json:"l1"`
}

// FocusCommand is a highlighting instruction attached to simplified text.
type FocusCommand struct {
	Verb   string `json:"verb"`
	Object string `json:"object"`
}

// TimedWord is a transcribed word with timing offsets in seconds.
type TimedWord struct {
	Word  string  `json:"w"`
	Start float64 `json:"s"`
	End   float64 `json:"e"`
}

// ServerEvent is the decoded form of every inbound JSON message. Only the
// fields relevant to the event's Type are populated.
type ServerEvent struct {
	Type       string         `json:"type"`
	Text       string         `json:"text,omitempty"`
	Simplified string         `json:"simplified,omitempty"`
	Gloss      []GlossEntry   `json:"gloss,omitempty"`
	Focus      []FocusCommand `json:"focus,omitempty"`
	Words      []TimedWord    `json:"words,omitempty"`
	SegmentID  int64          `json:"segment_id,omitempty"`
	Message    string         `json:"message,omitempty"`
	ASREnabled *bool          `json:"asr_enabled,omitempty"`
}

// decodeServerEvent parses one inbound text message. A decode failure means
// a malformed message, which the caller drops without ending the session.
func decodeServerEvent(data []byte) (*ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
