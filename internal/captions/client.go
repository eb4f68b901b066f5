package captions

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ab-esl-ai/caption-gateway/internal/observability"
	"github.com/ab-esl-ai/caption-gateway/internal/resilience"
)

// ConnState is the connection lifecycle state of a stream session.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// UpdateKind tags the updates the client emits to its owner.
type UpdateKind int

const (
	UpdateState UpdateKind = iota
	UpdatePartial
	UpdateSegment
	UpdateStatus
)

// Update is a single notification to the presentation layer.
type Update struct {
	Kind     UpdateKind
	State    ConnState
	Partial  string
	Segment  *Segment
	Status   string // user-visible status or error text
	Terminal bool   // reconnect budget exhausted; explicit user action required
}

// Conn is the minimal transport surface the client needs. gorilla's
// *websocket.Conn satisfies it; tests substitute a scripted fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens a transport connection to the captions endpoint.
type Dialer interface {
	Dial(ctx context.Context, urlStr string) (Conn, error)
}

type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, urlStr string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, urlStr, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options configures a stream client.
type Options struct {
	BaseURL    string // backend base URL, http(s) or ws(s)
	Token      string // opaque session token, forwarded in the start message
	SampleRate int
	Lang       string
	L1         string
	Simplify   int
	Save       bool

	ReconnectMaxAttempts int
	ReconnectDelay       time.Duration
}

// Client manages exactly one logical caption stream session: it dials the
// captions endpoint, runs the start handshake, forwards encoded audio while
// open, reconciles inbound transcript events, and retries abnormal closures
// at a fixed delay until its attempt budget runs out.
type Client struct {
	opts    Options
	dialer  Dialer
	logger  zerolog.Logger
	metrics *observability.SessionMetrics

	mu              sync.Mutex
	state           ConnState
	conn            Conn
	recording       bool // user intent: keep the stream alive
	attempts        int  // automatic reconnects consumed; reset only by Start
	reconnectCancel context.CancelFunc

	transcript *Transcript
	updates    chan Update
}

// NewClient creates an idle stream client
func NewClient(opts Options, metrics *observability.SessionMetrics, logger zerolog.Logger) *Client {
	return &Client{
		opts:       opts,
		dialer:     wsDialer{},
		logger:     logger,
		metrics:    metrics,
		state:      StateIdle,
		transcript: NewTranscript(),
		updates:    make(chan Update, 256),
	}
}

// SetDialer overrides the transport dialer. Tests use this to script the
// server side; production code never calls it.
func (c *Client) SetDialer(d Dialer) {
	c.dialer = d
}

// Updates returns the channel of notifications to the presentation layer
func (c *Client) Updates() <-chan Update {
	return c.updates
}

// Transcript returns the session transcript owned by this client
func (c *Client) Transcript() *Transcript {
	return c.transcript
}

// State returns the current connection state
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the automatic reconnect attempts consumed so far
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Start opens a fresh logical session: transcript and reconnect budget are
// reset, then the full handshake runs. Starting while a session is active
// is an error; the owner must Stop first.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateClosed {
		c.mu.Unlock()
		return fmt.Errorf("stream session already active (state %s)", c.state)
	}
	c.recording = true
	c.attempts = 0
	c.mu.Unlock()

	c.transcript.Reset()

	if err := c.connect(ctx); err != nil {
		c.mu.Lock()
		c.recording = false
		c.state = StateClosed
		c.mu.Unlock()
		c.emit(Update{Kind: UpdateState, State: StateClosed, Status: "connection failed"})
		return err
	}
	return nil
}

// connect runs one full idle->connecting->open handshake: dial, send the
// init message, and hand the connection to the read loop. The open
// transition itself happens when the server acknowledges with ready/started.
func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	endpoint, err := c.streamURL()
	if err != nil {
		return err
	}

	conn, err := c.dialer.Dial(ctx, endpoint)
	if err != nil {
		c.setState(StateClosed)
		return fmt.Errorf("dial captions stream: %w", err)
	}

	start := StartMessage{
		Type:       msgTypeStart,
		SampleRate: c.opts.SampleRate,
		Lang:       c.opts.Lang,
		Save:       c.opts.Save,
		L1:         c.opts.L1,
		Simplify:   c.opts.Simplify,
		Token:      c.opts.Token,
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		c.setState(StateClosed)
		return fmt.Errorf("send start message: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// streamURL builds the websocket endpoint from the configured base URL
func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/v1/captions/stream"

	q := u.Query()
	q.Set("simplify_strength", strconv.Itoa(c.opts.Simplify))
	if c.opts.L1 != "" {
		q.Set("l1", c.opts.L1)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// SendAudio forwards one encoded PCM frame. Frames are sent only while the
// stream is open; anything else is dropped, never buffered, so a stalled
// connection cannot grow memory. Returns whether the frame was sent.
func (c *Client) SendAudio(pcm []byte) bool {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		if c.metrics != nil {
			c.metrics.RecordDroppedFrame()
		}
		return false
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		// The read loop sees the same failure and runs the closure path;
		// the frame is simply lost.
		c.logger.Debug().Err(err).Msg("audio frame write failed")
		if c.metrics != nil {
			c.metrics.RecordDroppedFrame()
		}
		return false
	}

	if c.metrics != nil {
		c.metrics.RecordAudioBytes(int64(len(pcm)))
	}
	return true
}

// readLoop processes inbound events strictly in receipt order until the
// connection dies. It is the only goroutine that mutates the transcript.
func (c *Client) readLoop(conn Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosure(conn, err)
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		ev, err := decodeServerEvent(data)
		if err != nil {
			// Malformed message: drop it, keep the session alive.
			c.logger.Warn().Err(err).Msg("dropping malformed server message")
			if c.metrics != nil {
				c.metrics.RecordError("malformed_message", "captions")
			}
			continue
		}

		c.dispatch(conn, ev)
	}
}

// dispatch applies one server event. Unknown kinds fall through untouched.
func (c *Client) dispatch(conn Conn, ev *ServerEvent) {
	switch ev.Type {
	case eventReady, eventStarted:
		c.mu.Lock()
		wasConnecting := c.state == StateConnecting
		if wasConnecting {
			c.state = StateOpen
		}
		c.mu.Unlock()

		if wasConnecting {
			c.logger.Info().Str("event", ev.Type).Msg("caption stream open")
			c.emit(Update{Kind: UpdateState, State: StateOpen})
		}

	case eventPartial:
		c.transcript.SetPartial(ev.Text)
		if c.metrics != nil {
			c.metrics.RecordPartial()
		}
		c.emit(Update{Kind: UpdatePartial, Partial: ev.Text})

	case eventFinal:
		seg := c.transcript.CommitFinal(ev, time.Now())
		if c.metrics != nil {
			c.metrics.RecordSegment()
		}
		c.logger.Debug().Int64("segment_id", seg.ID).Msg("segment committed")
		c.emit(Update{Kind: UpdateSegment, Segment: &seg})

	case eventError:
		// Server-reported application error: surfaced, session continues.
		c.logger.Warn().Str("message", ev.Message).Msg("server error event")
		if c.metrics != nil {
			c.metrics.RecordError("server_error", "captions")
		}
		c.emit(Update{Kind: UpdateStatus, Status: ev.Message})

	case eventPing:
		// Keepalive: answer immediately or the server closes on us.
		if err := conn.WriteJSON(ControlMessage{Type: msgTypePong}); err != nil {
			c.logger.Debug().Err(err).Msg("pong write failed")
		} else if c.metrics != nil {
			c.metrics.RecordPong()
		}

	default:
		c.logger.Debug().Str("type", ev.Type).Msg("ignoring unknown event kind")
	}
}

// handleClosure runs when the read loop loses the connection. A closure
// during an explicit stop finalizes quietly; anything else is abnormal and
// enters the reconnect path while the user still intends to record.
func (c *Client) handleClosure(conn Conn, cause error) {
	conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	userStopped := !c.recording || c.state == StateClosing
	c.state = StateClosed
	remaining := c.opts.ReconnectMaxAttempts - c.attempts
	c.mu.Unlock()

	if userStopped {
		c.emit(Update{Kind: UpdateState, State: StateClosed})
		return
	}

	c.logger.Warn().Err(cause).Int("attempts_left", remaining).Msg("abnormal closure")
	if c.metrics != nil {
		c.metrics.RecordError("abnormal_closure", "captions")
	}
	c.emit(Update{Kind: UpdateState, State: StateClosed, Status: "connection lost"})

	if remaining <= 0 {
		c.terminal()
		return
	}

	rctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.reconnectCancel = cancel
	c.mu.Unlock()

	go c.reconnect(rctx, remaining)
}

// reconnect retries the full handshake at the fixed delay until it succeeds
// or the remaining budget is spent. The budget spans the whole recording
// intent: a successful automatic reconnect does not refill it.
func (c *Client) reconnect(ctx context.Context, remaining int) {
	cfg := &resilience.ReconnectConfig{
		MaxAttempts: remaining,
		Delay:       c.opts.ReconnectDelay,
	}

	_, err := resilience.Reconnect(ctx, func() error {
		c.mu.Lock()
		stopped := !c.recording
		c.mu.Unlock()
		if stopped {
			return fmt.Errorf("recording stopped")
		}
		return c.connect(ctx)
	}, cfg, func(attempt int) {
		c.mu.Lock()
		c.attempts++
		total := c.attempts
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordReconnectAttempt()
		}
		c.logger.Info().
			Int("attempt", total).
			Int("max", c.opts.ReconnectMaxAttempts).
			Msg("reconnecting caption stream")
	})

	if err != nil && ctx.Err() == nil {
		c.mu.Lock()
		stillRecording := c.recording
		c.mu.Unlock()
		if stillRecording {
			c.terminal()
		}
	}
}

// terminal marks the session permanently closed until explicit user action
func (c *Client) terminal() {
	c.mu.Lock()
	c.recording = false
	c.state = StateClosed
	c.mu.Unlock()

	c.logger.Warn().Msg("reconnect attempts exhausted")
	c.emit(Update{
		Kind:     UpdateState,
		State:    StateClosed,
		Status:   "connection lost, reconnect manually",
		Terminal: true,
	})
}

// Stop tears the session down: send the stop control message if the stream
// is open, close the transport, and cancel any pending reconnect timer.
// Every step runs even if an earlier one fails; Stop is idempotent.
// (Releasing the audio device is the session controller's first step and
// happens before this is called.)
func (c *Client) Stop() {
	c.mu.Lock()
	c.recording = false
	conn := c.conn
	c.conn = nil
	wasOpen := c.state == StateOpen
	if c.state != StateIdle {
		c.state = StateClosing
	}
	cancel := c.reconnectCancel
	c.reconnectCancel = nil
	c.mu.Unlock()

	if conn != nil {
		if wasOpen {
			if err := conn.WriteJSON(ControlMessage{Type: msgTypeStop}); err != nil {
				c.logger.Debug().Err(err).Msg("stop message write failed")
			}
		}
		if err := conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("transport close failed")
		}
	}

	if cancel != nil {
		cancel()
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.state = StateClosed
	}
	c.mu.Unlock()
	c.emit(Update{Kind: UpdateState, State: StateClosed})
}

// setState updates the state and notifies the owner
func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	c.emit(Update{Kind: UpdateState, State: s})
}

// emit delivers an update without ever blocking the read loop
func (c *Client) emit(u Update) {
	select {
	case c.updates <- u:
	default:
		c.logger.Warn().Msg("update channel full, dropping update")
	}
}
