// Package session owns the lifecycle of the single active caption session:
// audio source, encoder, stream client, and optional persistence.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ab-esl-ai/caption-gateway/internal/audio"
	"github.com/ab-esl-ai/caption-gateway/internal/captions"
	"github.com/ab-esl-ai/caption-gateway/internal/config"
	"github.com/ab-esl-ai/caption-gateway/internal/observability"
	"github.com/ab-esl-ai/caption-gateway/internal/store"
)

// EventKind tags controller events.
type EventKind int

const (
	EventConn  EventKind = iota // connection or transcript update
	EventLevel                  // input level reading
)

// Event is one notification to the presentation layer.
type Event struct {
	Kind  EventKind
	Conn  captions.Update
	Level audio.Level
}

// SourceFactory builds the audio source for a new session.
type SourceFactory func(cfg *config.Config) audio.Source

// DefaultSourceFactory reads a WAV file when one is configured, otherwise
// raw PCM from stdin (the capture tool pipes into us).
func DefaultSourceFactory(cfg *config.Config) audio.Source {
	if cfg.AudioSource != "" {
		return audio.NewWAVSource(cfg.AudioSource, true)
	}
	return audio.NewStdinSource()
}

// Controller owns at most one active caption session at a time.
type Controller struct {
	cfg       *config.Config
	logger    zerolog.Logger
	db        *store.Store // nil when persistence is disabled
	newSource SourceFactory
	newClient func(opts captions.Options, m *observability.SessionMetrics, l zerolog.Logger) *captions.Client

	mu       sync.Mutex
	active   *session
	starting bool                 // a Start holds the session slot before active is set
	lastTxn  *captions.Transcript // survives Stop so export still works

	events chan Event
}

type session struct {
	id        string
	client    *captions.Client
	source    audio.Source
	metrics   *observability.SessionMetrics
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
}

// NewController creates a controller. db may be nil to disable persistence.
func NewController(cfg *config.Config, db *store.Store, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		newSource: DefaultSourceFactory,
		newClient: captions.NewClient,
		events:    make(chan Event, 256),
	}
}

// Events returns the controller's notification channel
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Active reports whether a session is currently running
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// State returns the stream connection state, idle when no session exists
func (c *Controller) State() captions.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return captions.StateIdle
	}
	return c.active.client.State()
}

// Attempts returns the reconnect attempts consumed by the active session
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0
	}
	return c.active.client.Attempts()
}

// SessionID returns the active session's identifier, empty when idle
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.id
}

// Start begins a new caption session: open the audio source, dial the
// stream, and run the encode/forward pump until Stop. The session slot is
// claimed before the mutex drops, so a second Start racing an in-flight one
// fails instead of leaking the first session's source and client.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.active != nil || c.starting {
		c.mu.Unlock()
		return fmt.Errorf("session already active")
	}
	c.starting = true
	c.mu.Unlock()

	id := observability.NewSessionID()
	metrics := observability.NewSessionMetrics(id)
	logger := observability.WithSession(id)

	client := c.newClient(captions.Options{
		BaseURL:              c.cfg.BackendURL,
		Token:                c.cfg.SessionToken,
		SampleRate:           c.cfg.SampleRate,
		Lang:                 c.cfg.SourceLanguage,
		L1:                   c.cfg.TargetL1,
		Simplify:             c.cfg.SimplifyStrength,
		Save:                 c.cfg.SaveTranscripts,
		ReconnectMaxAttempts: c.cfg.ReconnectMaxAttempts,
		ReconnectDelay:       c.cfg.ReconnectDelayDuration(),
	}, metrics, logger)

	source := c.newSource(c.cfg)
	sessCtx, cancel := context.WithCancel(ctx)

	frames, err := source.Open(sessCtx, audio.Config{
		SampleRate: c.cfg.SampleRate,
		FrameSize:  c.cfg.FrameSize,
	})
	if err != nil {
		cancel()
		metrics.RecordEnd()
		c.release()
		return fmt.Errorf("open audio source: %w", err)
	}

	if err := client.Start(sessCtx); err != nil {
		source.Close()
		cancel()
		metrics.RecordEnd()
		c.release()
		return fmt.Errorf("start caption stream: %w", err)
	}

	sess := &session{
		id:        id,
		client:    client,
		source:    source,
		metrics:   metrics,
		ctx:       sessCtx,
		cancel:    cancel,
		startedAt: time.Now(),
	}

	c.mu.Lock()
	c.active = sess
	c.starting = false
	c.lastTxn = client.Transcript()
	c.mu.Unlock()

	if c.db != nil && c.cfg.SaveTranscripts {
		if err := c.db.BeginSession(id, c.cfg.SourceLanguage, c.cfg.TargetL1, sess.startedAt); err != nil {
			logger.Warn().Err(err).Msg("failed to record session start")
		}
	}

	logger.Info().Str("lang", c.cfg.SourceLanguage).Str("l1", c.cfg.TargetL1).Msg("session started")

	go c.pump(sess, frames)
	go c.forward(sess)

	return nil
}

// pump encodes captured frames and forwards them to the stream. Frames
// keep flowing into the meter even while the stream is down so the level
// display stays honest during reconnects.
func (c *Controller) pump(sess *session, frames <-chan audio.Frame) {
	meter := audio.NewLevelMeter(nil)

	for frame := range frames {
		level := meter.Process(frame)
		c.emit(Event{Kind: EventLevel, Level: level})

		sess.client.SendAudio(audio.EncodePCM16(frame))
	}

	// Source drained: a finite WAV input ends the session naturally.
	c.logger.Debug().Str("session_id", sess.id).Msg("audio source drained")
}

// release frees the session slot claimed by a failed Start
func (c *Controller) release() {
	c.mu.Lock()
	c.starting = false
	c.mu.Unlock()
}

// forward relays client updates to the controller's event channel and
// persists committed segments when saving is on. The session context ends
// the goroutine on Stop; the updates channel itself is never closed.
func (c *Controller) forward(sess *session) {
	for {
		select {
		case u := <-sess.client.Updates():
			if u.Kind == captions.UpdateSegment && u.Segment != nil && c.db != nil && c.cfg.SaveTranscripts {
				if err := c.db.SaveSegment(sess.id, *u.Segment); err != nil {
					c.logger.Warn().Err(err).Msg("failed to persist segment")
				}
			}
			c.emit(Event{Kind: EventConn, Conn: u})
		case <-sess.ctx.Done():
			return
		}
	}
}

// Stop tears the active session down in order: release the audio source
// first, then close the stream, then cancel anything still pending. Safe
// to call when no session is active.
func (c *Controller) Stop() {
	c.mu.Lock()
	sess := c.active
	c.active = nil
	c.mu.Unlock()

	if sess == nil {
		return
	}

	if err := sess.source.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("audio source close failed")
	}
	sess.client.Stop()
	sess.cancel()

	if c.db != nil && c.cfg.SaveTranscripts {
		if err := c.db.EndSession(sess.id, time.Now()); err != nil {
			c.logger.Warn().Err(err).Msg("failed to record session end")
		}
	}

	sess.metrics.RecordEnd()
	c.logger.Info().Str("session_id", sess.id).Msg("session stopped")
}

// Restart is the explicit manual-reconnect action: full teardown, then a
// fresh session with a reset reconnect budget.
func (c *Controller) Restart(ctx context.Context) error {
	c.Stop()
	return c.Start(ctx)
}

// ExportCSV writes the most recent transcript as CSV. Works after Stop;
// the transcript outlives its session until the next Start.
func (c *Controller) ExportCSV(w io.Writer) error {
	c.mu.Lock()
	txn := c.lastTxn
	c.mu.Unlock()

	if txn == nil {
		return fmt.Errorf("no transcript to export")
	}
	return txn.WriteCSV(w)
}

// Transcript returns the most recent transcript, nil before the first Start
func (c *Controller) Transcript() *captions.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTxn
}

func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}
