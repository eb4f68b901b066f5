package session

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ab-esl-ai/caption-gateway/internal/audio"
	"github.com/ab-esl-ai/caption-gateway/internal/captions"
	"github.com/ab-esl-ai/caption-gateway/internal/config"
	"github.com/ab-esl-ai/caption-gateway/internal/observability"
	"github.com/ab-esl-ai/caption-gateway/internal/store"
)

// fakeSource feeds frames pushed by the test.
type fakeSource struct {
	mu     sync.Mutex
	frames chan audio.Frame
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan audio.Frame, 16)}
}

func (s *fakeSource) Open(ctx context.Context, cfg audio.Config) (<-chan audio.Frame, error) {
	return s.frames, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeConn scripts the server side of the stream.
type fakeConn struct {
	mu      sync.Mutex
	inbound chan []byte
	closeCh chan struct{}
	closed  bool
	json    [][]byte
	binary  int
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closeCh: make(chan struct{})}
}

func (f *fakeConn) serverSend(msg string) { f.inbound <- []byte(msg) }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.inbound:
		return websocket.TextMessage, data, nil
	case <-f.closeCh:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.BinaryMessage {
		f.binary++
	}
	return nil
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.json = append(f.json, data)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closeCh)
	}
	return nil
}

func (f *fakeConn) binaryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.binary
}

type fakeDialer struct {
	conn *fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, urlStr string) (captions.Conn, error) {
	return d.conn, nil
}

func testConfig() *config.Config {
	return &config.Config{
		BackendURL:           "https://backend.example.com",
		SampleRate:           16000,
		SourceLanguage:       "en",
		TargetL1:             "es",
		FrameSize:            320,
		ReconnectMaxAttempts: 3,
		ReconnectDelay:       5,
	}
}

func newTestController(t *testing.T, cfg *config.Config, db *store.Store, conn *fakeConn) (*Controller, *fakeSource) {
	t.Helper()
	source := newFakeSource()

	c := NewController(cfg, db, zerolog.Nop())
	c.newSource = func(*config.Config) audio.Source { return source }
	c.newClient = func(opts captions.Options, m *observability.SessionMetrics, l zerolog.Logger) *captions.Client {
		client := captions.NewClient(opts, m, l)
		client.SetDialer(&fakeDialer{conn: conn})
		return client
	}
	return c, source
}

func waitForOpen(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-c.Events():
			if e.Kind == EventConn && e.Conn.Kind == captions.UpdateState && e.Conn.State == captions.StateOpen {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream open")
		}
	}
}

func TestController_StartStop(t *testing.T) {
	conn := newFakeConn()
	c, source := newTestController(t, testConfig(), nil, conn)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !c.Active() {
		t.Error("Expected active session")
	}
	if c.SessionID() == "" {
		t.Error("Expected a session id")
	}

	conn.serverSend(`{"type":"ready"}`)
	waitForOpen(t, c)

	// Encoded frames reach the stream once open
	source.frames <- make(audio.Frame, 320)
	deadline := time.After(2 * time.Second)
	for conn.binaryCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for forwarded audio")
		case <-time.After(time.Millisecond):
		}
	}

	c.Stop()

	if c.Active() {
		t.Error("Expected no active session after stop")
	}
	if !source.isClosed() {
		t.Error("Expected audio source released on stop")
	}
	if c.State() != captions.StateIdle {
		t.Errorf("Expected idle after stop, got %s", c.State())
	}
}

// blockingSource parks Open until released, so tests can hold a Start
// mid-construction.
type blockingSource struct {
	*fakeSource
	gate chan struct{}
}

func (s *blockingSource) Open(ctx context.Context, cfg audio.Config) (<-chan audio.Frame, error) {
	<-s.gate
	return s.fakeSource.Open(ctx, cfg)
}

func TestController_ConcurrentStartsSingleSession(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestController(t, testConfig(), nil, conn)

	source := &blockingSource{fakeSource: newFakeSource(), gate: make(chan struct{})}
	c.newSource = func(*config.Config) audio.Source { return source }

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- c.Start(context.Background())
		}()
	}

	// Let both Starts pass the entry check before the source opens
	time.Sleep(20 * time.Millisecond)
	close(source.gate)

	succeeded := 0
	for i := 0; i < 2; i++ {
		if err := <-results; err == nil {
			succeeded++
		}
	}

	if succeeded != 1 {
		t.Errorf("Expected exactly 1 Start to succeed, got %d", succeeded)
	}
	c.Stop()
}

func TestController_FailedStartReleasesSlot(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestController(t, testConfig(), nil, conn)

	openErr := errors.New("device busy")
	failing := true
	source := newFakeSource()
	c.newSource = func(*config.Config) audio.Source {
		if failing {
			return failingSource{err: openErr}
		}
		return source
	}

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Expected Start to fail while the source cannot open")
	}

	failing = false
	if err := c.Start(context.Background()); err != nil {
		t.Errorf("Expected slot released after failed Start, got %v", err)
	}
	c.Stop()
}

type failingSource struct{ err error }

func (s failingSource) Open(ctx context.Context, cfg audio.Config) (<-chan audio.Frame, error) {
	return nil, s.err
}

func (s failingSource) Close() error { return nil }

func TestController_NoGoroutineLeakAcrossCycles(t *testing.T) {
	dialer := &cycleDialer{}
	cfg := testConfig()

	c := NewController(cfg, nil, zerolog.Nop())
	c.newClient = func(opts captions.Options, m *observability.SessionMetrics, l zerolog.Logger) *captions.Client {
		client := captions.NewClient(opts, m, l)
		client.SetDialer(dialer)
		return client
	}

	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		source := newFakeSource()
		c.newSource = func(*config.Config) audio.Source { return source }
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		c.Stop()
	}

	deadline := time.After(2 * time.Second)
	for {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("goroutines leaked after 20 start/stop cycles: %d -> %d",
				before, runtime.NumGoroutine())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// cycleDialer hands out a fresh acked connection per dial.
type cycleDialer struct{}

func (cycleDialer) Dial(ctx context.Context, urlStr string) (captions.Conn, error) {
	conn := newFakeConn()
	conn.serverSend(`{"type":"ready"}`)
	return conn, nil
}

func TestController_StartWhileActive(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestController(t, testConfig(), nil, conn)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	if err := c.Start(context.Background()); err == nil {
		t.Error("Expected error starting a second session")
	}
}

func TestController_StopWithoutSession(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestController(t, testConfig(), nil, conn)

	c.Stop() // must not panic
	c.Stop()
}

func TestController_PersistsSegmentsWhenSaving(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "captions.sqlite"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer db.Close()

	cfg := testConfig()
	cfg.SaveTranscripts = true

	conn := newFakeConn()
	c, _ := newTestController(t, cfg, db, conn)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	id := c.SessionID()

	conn.serverSend(`{"type":"ready"}`)
	waitForOpen(t, c)

	conn.serverSend(`{"type":"final","text":"The cat sat.","segment_id":1}`)

	deadline := time.After(2 * time.Second)
	for {
		segments, err := db.SegmentsForSession(id)
		if err != nil {
			t.Fatalf("SegmentsForSession failed: %v", err)
		}
		if len(segments) == 1 {
			if segments[0].Text != "The cat sat." {
				t.Errorf("Unexpected persisted segment: %+v", segments[0])
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for persisted segment")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.Stop()

	sessions, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].EndedAt == nil {
		t.Errorf("Expected 1 ended session, got %+v", sessions)
	}
}

func TestController_ExportCSVAfterStop(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestController(t, testConfig(), nil, conn)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn.serverSend(`{"type":"ready"}`)
	waitForOpen(t, c)

	conn.serverSend(`{"type":"final","text":"Exported line.","segment_id":1}`)

	deadline := time.After(2 * time.Second)
	for c.Transcript().Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for segment")
		case <-time.After(time.Millisecond):
		}
	}

	c.Stop()

	var sb strings.Builder
	if err := c.ExportCSV(&sb); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !strings.Contains(sb.String(), "Exported line.") {
		t.Errorf("Expected exported text in CSV, got %q", sb.String())
	}
}

func TestController_ExportCSVBeforeFirstStart(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestController(t, testConfig(), nil, conn)

	var sb strings.Builder
	if err := c.ExportCSV(&sb); err == nil {
		t.Error("Expected error exporting before any session")
	}
}
