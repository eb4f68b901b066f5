// Package store persists caption session transcripts to a local SQLite
// file when the user opts in to saving.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ab-esl-ai/caption-gateway/internal/captions"
)

// Store provides read/write access to the local transcript database.
type Store struct {
	db *sql.DB
}

// Session is one saved caption session.
type Session struct {
	ID        string
	Lang      string
	L1        string
	StartedAt time.Time
	EndedAt   *time.Time
	Segments  int
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	lang       TEXT NOT NULL,
	l1         TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	ended_at   INTEGER
);
CREATE TABLE IF NOT EXISTS segments (
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	segment_id  INTEGER NOT NULL,
	text        TEXT NOT NULL,
	simplified  TEXT NOT NULL DEFAULT '',
	received_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, segment_id)
);
`

// Open opens or creates the transcript database with WAL journaling.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession records the start of a caption session.
func (s *Store) BeginSession(id, lang, l1 string, startedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, lang, l1, started_at)
		VALUES (?, ?, ?, ?)
	`, id, lang, l1, startedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession records the end time of a session. Ending an unknown session
// is a no-op.
func (s *Store) EndSession(id string, endedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET ended_at = ? WHERE id = ?
	`, endedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// SaveSegment persists one committed segment. Segment IDs are unique per
// session, so replaying a commit is harmless.
func (s *Store) SaveSegment(sessionID string, seg captions.Segment) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO segments (session_id, segment_id, text, simplified, received_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, seg.ID, seg.Text, seg.Simplified, seg.ReceivedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// Sessions returns saved sessions, most recent first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.lang, s.l1, s.started_at, s.ended_at, COUNT(g.segment_id)
		FROM sessions s
		LEFT JOIN segments g ON g.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var startedAt int64
		var endedAt sql.NullInt64
		if err := rows.Scan(&sess.ID, &sess.Lang, &sess.L1, &startedAt, &endedAt, &sess.Segments); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = time.Unix(startedAt, 0)
		if endedAt.Valid {
			t := time.Unix(endedAt.Int64, 0)
			sess.EndedAt = &t
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SegmentsForSession returns a session's committed segments in segment order.
func (s *Store) SegmentsForSession(sessionID string) ([]captions.Segment, error) {
	rows, err := s.db.Query(`
		SELECT segment_id, text, simplified, received_at
		FROM segments
		WHERE session_id = ?
		ORDER BY segment_id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []captions.Segment
	for rows.Next() {
		var seg captions.Segment
		var receivedAt int64
		if err := rows.Scan(&seg.ID, &seg.Text, &seg.Simplified, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.ReceivedAt = time.Unix(receivedAt, 0)
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
