package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/landmark"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrCorruptSession is returned when stored frame data cannot be decoded.
var ErrCorruptSession = errors.New("corrupt session data")

// Session represents a recorded observation session.
type Session struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	FrameCount int           `json:"frame_count"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Frame is one recorded frame: the hands observed and the frame's offset
// from the session start. Replaying frames with timestamps derived from the
// offsets reproduces the live run exactly.
type Frame struct {
	Offset time.Duration   `json:"offset"`
	Hands  []landmark.Hand `json:"hands"`
}

// SessionRepository provides CRUD operations for sessions and their frames.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new empty session and returns it.
func (r *SessionRepository) Create(name string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, name, frame_count, duration_ms, created_at)
		 VALUES (?, ?, 0, 0, ?)`,
		sess.ID, sess.Name, sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// AppendFrames adds frames to a session in a single transaction and updates
// the session's frame count and duration.
func (r *SessionRepository) AppendFrames(sessionID string, frames []Frame) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	var durationMs int64
	err = tx.QueryRow(
		`SELECT frame_count, duration_ms FROM sessions WHERE id = ?`, sessionID,
	).Scan(&count, &durationMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO session_frames (session_id, frame_index, offset_ms, hands)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		data, err := json.Marshal(f.Hands)
		if err != nil {
			return err
		}
		offsetMs := f.Offset.Milliseconds()
		if _, err := stmt.Exec(sessionID, count, offsetMs, string(data)); err != nil {
			return err
		}
		count++
		if offsetMs > durationMs {
			durationMs = offsetMs
		}
	}

	_, err = tx.Exec(
		`UPDATE sessions SET frame_count = ?, duration_ms = ? WHERE id = ?`,
		count, durationMs, sessionID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Get retrieves a session by its ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	sess := &Session{}
	var durationMs int64

	err := r.db.QueryRow(
		`SELECT id, name, frame_count, duration_ms, created_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.Name, &sess.FrameCount, &durationMs, &sess.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sess.Duration = time.Duration(durationMs) * time.Millisecond
	return sess, nil
}

// List retrieves all sessions, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, name, frame_count, duration_ms, created_at
		 FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var durationMs int64

		err := rows.Scan(&sess.ID, &sess.Name, &sess.FrameCount, &durationMs, &sess.CreatedAt)
		if err != nil {
			return nil, err
		}

		sess.Duration = time.Duration(durationMs) * time.Millisecond
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Frames retrieves a session's frames in recording order.
func (r *SessionRepository) Frames(sessionID string) ([]Frame, error) {
	if _, err := r.Get(sessionID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT offset_ms, hands FROM session_frames
		 WHERE session_id = ? ORDER BY frame_index`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var offsetMs int64
		var data string
		if err := rows.Scan(&offsetMs, &data); err != nil {
			return nil, err
		}

		var hands []landmark.Hand
		if err := json.Unmarshal([]byte(data), &hands); err != nil {
			return nil, fmt.Errorf("%w: session %s: %v", ErrCorruptSession, sessionID, err)
		}

		frames = append(frames, Frame{
			Offset: time.Duration(offsetMs) * time.Millisecond,
			Hands:  hands,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Delete removes a session and, through the foreign key cascade, its frames.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
