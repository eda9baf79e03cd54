package store

import (
	"database/sql"
	"errors"
	"time"
)

// SessionCounters are the running totals kept per session.
type SessionCounters struct {
	Frames        int64 `json:"frames"`
	DroppedFrames int64 `json:"dropped_frames"`
	Commands      int64 `json:"commands"`
	Clicks        int64 `json:"clicks"`
	Drags         int64 `json:"drags"`
	Scrolls       int64 `json:"scrolls"`
}

// Session represents one pipeline run, from start to shutdown.
type Session struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	SessionCounters
}

// SessionRepository provides operations for usage sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session row with the start timestamp.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		s.ID, s.StartedAt,
	)
	return err
}

// UpdateCounters writes the current totals for a running session.
func (r *SessionRepository) UpdateCounters(id string, c SessionCounters) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, dropped_frames = ?, commands = ?,
		 clicks = ?, drags = ?, scrolls = ? WHERE id = ?`,
		c.Frames, c.DroppedFrames, c.Commands, c.Clicks, c.Drags, c.Scrolls, id,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Finish stamps the end of a session and writes the final totals.
func (r *SessionRepository) Finish(id string, c SessionCounters) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, dropped_frames = ?,
		 commands = ?, clicks = ?, drags = ?, scrolls = ? WHERE id = ?`,
		time.Now(), c.Frames, c.DroppedFrames, c.Commands, c.Clicks, c.Drags, c.Scrolls, id,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, started_at, ended_at, frames, dropped_frames, commands, clicks, drags, scrolls
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.StartedAt, &ended, &s.Frames, &s.DroppedFrames,
		&s.Commands, &s.Clicks, &s.Drags, &s.Scrolls)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if ended.Valid {
		s.EndedAt = &ended.Time
	}
	return s, nil
}

// ListRecent retrieves the most recently started sessions, newest first.
func (r *SessionRepository) ListRecent(limit int) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, frames, dropped_frames, commands, clicks, drags, scrolls
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var ended sql.NullTime

		err := rows.Scan(&s.ID, &s.StartedAt, &ended, &s.Frames, &s.DroppedFrames,
			&s.Commands, &s.Clicks, &s.Drags, &s.Scrolls)
		if err != nil {
			return nil, err
		}

		if ended.Valid {
			s.EndedAt = &ended.Time
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and, through the cascade, its pointer events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
