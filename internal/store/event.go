package store

import (
	"database/sql"
	"time"
)

// PointerEvent is one audited pointer command. Movement commands are not
// audited; only presses, releases and scroll steps land here.
type PointerEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Button    string    `json:"button,omitempty"`
	Delta     int       `json:"delta,omitempty"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository provides operations for the pointer-event audit log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Add inserts a single pointer event.
func (r *EventRepository) Add(e *PointerEvent) error {
	e.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO pointer_events (session_id, kind, button, delta, x, y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.Button, e.Delta, e.X, e.Y, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	return err
}

// AddBatch inserts multiple pointer events in a single transaction.
func (r *EventRepository) AddBatch(events []*PointerEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO pointer_events (session_id, kind, button, delta, x, y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range events {
		e.CreatedAt = now
		if _, err := stmt.Exec(e.SessionID, e.Kind, e.Button, e.Delta, e.X, e.Y, e.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession retrieves all events for a session in insertion order.
func (r *EventRepository) ListBySession(sessionID string) ([]*PointerEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, kind, button, delta, x, y, created_at
		 FROM pointer_events
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*PointerEvent
	for rows.Next() {
		e := &PointerEvent{}
		err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Button, &e.Delta, &e.X, &e.Y, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// PurgeBefore deletes events created before the cutoff, returning how
// many rows were removed.
func (r *EventRepository) PurgeBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM pointer_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
