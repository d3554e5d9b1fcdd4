package store

import (
	"database/sql"
	"time"
)

// TriggerEntry records one fired page-turn trigger.
type TriggerEntry struct {
	ID        int64
	ProfileID string
	Gesture   string
	Direction string
	FiredAt   time.Time
}

// TriggerLogRepository stores the trigger history.
type TriggerLogRepository struct {
	db *sql.DB
}

// TriggerLog returns the trigger log repository for this store.
func (s *Store) TriggerLog() *TriggerLogRepository {
	return &TriggerLogRepository{db: s.db}
}

// Insert records a fired trigger and fills in its ID.
func (r *TriggerLogRepository) Insert(e *TriggerEntry) error {
	if e.FiredAt.IsZero() {
		e.FiredAt = time.Now()
	}

	var profileID interface{}
	if e.ProfileID != "" {
		profileID = e.ProfileID
	}

	result, err := r.db.Exec(
		`INSERT INTO trigger_log (profile_id, gesture, direction, fired_at)
		 VALUES (?, ?, ?, ?)`,
		profileID, e.Gesture, e.Direction, e.FiredAt,
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	return err
}

// Recent returns the newest entries, most recent first.
func (r *TriggerLogRepository) Recent(limit int) ([]*TriggerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, profile_id, gesture, direction, fired_at
		 FROM trigger_log ORDER BY fired_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*TriggerEntry
	for rows.Next() {
		e := &TriggerEntry{}
		var profileID sql.NullString

		if err := rows.Scan(&e.ID, &profileID, &e.Gesture, &e.Direction, &e.FiredAt); err != nil {
			return nil, err
		}
		e.ProfileID = profileID.String
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// PruneBefore deletes entries fired before the cutoff and returns how many
// rows were removed.
func (r *TriggerLogRepository) PruneBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trigger_log WHERE fired_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
