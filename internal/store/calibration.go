package store

import (
	"database/sql"
	"errors"
	"time"
)

// Calibration is a persisted baseline and noise snapshot for a profile.
// Sessions start from the latest one so a returning user can skip the
// sampling phase when their setup has not changed.
type Calibration struct {
	ID            int64
	ProfileID     string
	LeftEAR       float64
	RightEAR      float64
	Yaw           float64
	NoiseLeftEAR  float64
	NoiseRightEAR float64
	NoiseDiff     float64
	NoiseYaw      float64
	CreatedAt     time.Time
}

// CalibrationRepository stores calibration snapshots.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Save inserts a calibration snapshot and fills in its ID.
func (r *CalibrationRepository) Save(c *Calibration) error {
	c.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO calibrations (profile_id, left_ear, right_ear, yaw, noise_left_ear, noise_right_ear, noise_diff, noise_yaw, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ProfileID, c.LeftEAR, c.RightEAR, c.Yaw, c.NoiseLeftEAR, c.NoiseRightEAR, c.NoiseDiff, c.NoiseYaw, c.CreatedAt,
	)
	if err != nil {
		return err
	}

	c.ID, err = result.LastInsertId()
	return err
}

// Latest returns the most recent calibration for a profile.
func (r *CalibrationRepository) Latest(profileID string) (*Calibration, error) {
	c := &Calibration{}

	err := r.db.QueryRow(
		`SELECT id, profile_id, left_ear, right_ear, yaw, noise_left_ear, noise_right_ear, noise_diff, noise_yaw, created_at
		 FROM calibrations WHERE profile_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		profileID,
	).Scan(&c.ID, &c.ProfileID, &c.LeftEAR, &c.RightEAR, &c.Yaw,
		&c.NoiseLeftEAR, &c.NoiseRightEAR, &c.NoiseDiff, &c.NoiseYaw, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return c, nil
}

// DeleteForProfile removes all calibrations belonging to a profile.
func (r *CalibrationRepository) DeleteForProfile(profileID string) error {
	_, err := r.db.Exec(`DELETE FROM calibrations WHERE profile_id = ?`, profileID)
	return err
}
