package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/handwheel/internal/detector"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Recording is a captured run of detector frames on a fixed canvas.
type Recording struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Mirror    bool      `json:"mirror"`
	Frames    int       `json:"frames"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Frame is one recorded detector result and the sample measured from it.
type Frame struct {
	Sequence     int                      `json:"sequence"`
	Elapsed      time.Duration            `json:"elapsed"`
	Hands        []detector.HandLandmarks `json:"hands"`
	Tracked      bool                     `json:"tracked"`
	Mirror       bool                     `json:"mirror"`
	Radius       float64                  `json:"radius"`
	AngleDegrees float64                  `json:"angle_degrees"`
}

// RecordingRepository provides CRUD operations for recordings and their frames.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a new recording, assigning an ID if it has none.
func (r *RecordingRepository) Create(rec *Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO recordings (id, name, width, height, mirror, frames, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Width, rec.Height, rec.Mirror, rec.Frames, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	var mirror int

	err := r.db.QueryRow(
		`SELECT id, name, width, height, mirror, frames, created_at, updated_at
		 FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Name, &rec.Width, &rec.Height, &mirror, &rec.Frames, &rec.CreatedAt, &rec.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.Mirror = mirror != 0
	return rec, nil
}

// List retrieves all recordings, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, name, width, height, mirror, frames, created_at, updated_at
		 FROM recordings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec := &Recording{}
		var mirror int
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Width, &rec.Height, &mirror, &rec.Frames, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Mirror = mirror != 0
		recordings = append(recordings, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recordings, nil
}

// Delete removes a recording and its frames.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
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

// AppendFrames stores frames for a recording in a single transaction and
// updates its frame count.
func (r *RecordingRepository) AppendFrames(recordingID string, frames []Frame) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM recordings WHERE id = ?`, recordingID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	stmt, err := tx.Prepare(
		`INSERT INTO recording_frames (recording_id, sequence, elapsed_ms, hands, tracked, mirror, radius, angle_degrees)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		hands := f.Hands
		if hands == nil {
			hands = []detector.HandLandmarks{}
		}
		data, err := json.Marshal(hands)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", f.Sequence, err)
		}
		if _, err := stmt.Exec(recordingID, f.Sequence, f.Elapsed.Milliseconds(), string(data), f.Tracked, f.Mirror, f.Radius, f.AngleDegrees); err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		`UPDATE recordings
		 SET frames = (SELECT COUNT(*) FROM recording_frames WHERE recording_id = ?), updated_at = ?
		 WHERE id = ?`,
		recordingID, time.Now(), recordingID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Frames retrieves all frames of a recording in sequence order.
func (r *RecordingRepository) Frames(recordingID string) ([]Frame, error) {
	rows, err := r.db.Query(
		`SELECT sequence, elapsed_ms, hands, tracked, mirror, radius, angle_degrees
		 FROM recording_frames
		 WHERE recording_id = ?
		 ORDER BY sequence`,
		recordingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var (
			f         Frame
			elapsedMS int64
			hands     string
			tracked   int
			mirror    int
		)
		if err := rows.Scan(&f.Sequence, &elapsedMS, &hands, &tracked, &mirror, &f.Radius, &f.AngleDegrees); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hands), &f.Hands); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", f.Sequence, err)
		}
		f.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		f.Tracked = tracked != 0
		f.Mirror = mirror != 0
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}
