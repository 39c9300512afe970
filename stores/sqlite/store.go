package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"adruby-studio/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	stmt := `
	CREATE TABLE IF NOT EXISTS creatives (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT,
		headline TEXT,
		description TEXT,
		call_to_action TEXT,
		thumbnail TEXT,
		mood TEXT,
		blueprint_id TEXT,
		score REAL,
		snapshot BLOB,
		created_at DATETIME,
		updated_at DATETIME,
		PRIMARY KEY (user_id, id)
	);`
	if _, err = db.Exec(stmt); err != nil {
		log.Fatalf("failed to create creatives table: %v", err)
	}

	return &sqliteStore{db}
}

func (s *sqliteStore) LoadSnapshot(ctx context.Context, userID, id string) (*core.Document, error) {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "creative_id": id})

	var snapshot []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM creatives WHERE user_id = ? AND id = ?", userID, id).Scan(&snapshot)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn("Creative not found for snapshot load")
			return nil, core.ErrNotFound
		}
		log.WithError(err).Error("Failed to retrieve snapshot")
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		log.WithError(err).Error("Failed to decode document snapshot")
		return nil, fmt.Errorf("decode snapshot for creative %s: %w", id, err)
	}
	log.Debug("Snapshot loaded")
	return &doc, nil
}

func (s *sqliteStore) SaveCreative(ctx context.Context, creative *core.Creative) (string, error) {
	if creative.UserID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	if creative.ID == "" {
		creative.ID = ulid.Make().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM creatives WHERE user_id = ? AND id = ?",
		creative.UserID, creative.ID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	var score sql.NullFloat64
	if creative.Score != nil {
		score = sql.NullFloat64{Float64: *creative.Score, Valid: true}
	}

	now := time.Now()
	if exists {
		creative.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `
			UPDATE creatives
			SET name = ?, headline = ?, description = ?, call_to_action = ?, thumbnail = ?,
			    mood = ?, blueprint_id = ?, score = ?, snapshot = ?, updated_at = ?
			WHERE user_id = ? AND id = ?`,
			creative.Name, creative.Headline, creative.Description, creative.CallToAction,
			creative.Thumbnail, creative.Mood, creative.BlueprintID, score,
			[]byte(creative.Snapshot), now, creative.UserID, creative.ID)
	} else {
		creative.CreatedAt = now
		creative.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `
			INSERT INTO creatives
				(id, user_id, name, headline, description, call_to_action, thumbnail,
				 mood, blueprint_id, score, snapshot, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			creative.ID, creative.UserID, creative.Name, creative.Headline,
			creative.Description, creative.CallToAction, creative.Thumbnail,
			creative.Mood, creative.BlueprintID, score, []byte(creative.Snapshot), now, now)
	}
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     creative.UserID,
		"creative_id": creative.ID,
	}).Info("Creative saved")
	return creative.ID, nil
}

func (s *sqliteStore) List(ctx context.Context, userID string) ([]*core.Creative, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, headline, description, call_to_action, thumbnail,
		       mood, blueprint_id, score, created_at, updated_at
		FROM creatives WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creatives := []*core.Creative{}
	for rows.Next() {
		creative, err := scanCreative(rows, userID)
		if err != nil {
			return nil, err
		}
		creatives = append(creatives, creative)
	}
	return creatives, rows.Err()
}

func scanCreative(rows *sql.Rows, userID string) (*core.Creative, error) {
	var creative core.Creative
	var score sql.NullFloat64
	creative.UserID = userID
	if err := rows.Scan(&creative.ID, &creative.Name, &creative.Headline,
		&creative.Description, &creative.CallToAction, &creative.Thumbnail,
		&creative.Mood, &creative.BlueprintID, &score,
		&creative.CreatedAt, &creative.UpdatedAt); err != nil {
		return nil, err
	}
	if score.Valid {
		creative.Score = &score.Float64
	}
	return &creative, nil
}

func (s *sqliteStore) Get(ctx context.Context, userID, id string) (*core.Creative, error) {
	creative := core.Creative{ID: id, UserID: userID}
	var score sql.NullFloat64
	var snapshot []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT name, headline, description, call_to_action, thumbnail,
		       mood, blueprint_id, score, snapshot, created_at, updated_at
		FROM creatives WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&creative.Name, &creative.Headline, &creative.Description,
			&creative.CallToAction, &creative.Thumbnail, &creative.Mood,
			&creative.BlueprintID, &score, &snapshot,
			&creative.CreatedAt, &creative.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	if score.Valid {
		creative.Score = &score.Float64
	}
	creative.Snapshot = snapshot
	return &creative, nil
}

func (s *sqliteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM creatives WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}
