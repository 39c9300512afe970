package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adruby-studio/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// fsStore keeps each creative as one JSON file under basePath/userID/.
type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) userPath(userID string) string {
	return filepath.Join(s.basePath, userID)
}

// creativePath resolves the file for one creative and rejects ids that
// would escape the user's directory.
func (s *fsStore) creativePath(userID, id string) (string, error) {
	userPath, err := filepath.Abs(s.userPath(userID))
	if err != nil {
		return "", err
	}
	filePath, err := filepath.Abs(filepath.Join(userPath, id))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(filePath, userPath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid creative id: access denied")
	}
	return filePath, nil
}

func (s *fsStore) readCreative(userID, id string) (*core.Creative, error) {
	filePath, err := s.creativePath(userID, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	var creative core.Creative
	if err := json.Unmarshal(data, &creative); err != nil {
		return nil, fmt.Errorf("decode creative %s: %w", id, err)
	}
	creative.UserID = userID
	return &creative, nil
}

func (s *fsStore) LoadSnapshot(ctx context.Context, userID, id string) (*core.Document, error) {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "creative_id": id})

	creative, err := s.readCreative(userID, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read creative for snapshot load")
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(creative.Snapshot, &doc); err != nil {
		log.WithError(err).Error("Failed to decode document snapshot")
		return nil, fmt.Errorf("decode snapshot for creative %s: %w", id, err)
	}
	log.Debug("Snapshot loaded")
	return &doc, nil
}

func (s *fsStore) SaveCreative(ctx context.Context, creative *core.Creative) (string, error) {
	if creative.UserID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	if creative.ID == "" {
		creative.ID = ulid.Make().String()
	}

	filePath, err := s.creativePath(creative.UserID, creative.ID)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{
		"user_id":     creative.UserID,
		"creative_id": creative.ID,
		"path":        filePath,
	})

	if err := os.MkdirAll(s.userPath(creative.UserID), 0755); err != nil {
		log.WithError(err).Error("Failed to create user directory")
		return "", err
	}

	now := time.Now()
	if existing, err := s.readCreative(creative.UserID, creative.ID); err == nil {
		creative.CreatedAt = existing.CreatedAt
	} else {
		creative.CreatedAt = now
	}
	creative.UpdatedAt = now

	data, err := json.Marshal(creative)
	if err != nil {
		log.WithError(err).Error("Failed to marshal creative for saving")
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write creative file")
		return "", err
	}

	log.Info("Creative saved")
	return creative.ID, nil
}

func (s *fsStore) List(ctx context.Context, userID string) ([]*core.Creative, error) {
	userPath := s.userPath(userID)
	log := logrus.WithField("user_id", userID).WithField("path", userPath)

	files, err := os.ReadDir(userPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("User directory does not exist, returning empty list")
			return []*core.Creative{}, nil
		}
		log.WithError(err).Error("Failed to read user directory")
		return nil, err
	}

	creatives := make([]*core.Creative, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		creative, err := s.readCreative(userID, file.Name())
		if err != nil {
			log.WithError(err).Warnf("Failed to read creative file %s, skipping", file.Name())
			continue
		}
		// List views stay light.
		creative.Snapshot = nil
		creatives = append(creatives, creative)
	}

	log.Infof("Listed %d creatives", len(creatives))
	return creatives, nil
}

func (s *fsStore) Get(ctx context.Context, userID, id string) (*core.Creative, error) {
	creative, err := s.readCreative(userID, id)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "creative_id": id}).
			WithError(err).Warn("Failed to get creative")
		return nil, err
	}
	return creative, nil
}

func (s *fsStore) Delete(ctx context.Context, userID, id string) error {
	filePath, err := s.creativePath(userID, id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "creative_id": id, "path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Creative file not found for deletion, considered successful")
			return nil
		}
		log.WithError(err).Error("Failed to delete creative file")
		return err
	}

	log.Info("Creative deleted")
	return nil
}
