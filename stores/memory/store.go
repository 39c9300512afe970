package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"adruby-studio/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore keeps creatives per user, keyed by creative id.
type memStore struct {
	mu        sync.RWMutex
	creatives map[string]map[string]*core.Creative
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{creatives: make(map[string]map[string]*core.Creative)}
}

func (s *memStore) LoadSnapshot(ctx context.Context, userID, id string) (*core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "creative_id": id})
	creative, ok := s.creatives[userID][id]
	if !ok {
		log.Warn("Creative not found for snapshot load")
		return nil, core.ErrNotFound
	}

	var doc core.Document
	if err := json.Unmarshal(creative.Snapshot, &doc); err != nil {
		log.WithError(err).Error("Failed to decode document snapshot")
		return nil, fmt.Errorf("decode snapshot for creative %s: %w", id, err)
	}
	log.Debug("Snapshot loaded")
	return &doc, nil
}

func (s *memStore) SaveCreative(ctx context.Context, creative *core.Creative) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if creative.UserID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	if creative.ID == "" {
		creative.ID = ulid.Make().String()
	}

	userCreatives, ok := s.creatives[creative.UserID]
	if !ok {
		userCreatives = make(map[string]*core.Creative)
		s.creatives[creative.UserID] = userCreatives
	}

	now := time.Now()
	if existing, exists := userCreatives[creative.ID]; exists {
		creative.CreatedAt = existing.CreatedAt
	} else {
		creative.CreatedAt = now
	}
	creative.UpdatedAt = now

	stored := *creative
	userCreatives[creative.ID] = &stored

	logrus.WithFields(logrus.Fields{
		"user_id":     creative.UserID,
		"creative_id": creative.ID,
		"data_length": len(creative.Snapshot),
	}).Info("Creative saved")
	return creative.ID, nil
}

func (s *memStore) List(ctx context.Context, userID string) ([]*core.Creative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userCreatives, ok := s.creatives[userID]
	if !ok {
		return []*core.Creative{}, nil
	}

	creatives := make([]*core.Creative, 0, len(userCreatives))
	for _, creative := range userCreatives {
		// List views stay light: copy everything but the snapshot blob.
		listCreative := *creative
		listCreative.Snapshot = nil
		creatives = append(creatives, &listCreative)
	}

	logrus.WithField("user_id", userID).Infof("Listed %d creatives", len(creatives))
	return creatives, nil
}

func (s *memStore) Get(ctx context.Context, userID, id string) (*core.Creative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creative, ok := s.creatives[userID][id]
	if !ok {
		logrus.WithFields(logrus.Fields{"user_id": userID, "creative_id": id}).Warn("Creative not found")
		return nil, core.ErrNotFound
	}
	result := *creative
	return &result, nil
}

func (s *memStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userCreatives, ok := s.creatives[userID]
	if !ok {
		return core.ErrNotFound
	}
	if _, ok := userCreatives[id]; !ok {
		return core.ErrNotFound
	}
	delete(userCreatives, id)
	logrus.WithFields(logrus.Fields{"user_id": userID, "creative_id": id}).Info("Creative deleted")
	return nil
}
