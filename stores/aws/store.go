package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"adruby-studio/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
)

// s3Store keeps each creative as one JSON object under userID/creativeID.
type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

// creativeKey builds the object key and rejects ids that look like paths.
func (s *s3Store) creativeKey(userID, id string) (string, error) {
	if id == "" || id == "." || id == ".." || path.Base(id) != id {
		return "", fmt.Errorf("invalid creative id: must be a plain name")
	}
	return path.Join(userID, id), nil
}

func (s *s3Store) getCreative(ctx context.Context, userID, id string) (*core.Creative, error) {
	key, err := s.creativeKey(userID, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get creative %s: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read creative data: %w", err)
	}

	var creative core.Creative
	if err := json.Unmarshal(data, &creative); err != nil {
		return nil, fmt.Errorf("failed to unmarshal creative %s: %w", id, err)
	}
	creative.UserID = userID
	return &creative, nil
}

func (s *s3Store) LoadSnapshot(ctx context.Context, userID, id string) (*core.Document, error) {
	creative, err := s.getCreative(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(creative.Snapshot, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot for creative %s: %w", id, err)
	}
	return &doc, nil
}

func (s *s3Store) SaveCreative(ctx context.Context, creative *core.Creative) (string, error) {
	if creative.UserID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	if creative.ID == "" {
		creative.ID = ulid.Make().String()
	}

	key, err := s.creativeKey(creative.UserID, creative.ID)
	if err != nil {
		return "", err
	}

	// Preserve CreatedAt on update.
	if creative.CreatedAt.IsZero() {
		if existing, err := s.getCreative(ctx, creative.UserID, creative.ID); err == nil {
			creative.CreatedAt = existing.CreatedAt
		} else {
			creative.CreatedAt = time.Now()
		}
	}
	creative.UpdatedAt = time.Now()

	data, err := json.Marshal(creative)
	if err != nil {
		return "", fmt.Errorf("failed to marshal creative: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save creative %s: %w", creative.ID, err)
	}
	return creative.ID, nil
}

func (s *s3Store) List(ctx context.Context, userID string) ([]*core.Creative, error) {
	prefix := userID + "/"
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list creatives for user %s: %w", userID, err)
	}

	creatives := make([]*core.Creative, 0, len(output.Contents))
	for _, object := range output.Contents {
		resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    object.Key,
		})
		if err != nil {
			log.Printf("warn: failed to get object %s: %v", *object.Key, err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Printf("warn: failed to read object body %s: %v", *object.Key, err)
			continue
		}

		var creative core.Creative
		if err := json.Unmarshal(data, &creative); err != nil {
			log.Printf("warn: failed to unmarshal creative %s: %v", *object.Key, err)
			continue
		}

		// List views stay light.
		creative.Snapshot = nil
		creative.UserID = userID
		creatives = append(creatives, &creative)
	}

	return creatives, nil
}

func (s *s3Store) Get(ctx context.Context, userID, id string) (*core.Creative, error) {
	return s.getCreative(ctx, userID, id)
}

func (s *s3Store) Delete(ctx context.Context, userID, id string) error {
	key, err := s.creativeKey(userID, id)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete creative %s: %w", id, err)
	}
	return nil
}
