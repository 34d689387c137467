package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stase/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func UserIDKey(id uuid.UUID) string {
	return fmt.Sprintf("user:id:%s", id)
}

func UserExternalKey(externalID string) string {
	return fmt.Sprintf("user:external:%s", externalID)
}

// userRecord is the cached form of a user. It keeps the PIN hash that
// the API representation hides.
type userRecord struct {
	ID             uuid.UUID `json:"id"`
	ExternalID     string    `json:"externalId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	TransactionPin string    `json:"transactionPin"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// User caching
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	rec := userRecord{
		ID:             user.ID,
		ExternalID:     user.ExternalID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Username:       user.Username,
		Email:          user.Email,
		TransactionPin: user.TransactionPin,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
	for _, key := range []string{UserIDKey(user.ID), UserExternalKey(user.ExternalID)} {
		if err := s.Set(ctx, key, rec); err != nil {
			return err
		}
	}
	return nil
}

// GetUser returns the cached user under key; found is false on a miss.
func (s *CacheService) GetUser(ctx context.Context, key string) (*models.User, bool, error) {
	var rec userRecord
	found, err := s.Get(ctx, key, &rec)
	if err != nil || !found {
		return nil, false, err
	}
	return &models.User{
		ID:             rec.ID,
		ExternalID:     rec.ExternalID,
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		Username:       rec.Username,
		Email:          rec.Email,
		TransactionPin: rec.TransactionPin,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}, true, nil
}

// InvalidateUser drops every key the user is cached under.
func (s *CacheService) InvalidateUser(ctx context.Context, user *models.User) error {
	return s.Delete(ctx, UserIDKey(user.ID), UserExternalKey(user.ExternalID))
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
