package repositories

import (
	"context"

	"stase/internal/models"
	"stase/internal/repositories/cache"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserCache is the slice of the cache service the user decorator needs.
type UserCache interface {
	GetUser(ctx context.Context, key string) (*models.User, bool, error)
	CacheUser(ctx context.Context, user *models.User) error
	InvalidateUser(ctx context.Context, user *models.User) error
}

type cachedUserRepository struct {
	UserRepository
	cache UserCache
	log   *logrus.Logger
}

// NewCachedUserRepository caches id and external-id lookups in front of
// inner. Cache failures are logged and fall through to inner.
func NewCachedUserRepository(inner UserRepository, c UserCache, log *logrus.Logger) UserRepository {
	return &cachedUserRepository{UserRepository: inner, cache: c, log: log}
}

func (r *cachedUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.lookup(ctx, cache.UserIDKey(id), func() (*models.User, error) {
		return r.UserRepository.GetByID(ctx, id)
	})
}

func (r *cachedUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.lookup(ctx, cache.UserExternalKey(externalID), func() (*models.User, error) {
		return r.UserRepository.GetByExternalID(ctx, externalID)
	})
}

func (r *cachedUserRepository) lookup(ctx context.Context, key string, load func() (*models.User, error)) (*models.User, error) {
	user, found, err := r.cache.GetUser(ctx, key)
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("user cache read failed")
	}
	if found {
		return user, nil
	}

	user, err = load()
	if err != nil {
		return nil, err
	}
	if err := r.cache.CacheUser(ctx, user); err != nil {
		r.log.WithError(err).WithField("user_id", user.ID).Warn("user cache write failed")
	}
	return user, nil
}

func (r *cachedUserRepository) UpdateTransactionPin(ctx context.Context, id uuid.UUID, hash string) error {
	user, err := r.UserRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.UserRepository.UpdateTransactionPin(ctx, id, hash); err != nil {
		return err
	}
	if err := r.cache.InvalidateUser(ctx, user); err != nil {
		r.log.WithError(err).WithField("user_id", id).Warn("user cache invalidation failed")
	}
	return nil
}
