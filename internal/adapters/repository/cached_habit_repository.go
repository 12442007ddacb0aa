package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

var (
	_ domain.HabitRepository = (*CachedHabitRepository)(nil)
	_ domain.HabitCache      = (*CachedHabitRepository)(nil)
)

const (
	cacheTTL       = 30 * time.Minute
	publicCacheKey = "habits:public"
)

// CachedHabitRepository serves list reads from redis. Every page of an
// owner's list is a field of one hash, so dropping the hash drops them all.
type CachedHabitRepository struct {
	next  domain.HabitRepository
	cache *redis.Client
	log   zerolog.Logger
}

func NewCachedHabitRepository(next domain.HabitRepository, cache *redis.Client, log zerolog.Logger) *CachedHabitRepository {
	return &CachedHabitRepository{
		next:  next,
		cache: cache,
		log:   log.With().Str("component", "habit_cache").Logger(),
	}
}

func (r *CachedHabitRepository) cacheKey(userID string) string {
	return fmt.Sprintf("habits:%s", userID)
}

func pageField(page domain.Page) string {
	return fmt.Sprintf("%d:%d", page.Number, page.Size)
}

type cachedPage struct {
	Habits []*domain.Habit `json:"habits"`
	Total  int             `json:"total"`
}

func (r *CachedHabitRepository) InvalidateUser(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate user lists")
	}
}

func (r *CachedHabitRepository) InvalidatePublic(ctx context.Context) {
	if err := r.cache.Del(ctx, publicCacheKey).Err(); err != nil {
		r.log.Warn().Err(err).Msg("failed to invalidate public list")
	}
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string, page domain.Page) ([]*domain.Habit, int, error) {
	key := r.cacheKey(userID)
	field := pageField(page)

	val, err := r.cache.HGet(ctx, key, field).Result()
	if err == nil {
		var cached cachedPage
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached.Habits, cached.Total, nil
		}

		r.log.Warn().Str("user_id", userID).Msg("corrupted cache entry, cleaning up key")
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn().Err(err).Msg("redis read error")
	}

	habits, total, err := r.next.ListByUserID(ctx, userID, page)
	if err != nil {
		return nil, 0, err
	}

	if data, err := json.Marshal(cachedPage{Habits: habits, Total: total}); err == nil {
		pipe := r.cache.TxPipeline()
		pipe.HSet(ctx, key, field, data)
		pipe.Expire(ctx, key, cacheTTL)
		if _, setErr := pipe.Exec(ctx); setErr != nil {
			r.log.Warn().Err(setErr).Msg("redis set error")
		}
	}

	return habits, total, nil
}

func (r *CachedHabitRepository) ListPublic(ctx context.Context) ([]*domain.Habit, error) {
	val, err := r.cache.Get(ctx, publicCacheKey).Result()
	if err == nil {
		var habits []*domain.Habit
		if err := json.Unmarshal([]byte(val), &habits); err == nil {
			return habits, nil
		}
		r.cache.Del(ctx, publicCacheKey)
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn().Err(err).Msg("redis read error")
	}

	habits, err := r.next.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(habits); err == nil {
		if setErr := r.cache.Set(ctx, publicCacheKey, data, cacheTTL).Err(); setErr != nil {
			r.log.Warn().Err(setErr).Msg("redis set error")
		}
	}
	return habits, nil
}

func (r *CachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedHabitRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetByIDForUpdate(ctx, id)
}

func (r *CachedHabitRepository) IsPleasant(ctx context.Context, id, userID string) (bool, error) {
	return r.next.IsPleasant(ctx, id, userID)
}

func (r *CachedHabitRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	return r.next.IsReferenced(ctx, id)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) UpdateSchedule(ctx context.Context, id string, schedule string) error {
	habit, err := r.next.GetByID(ctx, id)
	if err == nil && habit != nil {
		defer r.invalidate(ctx, habit.UserID)
	}

	return r.next.UpdateSchedule(ctx, id, schedule)
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	habit, err := r.next.GetByID(ctx, id)
	if err == nil && habit != nil {
		defer r.invalidate(ctx, habit.UserID)
	}

	return r.next.Delete(ctx, id)
}

func (r *CachedHabitRepository) invalidate(ctx context.Context, userID string) {
	r.InvalidateUser(ctx, userID)
	r.InvalidatePublic(ctx)
}
