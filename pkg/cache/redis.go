// pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"quiz-api/internal/models"
)

const generationKey = "quiz:generation"

// ErrMiss is returned by GetQuiz when the quiz is not cached.
var ErrMiss = errors.New("cache miss")

// RedisCache stores serialized quizzes and per-quiz leaderboards.
// Quiz keys embed a generation number; bumping it invalidates every cached quiz at once.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
	rnd    *rand.Rand
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewClient builds a go-redis client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func quizKey(gen int64, id uint) string {
	return fmt.Sprintf("quiz:v%d:%d", gen, id)
}

func leaderboardKey(quizID uint) string {
	return fmt.Sprintf("leaderboard:%d", quizID)
}

func (c *RedisCache) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.client.Get(ctx, quizKey(gen, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *RedisCache) SetQuiz(ctx context.Context, quiz *models.Quiz) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(gen, quiz.ID), data, c.ttlWithJitter()).Err()
}

// InvalidateQuizzes drops every cached quiz. Old generations expire through their TTL.
func (c *RedisCache) InvalidateQuizzes(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

// RecordScore keeps the best score per username for a quiz.
func (c *RedisCache) RecordScore(ctx context.Context, quizID uint, username string, score int) error {
	return c.client.ZAddArgs(ctx, leaderboardKey(quizID), redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(score), Member: username}},
	}).Err()
}

// SetScore overwrites the score, used when a result is deleted and the best score is recomputed.
func (c *RedisCache) SetScore(ctx context.Context, quizID uint, username string, score int) error {
	return c.client.ZAdd(ctx, leaderboardKey(quizID), &redis.Z{Score: float64(score), Member: username}).Err()
}

// Leaderboard returns the top entries by score, highest first. limit <= 0 returns all.
func (c *RedisCache) Leaderboard(ctx context.Context, quizID uint, limit int) ([]models.LeaderboardEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	results, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey(quizID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = models.LeaderboardEntry{
			Username: z.Member.(string),
			Score:    int(z.Score),
		}
	}
	return entries, nil
}

// RemoveLeaderboard deletes the leaderboard of a deleted quiz.
func (c *RedisCache) RemoveLeaderboard(ctx context.Context, quizID uint) error {
	return c.client.Del(ctx, leaderboardKey(quizID)).Err()
}

// RemoveUserScores drops a username from the given leaderboards.
func (c *RedisCache) RemoveUserScores(ctx context.Context, username string, quizIDs []uint) error {
	pipe := c.client.Pipeline()
	for _, id := range quizIDs {
		pipe.ZRem(ctx, leaderboardKey(id), username)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitter := time.Duration(c.rnd.Int63n(int64(c.ttl/10 + 1)))
	return c.ttl + jitter
}
