// internal/quiz/service.go
package quiz

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-api/internal/auth"
	"quiz-api/internal/models"
	"quiz-api/internal/result"
	"quiz-api/pkg/cache"
)

const EventResultSubmitted = "result_submitted"

// Cache stores fully loaded quizzes. GetQuiz returns cache.ErrMiss when absent.
type Cache interface {
	GetQuiz(ctx context.Context, id uint) (*models.Quiz, error)
	SetQuiz(ctx context.Context, quiz *models.Quiz) error
	InvalidateQuizzes(ctx context.Context) error
}

type Leaderboard interface {
	RecordScore(ctx context.Context, quizID uint, username string, score int) error
	Leaderboard(ctx context.Context, quizID uint, limit int) ([]models.LeaderboardEntry, error)
	RemoveLeaderboard(ctx context.Context, quizID uint) error
}

// Notifier pushes events to the clients watching a quiz.
type Notifier interface {
	Publish(quizID uint, messageType string, data interface{})
}

// QuizInput is the create/update payload for a quiz.
type QuizInput struct {
	Title      string `json:"title" validate:"required"`
	IsPractice bool   `json:"is_practice"`
}

type Service struct {
	repo        *Repository
	results     *result.Repository
	cache       Cache
	leaderboard Leaderboard
	notifier    Notifier
	sf          singleflight.Group
	now         func() time.Time
}

// NewService accepts nil cache, leaderboard and notifier; the matching features are then skipped
// or served from the database.
func NewService(repo *Repository, results *result.Repository, cache Cache, leaderboard Leaderboard, notifier Notifier) *Service {
	return &Service{
		repo:        repo,
		results:     results,
		cache:       cache,
		leaderboard: leaderboard,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *Service) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	return s.repo.ListQuizzes(ctx)
}

// GetQuiz serves from the cache and collapses concurrent loads of the same quiz.
func (s *Service) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	if s.cache == nil {
		return s.repo.GetQuizByID(ctx, id)
	}
	quiz, err := s.cache.GetQuiz(ctx, id)
	if err == nil {
		return quiz, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Printf("quiz cache read %d: %v", id, err)
	}

	v, err, _ := s.sf.Do(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		quiz, err := s.repo.GetQuizByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetQuiz(ctx, quiz); err != nil {
			log.Printf("quiz cache write %d: %v", id, err)
		}
		return quiz, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Quiz), nil
}

func (s *Service) CreateQuiz(ctx context.Context, caller *models.User, in QuizInput) (*models.Quiz, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	quiz := &models.Quiz{Title: in.Title, IsPractice: in.IsPractice}
	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	log.Printf("quiz %d created by %s", quiz.ID, caller.Username)
	s.Invalidate(ctx)
	return s.repo.GetQuizByID(ctx, quiz.ID)
}

func (s *Service) UpdateQuiz(ctx context.Context, caller *models.User, id uint, in QuizInput) (*models.Quiz, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuiz(ctx, id, in.Title, in.IsPractice); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return s.repo.GetQuizByID(ctx, id)
}

func (s *Service) DeleteQuiz(ctx context.Context, caller *models.User, id uint) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	if err := s.repo.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	log.Printf("quiz %d deleted by %s", id, caller.Username)
	s.Invalidate(ctx)
	if s.leaderboard != nil {
		if err := s.leaderboard.RemoveLeaderboard(ctx, id); err != nil {
			log.Printf("remove leaderboard %d: %v", id, err)
		}
	}
	return nil
}

// Invalidate drops cached quizzes after any content change. Errors are logged only.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateQuizzes(ctx); err != nil {
		log.Printf("quiz cache invalidate: %v", err)
	}
}

// Leaderboard returns the best score per username. The database is used when Redis
// is unavailable or holds nothing for the quiz.
func (s *Service) Leaderboard(ctx context.Context, quizID uint, limit int) ([]models.LeaderboardEntry, error) {
	exists, err := s.repo.QuizExists(s.repo.db.WithContext(ctx), quizID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrNotFound
	}
	if s.leaderboard != nil {
		entries, err := s.leaderboard.Leaderboard(ctx, quizID, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			log.Printf("leaderboard %d from redis: %v", quizID, err)
		}
	}
	return s.results.BestScores(ctx, quizID, limit)
}

// Results lists the caller's results for a quiz.
func (s *Service) Results(ctx context.Context, caller *models.User, quizID uint) ([]models.Result, error) {
	if caller == nil {
		return nil, models.ErrUnauthorized
	}
	return s.results.List(ctx, quizID, caller.ID)
}
