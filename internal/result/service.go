// internal/result/service.go
package result

import (
	"context"
	"fmt"
	"log"

	"quiz-api/internal/auth"
	"quiz-api/internal/models"
)

// Leaderboard is the subset of the score cache touched when results disappear.
type Leaderboard interface {
	SetScore(ctx context.Context, quizID uint, username string, score int) error
	RemoveUserScores(ctx context.Context, username string, quizIDs []uint) error
}

type Service struct {
	repo        *Repository
	leaderboard Leaderboard
}

// NewService accepts a nil leaderboard when Redis is not configured.
func NewService(repo *Repository, leaderboard Leaderboard) *Service {
	return &Service{repo: repo, leaderboard: leaderboard}
}

// List returns results visible to caller. Regular users only see their own.
func (s *Service) List(ctx context.Context, caller *models.User, quizID, userID uint) ([]models.Result, error) {
	if caller == nil {
		return nil, models.ErrUnauthorized
	}
	if !caller.IsAdmin {
		if userID != 0 && userID != caller.ID {
			return nil, fmt.Errorf("results of user %d: %w", userID, models.ErrForbidden)
		}
		userID = caller.ID
	}
	return s.repo.List(ctx, quizID, userID)
}

func (s *Service) Get(ctx context.Context, caller *models.User, id uint) (*models.Result, error) {
	if caller == nil {
		return nil, models.ErrUnauthorized
	}
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && res.UserID != caller.ID {
		return nil, fmt.Errorf("result %d: %w", id, models.ErrForbidden)
	}
	return res, nil
}

// Delete removes a result with its answers and recomputes the owner's leaderboard entry.
func (s *Service) Delete(ctx context.Context, caller *models.User, id uint) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshLeaderboard(ctx, res.QuizID, res.UserID)
	return nil
}

func (s *Service) refreshLeaderboard(ctx context.Context, quizID, userID uint) {
	if s.leaderboard == nil {
		return
	}
	username, err := s.repo.Username(ctx, userID)
	if err != nil {
		log.Printf("leaderboard refresh: user %d: %v", userID, err)
		return
	}
	best, ok, err := s.repo.BestScore(ctx, quizID, userID)
	switch {
	case err != nil:
	case ok:
		err = s.leaderboard.SetScore(ctx, quizID, username, best)
	default:
		err = s.leaderboard.RemoveUserScores(ctx, username, []uint{quizID})
	}
	if err != nil {
		log.Printf("leaderboard refresh: quiz %d user %d: %v", quizID, userID, err)
	}
}
