// Package user implements the admin user management endpoints.
package user

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"quiz-api/internal/auth"
	"quiz-api/internal/models"
	"quiz-api/internal/result"
)

// Leaderboard is the part of the score cache keyed by username.
type Leaderboard interface {
	SetScore(ctx context.Context, quizID uint, username string, score int) error
	RemoveUserScores(ctx context.Context, username string, quizIDs []uint) error
}

type Service struct {
	db      *gorm.DB
	results *result.Repository
	scores  Leaderboard
}

// NewService accepts a nil Leaderboard when Redis is not configured.
func NewService(db *gorm.DB, results *result.Repository, scores Leaderboard) *Service {
	return &Service{db: db, results: results, scores: scores}
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func translate(err error, username string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("username %q is taken: %w", username, models.ErrConflict)
	}
	return err
}

func (s *Service) usernameTaken(ctx context.Context, username string, except uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, except).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("username %q is taken: %w", username, models.ErrConflict)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in models.UserInput) (*models.User, error) {
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", models.ErrValidation)
	}
	if err := s.usernameTaken(ctx, in.Username, 0); err != nil {
		return nil, err
	}
	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: in.Username, HashedPassword: hashed, IsAdmin: in.IsAdmin}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, translate(err, in.Username)
	}
	log.Printf("user %s created (admin=%v)", u.Username, u.IsAdmin)
	return u, nil
}

// Update changes username and role; the password only when one is given.
// Changing is_admin invalidates the user's outstanding tokens. A rename moves
// the user's leaderboard entries to the new name.
func (s *Service) Update(ctx context.Context, id uint, in models.UserInput) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.usernameTaken(ctx, in.Username, id); err != nil {
		return nil, err
	}
	oldName := u.Username
	u.Username = in.Username
	u.IsAdmin = in.IsAdmin
	if in.Password != "" {
		if u.HashedPassword, err = auth.HashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, translate(err, in.Username)
	}
	if oldName != u.Username {
		s.renameScores(ctx, u.ID, oldName, u.Username)
	}
	return u, nil
}

// renameScores rewrites the leaderboard members of a renamed user from their stored results.
func (s *Service) renameScores(ctx context.Context, userID uint, oldName, newName string) {
	if s.scores == nil {
		return
	}
	quizIDs, err := s.results.QuizIDsForUser(ctx, userID)
	if err != nil {
		log.Printf("leaderboard rename %s -> %s: %v", oldName, newName, err)
		return
	}
	if len(quizIDs) == 0 {
		return
	}
	if err := s.scores.RemoveUserScores(ctx, oldName, quizIDs); err != nil {
		log.Printf("leaderboard rename %s -> %s: %v", oldName, newName, err)
		return
	}
	for _, quizID := range quizIDs {
		best, ok, err := s.results.BestScore(ctx, quizID, userID)
		if err == nil && ok {
			err = s.scores.SetScore(ctx, quizID, newName, best)
		}
		if err != nil {
			log.Printf("leaderboard rename %s -> %s on quiz %d: %v", oldName, newName, quizID, err)
		}
	}
}

// Delete removes the user with their results and answers.
func (s *Service) Delete(ctx context.Context, id uint) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	quizIDs, err := s.results.QuizIDsForUser(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := result.DeleteByUser(tx, id); err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return err
	}
	log.Printf("user %s deleted with results for %d quizzes", u.Username, len(quizIDs))
	if s.scores != nil && len(quizIDs) > 0 {
		if err := s.scores.RemoveUserScores(ctx, u.Username, quizIDs); err != nil {
			log.Printf("leaderboard cleanup for %s: %v", u.Username, err)
		}
	}
	return nil
}
