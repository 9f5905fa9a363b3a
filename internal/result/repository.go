// internal/result/repository.go
package result

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"quiz-api/internal/models"
)

var answerTables = []interface{}{
	&models.SingleChoiceAnswer{},
	&models.MultipleChoiceAnswer{},
	&models.OpenAnswer{},
	&models.AssignmentAnswer{},
	&models.GapTextAnswer{},
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithAnswers preloads every answer collection of a result query.
func WithAnswers(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("SingleChoiceAnswers").
		Preload("MultipleChoiceAnswers").
		Preload("OpenAnswers").
		Preload("AssignmentAnswers").
		Preload("GapTextAnswers")
}

// List filters by quiz and user; a zero id disables that filter.
func (r *Repository) List(ctx context.Context, quizID, userID uint) ([]models.Result, error) {
	q := WithAnswers(r.db.WithContext(ctx)).Order("id")
	if quizID != 0 {
		q = q.Where("quiz_id = ?", quizID)
	}
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var results []models.Result
	if err := q.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

func (r *Repository) Get(ctx context.Context, id uint) (*models.Result, error) {
	var res models.Result
	err := WithAnswers(r.db.WithContext(ctx)).First(&res, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("result %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return DeleteResults(tx, []uint{id})
	})
}

// DeleteResults removes the given results and their answers.
func DeleteResults(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	for _, table := range answerTables {
		if err := tx.Where("result_id IN ?", ids).Delete(table).Error; err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Result{}).Error; err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return nil
}

// DeleteByQuiz removes every result of a quiz inside tx.
func DeleteByQuiz(tx *gorm.DB, quizID uint) error {
	return deleteWhere(tx, "quiz_id", quizID)
}

// DeleteByUser removes every result of a user inside tx.
func DeleteByUser(tx *gorm.DB, userID uint) error {
	return deleteWhere(tx, "user_id", userID)
}

func deleteWhere(tx *gorm.DB, column string, value uint) error {
	var ids []uint
	if err := tx.Model(&models.Result{}).Where(column+" = ?", value).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("select results by %s: %w", column, err)
	}
	return DeleteResults(tx, ids)
}

// BestScores computes the leaderboard from stored results, highest first.
func (r *Repository) BestScores(ctx context.Context, quizID uint, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	q := r.db.WithContext(ctx).
		Table("result").
		Select("\"user\".username AS username, MAX(result.score) AS score").
		Joins("JOIN \"user\" ON \"user\".id = result.user_id").
		Where("result.quiz_id = ?", quizID).
		Group("\"user\".username").
		Order("score DESC, username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("best scores for quiz %d: %w", quizID, err)
	}
	return entries, nil
}

// BestScore returns a user's best score on a quiz; ok is false when no result remains.
func (r *Repository) BestScore(ctx context.Context, quizID, userID uint) (score int, ok bool, err error) {
	var row struct {
		Score *int
	}
	err = r.db.WithContext(ctx).Model(&models.Result{}).
		Select("MAX(score) AS score").
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Scan(&row).Error
	if err != nil || row.Score == nil {
		return 0, false, err
	}
	return *row.Score, true, nil
}

// QuizIDsForUser lists the quizzes a user has results for.
func (r *Repository) QuizIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Result{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("quiz_id", &ids).Error
	return ids, err
}

func (r *Repository) Username(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("username").First(&user, userID).Error; err != nil {
		return "", err
	}
	return user.Username, nil
}
