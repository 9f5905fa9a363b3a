// internal/quiz/repository.go
package quiz

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quiz-api/internal/crud"
	"quiz-api/internal/models"
	"quiz-api/internal/result"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func byIndex(db *gorm.DB) *gorm.DB {
	return db.Clauses(crud.ByIndex)
}

// withContent preloads every question variant with its options, ordered by index, plus labels.
func withContent(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("SingleChoiceQuestions", byIndex).
		Preload("SingleChoiceQuestions.Options", byIndex).
		Preload("MultipleChoiceQuestions", byIndex).
		Preload("MultipleChoiceQuestions.Options", byIndex).
		Preload("OpenQuestions", byIndex).
		Preload("OpenQuestions.Options", byIndex).
		Preload("AssignmentQuestions", byIndex).
		Preload("AssignmentQuestions.Options", byIndex).
		Preload("GapTextQuestions", byIndex).
		Preload("GapTextQuestions.SubQuestions", byIndex).
		Preload("GapTextQuestions.SubQuestions.Options", byIndex).
		Preload("Labels").
		Preload("Labels.Quizzes")
}

func syncLabels(q *models.Quiz) {
	for i := range q.Labels {
		q.Labels[i].SyncQuizIDs()
	}
}

func (r *Repository) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := withContent(r.db.WithContext(ctx)).Order("id").Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	for i := range quizzes {
		syncLabels(&quizzes[i])
	}
	return quizzes, nil
}

func (r *Repository) GetQuizByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := withContent(r.db.WithContext(ctx)).First(&quiz, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("quiz %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	syncLabels(&quiz)
	return &quiz, nil
}

func (r *Repository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(quiz).Error
}

// UpdateQuiz changes the scalar columns only.
func (r *Repository) UpdateQuiz(ctx context.Context, id uint, title string, isPractice bool) error {
	res := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "is_practice": isPractice})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("quiz %d: %w", id, models.ErrNotFound)
		}
	}
	return nil
}

// DeleteQuiz removes the quiz with its questions, options, results and answers.
// Labels attached only to this quiz are deleted, the others just lose the association.
func (r *Repository) DeleteQuiz(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz models.Quiz
		err := tx.Preload("Labels").Preload("Labels.Quizzes").First(&quiz, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("quiz %d: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if err := result.DeleteByQuiz(tx, id); err != nil {
			return err
		}
		if err := deleteQuestions(tx, id); err != nil {
			return err
		}

		var orphans []uint
		for _, label := range quiz.Labels {
			if len(label.Quizzes) == 1 {
				orphans = append(orphans, label.ID)
			}
		}
		if err := tx.Model(&quiz).Association("Labels").Clear(); err != nil {
			return fmt.Errorf("detach labels: %w", err)
		}
		if len(orphans) > 0 {
			if err := tx.Delete(&models.Label{}, orphans).Error; err != nil {
				return fmt.Errorf("delete orphan labels: %w", err)
			}
		}
		return tx.Delete(&quiz).Error
	})
}

func deleteQuestions(tx *gorm.DB, quizID uint) error {
	type variant struct {
		question interface{}
		option   interface{}
	}
	for _, v := range []variant{
		{&models.SingleChoiceQuestion{}, &models.SingleChoiceOption{}},
		{&models.MultipleChoiceQuestion{}, &models.MultipleChoiceOption{}},
		{&models.OpenQuestion{}, &models.OpenOption{}},
		{&models.AssignmentQuestion{}, &models.AssignmentOption{}},
	} {
		ids := tx.Model(v.question).Select("id").Where("quiz_id = ?", quizID)
		if err := tx.Where("question_id IN (?)", ids).Delete(v.option).Error; err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(v.question).Error; err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
	}

	gapIDs := tx.Model(&models.GapTextQuestion{}).Select("id").Where("quiz_id = ?", quizID)
	subIDs := tx.Model(&models.GapTextSubQuestion{}).Select("id").Where("question_id IN (?)", gapIDs)
	if err := tx.Where("sub_question_id IN (?)", subIDs).Delete(&models.GapTextOption{}).Error; err != nil {
		return fmt.Errorf("delete gap text options: %w", err)
	}
	if err := tx.Where("question_id IN (?)", gapIDs).Delete(&models.GapTextSubQuestion{}).Error; err != nil {
		return fmt.Errorf("delete gap text sub-questions: %w", err)
	}
	if err := tx.Where("quiz_id = ?", quizID).Delete(&models.GapTextQuestion{}).Error; err != nil {
		return fmt.Errorf("delete gap text questions: %w", err)
	}
	return nil
}

func (r *Repository) QuizExists(tx *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.Quiz{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// loadQuestion fetches a question of type T that belongs to quizID with the given preloads.
func loadQuestion[T any](tx *gorm.DB, quizID, questionID uint, name string, preloads ...string) (*T, error) {
	var q T
	for _, p := range preloads {
		tx = tx.Preload(p, byIndex)
	}
	err := tx.Where("quiz_id = ?", quizID).First(&q, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %d in quiz %d: question not found: %w", name, questionID, quizID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}
