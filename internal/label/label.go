// Package label manages the tags attached to quizzes.
package label

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"quiz-api/internal/models"
)

type Input struct {
	Text    string `json:"text" validate:"required"`
	QuizIDs []uint `json:"quiz_ids"`
}

type Service struct {
	db *gorm.DB
	// changed runs after each write so cached quizzes pick up new labels.
	changed func(ctx context.Context)
}

func NewService(db *gorm.DB, changed func(ctx context.Context)) *Service {
	if changed == nil {
		changed = func(context.Context) {}
	}
	return &Service{db: db, changed: changed}
}

func (s *Service) List(ctx context.Context) ([]models.Label, error) {
	var labels []models.Label
	if err := s.db.WithContext(ctx).Preload("Quizzes").Order("id").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	for i := range labels {
		labels[i].SyncQuizIDs()
	}
	return labels, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Label, error) {
	return get(s.db.WithContext(ctx), id)
}

func get(tx *gorm.DB, id uint) (*models.Label, error) {
	var label models.Label
	err := tx.Preload("Quizzes").First(&label, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("label %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	label.SyncQuizIDs()
	return &label, nil
}

// quizzes resolves ids to rows; an unknown id is ErrNotFound.
func quizzes(tx *gorm.DB, ids []uint) ([]models.Quiz, error) {
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	found := make([]models.Quiz, 0, len(unique))
	if len(unique) == 0 {
		return found, nil
	}
	if err := tx.Select("id").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) != len(unique) {
		return nil, fmt.Errorf("one of quizzes %v: %w", ids, models.ErrNotFound)
	}
	return found, nil
}

func (s *Service) textTaken(tx *gorm.DB, text string, except uint) error {
	var count int64
	if err := tx.Model(&models.Label{}).Where("text = ? AND id <> ?", text, except).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("label %q already exists: %w", text, models.ErrConflict)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("label text must be unique: %w", models.ErrConflict)
	}
	return err
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Label, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.textTaken(tx, in.Text, 0); err != nil {
			return err
		}
		qs, err := quizzes(tx, in.QuizIDs)
		if err != nil {
			return err
		}
		label := models.Label{Text: in.Text, Quizzes: qs}
		if err := tx.Omit("Quizzes.*").Create(&label).Error; err != nil {
			return translate(err)
		}
		id = label.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("label %d created", id)
	s.changed(ctx)
	return s.Get(ctx, id)
}

// Update replaces the text and the full set of quizzes.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Label, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		label, err := get(tx, id)
		if err != nil {
			return err
		}
		if err := s.textTaken(tx, in.Text, id); err != nil {
			return err
		}
		qs, err := quizzes(tx, in.QuizIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(label).Update("text", in.Text).Error; err != nil {
			return translate(err)
		}
		return tx.Model(label).Omit("Quizzes.*").Association("Quizzes").Replace(qs)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		label, err := get(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(label).Association("Quizzes").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Label{}, id).Error
	})
	if err != nil {
		return err
	}
	log.Printf("label %d deleted", id)
	s.changed(ctx)
	return nil
}
