// Package crud implements list/get/create/update/delete for the question,
// option and sub-question tables, which differ only in type and parent.
package crud

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quiz-api/internal/models"
)

// ByIndex orders rows by the "index" column, which must be quoted on every dialect.
var ByIndex = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "index"}},
	{Column: clause.Column{Name: "id"}},
}}

// Parent names the row an entity hangs off.
type Parent struct {
	Model interface{}
	ID    uint
}

type Options[T any] struct {
	// Name is used in error messages, e.g. "single choice question".
	Name string
	// Indexed orders List by the "index" column instead of id.
	Indexed bool
	// Preloads are association paths loaded with every read, each ordered by index.
	Preloads []string
	// Filter maps a query parameter to a column for List, e.g. quiz_id.
	Filter string
	// Parent returns the row that must exist before a create or update.
	Parent func(v *T) Parent
	// BeforeDelete runs inside the delete transaction.
	BeforeDelete func(tx *gorm.DB, id uint) error
}

type Store[T any] struct {
	db   *gorm.DB
	opts Options[T]
}

func NewStore[T any](db *gorm.DB, opts Options[T]) *Store[T] {
	return &Store[T]{db: db, opts: opts}
}

func (s *Store[T]) Name() string { return s.opts.Name }

func (s *Store[T]) Filter() string { return s.opts.Filter }

func (s *Store[T]) query(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	for _, p := range s.opts.Preloads {
		q = q.Preload(p, func(db *gorm.DB) *gorm.DB { return db.Clauses(ByIndex) })
	}
	return q
}

// List returns every row ordered by index. filter == 0 disables the Filter column.
func (s *Store[T]) List(ctx context.Context, filter uint) ([]T, error) {
	var out []T
	q := s.query(ctx)
	if s.opts.Indexed {
		q = q.Clauses(ByIndex)
	} else {
		q = q.Order("id")
	}
	if filter != 0 && s.opts.Filter != "" {
		q = q.Where(clause.Eq{Column: clause.Column{Name: s.opts.Filter}, Value: filter})
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", s.opts.Name, err)
	}
	return out, nil
}

func (s *Store[T]) Get(ctx context.Context, id uint) (*T, error) {
	var v T
	err := s.query(ctx).First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %d: %w", s.opts.Name, id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", s.opts.Name, id, err)
	}
	return &v, nil
}

func (s *Store[T]) checkParent(tx *gorm.DB, v *T) error {
	if s.opts.Parent == nil {
		return nil
	}
	p := s.opts.Parent(v)
	var count int64
	if err := tx.Model(p.Model).Where("id = ?", p.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("parent %d of %s: %w", p.ID, s.opts.Name, models.ErrNotFound)
	}
	return nil
}

func prepare[T any](v *T, id uint) {
	if n, ok := any(v).(interface{ Normalize() }); ok {
		n.Normalize()
	}
	if setter, ok := any(v).(interface{ SetID(uint) }); ok {
		setter.SetID(id)
	}
}

// Create inserts v without its nested collections.
func (s *Store[T]) Create(ctx context.Context, v *T) error {
	prepare(v, 0)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkParent(tx, v); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(v).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.opts.Name, err)
		}
		return nil
	})
}

// Update replaces the scalar columns of row id with v.
func (s *Store[T]) Update(ctx context.Context, id uint, v *T) error {
	prepare(v, id)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		err := tx.First(&existing, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %d: %w", s.opts.Name, id, models.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := s.checkParent(tx, v); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(v).Error; err != nil {
			return fmt.Errorf("update %s %d: %w", s.opts.Name, id, err)
		}
		return nil
	})
}

func (s *Store[T]) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		err := tx.First(&existing, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %d: %w", s.opts.Name, id, models.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if s.opts.BeforeDelete != nil {
			if err := s.opts.BeforeDelete(tx, id); err != nil {
				return err
			}
		}
		return tx.Delete(&existing).Error
	})
}
