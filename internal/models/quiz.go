// internal/models/quiz.go
package models

import (
	"fmt"

	"gorm.io/datatypes"
)

// Difficulty determines how many points a question is worth.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Weight maps a difficulty to its point value.
func (d Difficulty) Weight() (int, error) {
	switch d {
	case DifficultyEasy:
		return 1, nil
	case DifficultyMedium:
		return 2, nil
	case DifficultyHard:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, string(d))
}

type Quiz struct {
	ID                      uint                     `json:"id" gorm:"primaryKey"`
	Title                   string                   `json:"title" gorm:"not null" validate:"required"`
	IsPractice              bool                     `json:"is_practice" gorm:"not null;default:false"`
	SingleChoiceQuestions   []SingleChoiceQuestion   `json:"single_choice_questions" gorm:"foreignKey:QuizID"`
	MultipleChoiceQuestions []MultipleChoiceQuestion `json:"multiple_choice_questions" gorm:"foreignKey:QuizID"`
	OpenQuestions           []OpenQuestion           `json:"open_questions" gorm:"foreignKey:QuizID"`
	AssignmentQuestions     []AssignmentQuestion     `json:"assignment_questions" gorm:"foreignKey:QuizID"`
	GapTextQuestions        []GapTextQuestion        `json:"gap_text_questions" gorm:"foreignKey:QuizID"`
	Labels                  []Label                  `json:"labels" gorm:"many2many:quiz_label_relation"`
}

func (Quiz) TableName() string { return "quiz" }

func (q *Quiz) SetID(id uint) { q.ID = id }

// Label tags quizzes. QuizIDs mirrors the Quizzes association for the API.
type Label struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Text    string `json:"text" gorm:"not null;uniqueIndex" validate:"required"`
	QuizIDs []uint `json:"quiz_ids" gorm:"-"`
	Quizzes []Quiz `json:"-" gorm:"many2many:quiz_label_relation"`
}

func (Label) TableName() string { return "label" }

// SyncQuizIDs fills QuizIDs from a preloaded Quizzes association.
func (l *Label) SyncQuizIDs() {
	l.QuizIDs = make([]uint, 0, len(l.Quizzes))
	for _, q := range l.Quizzes {
		l.QuizIDs = append(l.QuizIDs, q.ID)
	}
}

// Question holds the columns shared by every question variant.
type Question struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	QuizID     uint       `json:"quiz_id" gorm:"not null;index" validate:"required"`
	Title      string     `json:"title" gorm:"not null" validate:"required"`
	Text       string     `json:"text"`
	Index      int        `json:"index" gorm:"column:index;not null;default:0"`
	Difficulty Difficulty `json:"difficulty" gorm:"not null;default:easy" validate:"omitempty,oneof=easy medium hard"`
}

func (q *Question) SetID(id uint) { q.ID = id }

// Normalize applies defaults before the row is written.
func (q *Question) Normalize() {
	if q.Difficulty == "" {
		q.Difficulty = DifficultyEasy
	}
}

type SingleChoiceQuestion struct {
	Question
	CorrectIndex int                  `json:"correct_index" gorm:"not null"`
	Options      []SingleChoiceOption `json:"single_choice_options" gorm:"foreignKey:QuestionID"`
}

func (SingleChoiceQuestion) TableName() string { return "single_choice_question" }

type MultipleChoiceQuestion struct {
	Question
	CorrectIndices datatypes.JSONSlice[int] `json:"correct_indices" gorm:"not null"`
	Options        []MultipleChoiceOption   `json:"multiple_choice_options" gorm:"foreignKey:QuestionID"`
}

func (MultipleChoiceQuestion) TableName() string { return "multiple_choice_question" }

// OpenQuestion options are the keywords a free-text answer must contain.
type OpenQuestion struct {
	Question
	Options []OpenOption `json:"open_options" gorm:"foreignKey:QuestionID"`
}

func (OpenQuestion) TableName() string { return "open_question" }

type AssignmentQuestion struct {
	Question
	CorrectIndices datatypes.JSONSlice[int] `json:"correct_indices" gorm:"not null"`
	Options        []AssignmentOption       `json:"assignment_options" gorm:"foreignKey:QuestionID"`
}

func (AssignmentQuestion) TableName() string { return "assignment_question" }

// GapTextQuestion has one sub-question per gap; CorrectIndices holds the expected option index per gap.
type GapTextQuestion struct {
	Question
	CorrectIndices datatypes.JSONSlice[int] `json:"correct_indices" gorm:"not null"`
	SubQuestions   []GapTextSubQuestion     `json:"gap_text_sub_questions" gorm:"foreignKey:QuestionID"`
}

func (GapTextQuestion) TableName() string { return "gap_text_question" }

type GapTextSubQuestion struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	QuestionID uint            `json:"question_id" gorm:"not null;index" validate:"required"`
	Index      int             `json:"index" gorm:"column:index;not null;default:0"`
	Options    []GapTextOption `json:"gap_text_options" gorm:"foreignKey:SubQuestionID"`
}

func (GapTextSubQuestion) TableName() string { return "gap_text_sub_question" }

func (s *GapTextSubQuestion) SetID(id uint) { s.ID = id }

// Option holds the columns shared by options that hang off a question.
type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index" validate:"required"`
	Text       string `json:"text" gorm:"not null"`
	Index      int    `json:"index" gorm:"column:index;not null;default:0"`
}

func (o *Option) SetID(id uint) { o.ID = id }

type SingleChoiceOption struct{ Option }

func (SingleChoiceOption) TableName() string { return "single_choice_option" }

type MultipleChoiceOption struct{ Option }

func (MultipleChoiceOption) TableName() string { return "multiple_choice_option" }

type OpenOption struct{ Option }

func (OpenOption) TableName() string { return "open_option" }

type AssignmentOption struct {
	Option
	CorrectIndex int `json:"correct_index" gorm:"not null"`
}

func (AssignmentOption) TableName() string { return "assignment_option" }

type GapTextOption struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	SubQuestionID uint   `json:"sub_question_id" gorm:"not null;index" validate:"required"`
	Text          string `json:"text" gorm:"not null"`
	Index         int    `json:"index" gorm:"column:index;not null;default:0"`
}

func (GapTextOption) TableName() string { return "gap_text_option" }

func (o *GapTextOption) SetID(id uint) { o.ID = id }
