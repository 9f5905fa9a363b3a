// internal/models/result.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Result is a scored submission. It is never updated after the submission transaction commits.
type Result struct {
	ID                    uint                   `json:"id" gorm:"primaryKey"`
	QuizID                uint                   `json:"quiz_id" gorm:"not null;index"`
	UserID                uint                   `json:"user_id" gorm:"not null;index"`
	Score                 int                    `json:"score" gorm:"not null;default:0"`
	MaxScore              int                    `json:"max_score" gorm:"not null;default:0"`
	CreatedAt             time.Time              `json:"created_at" gorm:"not null"`
	SingleChoiceAnswers   []SingleChoiceAnswer   `json:"single_choice_answers" gorm:"foreignKey:ResultID"`
	MultipleChoiceAnswers []MultipleChoiceAnswer `json:"multiple_choice_answers" gorm:"foreignKey:ResultID"`
	OpenAnswers           []OpenAnswer           `json:"open_answers" gorm:"foreignKey:ResultID"`
	AssignmentAnswers     []AssignmentAnswer     `json:"assignment_answers" gorm:"foreignKey:ResultID"`
	GapTextAnswers        []GapTextAnswer        `json:"gap_text_answers" gorm:"foreignKey:ResultID"`
}

func (Result) TableName() string { return "result" }

// Answer holds the columns shared by every answer variant.
type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ResultID   uint `json:"result_id" gorm:"not null;index"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`
	Score      int  `json:"score" gorm:"not null;default:0"`
	MaxScore   int  `json:"max_score" gorm:"not null;default:0"`
}

type SingleChoiceAnswer struct {
	Answer
	SelectedIndex int `json:"selected_index" gorm:"not null"`
}

func (SingleChoiceAnswer) TableName() string { return "single_choice_answer" }

type MultipleChoiceAnswer struct {
	Answer
	SelectedIndices datatypes.JSONSlice[int] `json:"selected_indices" gorm:"not null"`
}

func (MultipleChoiceAnswer) TableName() string { return "multiple_choice_answer" }

type OpenAnswer struct {
	Answer
	Text string `json:"text" gorm:"not null"`
}

func (OpenAnswer) TableName() string { return "open_answer" }

type AssignmentAnswer struct {
	Answer
	SelectedIndices datatypes.JSONSlice[int] `json:"selected_indices" gorm:"not null"`
}

func (AssignmentAnswer) TableName() string { return "assignment_answer" }

// GapTextAnswer.QuestionID references a GapTextQuestion; SelectedIndices has one entry per gap.
type GapTextAnswer struct {
	Answer
	SelectedIndices datatypes.JSONSlice[int] `json:"selected_indices" gorm:"not null"`
}

func (GapTextAnswer) TableName() string { return "gap_text_answer" }

// Submission is the answer bundle posted to /api/quiz/{id}/submit.
type Submission struct {
	SingleChoiceAnswers   []SingleChoiceAnswerInput   `json:"single_choice_answers" validate:"dive"`
	MultipleChoiceAnswers []MultipleChoiceAnswerInput `json:"multiple_choice_answers" validate:"dive"`
	OpenAnswers           []OpenAnswerInput           `json:"open_answers" validate:"dive"`
	AssignmentAnswers     []AssignmentAnswerInput     `json:"assignment_answers" validate:"dive"`
	GapTextAnswers        []GapTextAnswerInput        `json:"gap_text_answers" validate:"dive"`
}

type SingleChoiceAnswerInput struct {
	QuestionID    uint `json:"question_id" validate:"required"`
	SelectedIndex int  `json:"selected_index"`
}

type MultipleChoiceAnswerInput struct {
	QuestionID      uint  `json:"question_id" validate:"required"`
	SelectedIndices []int `json:"selected_indices"`
}

type OpenAnswerInput struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Text       string `json:"text"`
}

type AssignmentAnswerInput struct {
	QuestionID      uint  `json:"question_id" validate:"required"`
	SelectedIndices []int `json:"selected_indices"`
}

type GapTextAnswerInput struct {
	QuestionID      uint  `json:"question_id" validate:"required"`
	SelectedIndices []int `json:"selected_indices"`
}

// LeaderboardEntry is one row of a quiz leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// ResultEvent is broadcast to the quiz room after a submission commits.
type ResultEvent struct {
	Type     string `json:"type"`
	QuizID   uint   `json:"quiz_id"`
	ResultID uint   `json:"result_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
}
