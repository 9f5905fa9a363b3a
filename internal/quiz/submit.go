// internal/quiz/submit.go
package quiz

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"quiz-api/internal/models"
	"quiz-api/internal/scoring"
)

// Submit scores an answer bundle and stores the Result with all its answers in one
// transaction. Any missing question or invalid selection rolls everything back.
func (s *Service) Submit(ctx context.Context, quizID uint, user *models.User, sub *models.Submission) (*models.Result, error) {
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	if sub == nil {
		sub = &models.Submission{}
	}

	res := &models.Result{QuizID: quizID, UserID: user.ID, CreatedAt: s.now().UTC()}
	err := s.repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.QuizExists(tx, quizID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("quiz %d: %w", quizID, models.ErrNotFound)
		}
		if err := scoreSubmission(tx, res, sub); err != nil {
			return err
		}
		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("store result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("user %s scored %d/%d on quiz %d (result %d)", user.Username, res.Score, res.MaxScore, quizID, res.ID)
	s.afterSubmit(ctx, user, res)
	return res, nil
}

func (s *Service) afterSubmit(ctx context.Context, user *models.User, res *models.Result) {
	if s.leaderboard != nil {
		if err := s.leaderboard.RecordScore(ctx, res.QuizID, user.Username, res.Score); err != nil {
			log.Printf("leaderboard record quiz %d: %v", res.QuizID, err)
		}
	}
	if s.notifier != nil {
		s.notifier.Publish(res.QuizID, EventResultSubmitted, models.ResultEvent{
			Type:     EventResultSubmitted,
			QuizID:   res.QuizID,
			ResultID: res.ID,
			Username: user.Username,
			Score:    res.Score,
			MaxScore: res.MaxScore,
		})
	}
}

func answerRow(questionID uint, out scoring.Outcome) models.Answer {
	return models.Answer{QuestionID: questionID, Score: out.Score, MaxScore: out.MaxScore}
}

func add(res *models.Result, out scoring.Outcome) {
	res.Score += out.Score
	res.MaxScore += out.MaxScore
}

func scoreSubmission(tx *gorm.DB, res *models.Result, sub *models.Submission) error {
	quizID := res.QuizID

	for _, a := range sub.SingleChoiceAnswers {
		q, err := loadQuestion[models.SingleChoiceQuestion](tx, quizID, a.QuestionID, "single choice question", "Options")
		if err != nil {
			return err
		}
		out, err := scoring.SingleChoice(q, a.SelectedIndex)
		if err != nil {
			return err
		}
		res.SingleChoiceAnswers = append(res.SingleChoiceAnswers, models.SingleChoiceAnswer{
			Answer:        answerRow(q.ID, out),
			SelectedIndex: a.SelectedIndex,
		})
		add(res, out)
	}

	for _, a := range sub.MultipleChoiceAnswers {
		q, err := loadQuestion[models.MultipleChoiceQuestion](tx, quizID, a.QuestionID, "multiple choice question", "Options")
		if err != nil {
			return err
		}
		out, err := scoring.MultipleChoice(q, a.SelectedIndices)
		if err != nil {
			return err
		}
		res.MultipleChoiceAnswers = append(res.MultipleChoiceAnswers, models.MultipleChoiceAnswer{
			Answer:          answerRow(q.ID, out),
			SelectedIndices: nonNil(a.SelectedIndices),
		})
		add(res, out)
	}

	for _, a := range sub.OpenAnswers {
		q, err := loadQuestion[models.OpenQuestion](tx, quizID, a.QuestionID, "open question", "Options")
		if err != nil {
			return err
		}
		out, err := scoring.Open(q, a.Text)
		if err != nil {
			return err
		}
		res.OpenAnswers = append(res.OpenAnswers, models.OpenAnswer{
			Answer: answerRow(q.ID, out),
			Text:   a.Text,
		})
		add(res, out)
	}

	for _, a := range sub.AssignmentAnswers {
		q, err := loadQuestion[models.AssignmentQuestion](tx, quizID, a.QuestionID, "assignment question", "Options")
		if err != nil {
			return err
		}
		out, err := scoring.Assignment(q, a.SelectedIndices)
		if err != nil {
			return err
		}
		res.AssignmentAnswers = append(res.AssignmentAnswers, models.AssignmentAnswer{
			Answer:          answerRow(q.ID, out),
			SelectedIndices: nonNil(a.SelectedIndices),
		})
		add(res, out)
	}

	for _, a := range sub.GapTextAnswers {
		q, err := loadQuestion[models.GapTextQuestion](tx, quizID, a.QuestionID, "gap text question", "SubQuestions", "SubQuestions.Options")
		if err != nil {
			return err
		}
		out, err := scoring.GapText(q, a.SelectedIndices)
		if err != nil {
			return err
		}
		res.GapTextAnswers = append(res.GapTextAnswers, models.GapTextAnswer{
			Answer:          answerRow(q.ID, out),
			SelectedIndices: nonNil(a.SelectedIndices),
		})
		add(res, out)
	}
	return nil
}

// nonNil keeps the NOT NULL JSON columns from receiving SQL NULL.
func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
