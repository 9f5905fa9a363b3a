// internal/quiz/questions.go
package quiz

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"quiz-api/internal/crud"
	"quiz-api/internal/models"
)

func quizParent(q *models.Question) crud.Parent {
	return crud.Parent{Model: &models.Quiz{}, ID: q.QuizID}
}

// guardAnswered refuses to delete a question that submitted answers still point at,
// then removes its options.
func guardAnswered(name string, answer, option interface{}) func(tx *gorm.DB, id uint) error {
	return func(tx *gorm.DB, id uint) error {
		var count int64
		if err := tx.Model(answer).Where("question_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%s %d has %d answers: %w", name, id, count, models.ErrConflict)
		}
		if option == nil {
			return nil
		}
		return tx.Where("question_id = ?", id).Delete(option).Error
	}
}

func deleteGapTextSubQuestions(tx *gorm.DB, questionID uint) error {
	subIDs := tx.Model(&models.GapTextSubQuestion{}).Select("id").Where("question_id = ?", questionID)
	if err := tx.Where("sub_question_id IN (?)", subIDs).Delete(&models.GapTextOption{}).Error; err != nil {
		return err
	}
	return tx.Where("question_id = ?", questionID).Delete(&models.GapTextSubQuestion{}).Error
}

// RegisterContent mounts CRUD routes for every question, option and sub-question table
// plus admin-only reads of stored answers. changed runs after each write.
func RegisterContent(router *mux.Router, db *gorm.DB, changed func(ctx context.Context)) {
	options := []string{"Options"}

	crud.NewHandler(crud.NewStore(db, crud.Options[models.SingleChoiceQuestion]{
		Name:         "single choice question",
		Indexed:      true,
		Preloads:     options,
		Filter:       "quiz_id",
		Parent:       func(v *models.SingleChoiceQuestion) crud.Parent { return quizParent(&v.Question) },
		BeforeDelete: guardAnswered("single choice question", &models.SingleChoiceAnswer{}, &models.SingleChoiceOption{}),
	}), changed).Register(router, "/single_choice_question")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.MultipleChoiceQuestion]{
		Name:         "multiple choice question",
		Indexed:      true,
		Preloads:     options,
		Filter:       "quiz_id",
		Parent:       func(v *models.MultipleChoiceQuestion) crud.Parent { return quizParent(&v.Question) },
		BeforeDelete: guardAnswered("multiple choice question", &models.MultipleChoiceAnswer{}, &models.MultipleChoiceOption{}),
	}), changed).Register(router, "/multiple_choice_question")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.OpenQuestion]{
		Name:         "open question",
		Indexed:      true,
		Preloads:     options,
		Filter:       "quiz_id",
		Parent:       func(v *models.OpenQuestion) crud.Parent { return quizParent(&v.Question) },
		BeforeDelete: guardAnswered("open question", &models.OpenAnswer{}, &models.OpenOption{}),
	}), changed).Register(router, "/open_question")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.AssignmentQuestion]{
		Name:         "assignment question",
		Indexed:      true,
		Preloads:     options,
		Filter:       "quiz_id",
		Parent:       func(v *models.AssignmentQuestion) crud.Parent { return quizParent(&v.Question) },
		BeforeDelete: guardAnswered("assignment question", &models.AssignmentAnswer{}, &models.AssignmentOption{}),
	}), changed).Register(router, "/assignment_question")

	gapGuard := guardAnswered("gap text question", &models.GapTextAnswer{}, nil)
	crud.NewHandler(crud.NewStore(db, crud.Options[models.GapTextQuestion]{
		Name:     "gap text question",
		Indexed:  true,
		Preloads: []string{"SubQuestions", "SubQuestions.Options"},
		Filter:   "quiz_id",
		Parent:   func(v *models.GapTextQuestion) crud.Parent { return quizParent(&v.Question) },
		BeforeDelete: func(tx *gorm.DB, id uint) error {
			if err := gapGuard(tx, id); err != nil {
				return err
			}
			return deleteGapTextSubQuestions(tx, id)
		},
	}), changed).Register(router, "/gap_text_question")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.GapTextSubQuestion]{
		Name:     "gap text sub-question",
		Indexed:  true,
		Preloads: options,
		Filter:   "question_id",
		Parent: func(v *models.GapTextSubQuestion) crud.Parent {
			return crud.Parent{Model: &models.GapTextQuestion{}, ID: v.QuestionID}
		},
		BeforeDelete: func(tx *gorm.DB, id uint) error {
			return tx.Where("sub_question_id = ?", id).Delete(&models.GapTextOption{}).Error
		},
	}), changed).Register(router, "/gap_text_sub_question")

	registerOptions(router, db, changed)
	registerAnswers(router, db)
}

func registerOptions(router *mux.Router, db *gorm.DB, changed func(ctx context.Context)) {
	crud.NewHandler(crud.NewStore(db, crud.Options[models.SingleChoiceOption]{
		Name:    "single choice option",
		Indexed: true,
		Filter:  "question_id",
		Parent: func(v *models.SingleChoiceOption) crud.Parent {
			return crud.Parent{Model: &models.SingleChoiceQuestion{}, ID: v.QuestionID}
		},
	}), changed).Register(router, "/single_choice_option")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.MultipleChoiceOption]{
		Name:    "multiple choice option",
		Indexed: true,
		Filter:  "question_id",
		Parent: func(v *models.MultipleChoiceOption) crud.Parent {
			return crud.Parent{Model: &models.MultipleChoiceQuestion{}, ID: v.QuestionID}
		},
	}), changed).Register(router, "/multiple_choice_option")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.OpenOption]{
		Name:    "open option",
		Indexed: true,
		Filter:  "question_id",
		Parent: func(v *models.OpenOption) crud.Parent {
			return crud.Parent{Model: &models.OpenQuestion{}, ID: v.QuestionID}
		},
	}), changed).Register(router, "/open_option")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.AssignmentOption]{
		Name:    "assignment option",
		Indexed: true,
		Filter:  "question_id",
		Parent: func(v *models.AssignmentOption) crud.Parent {
			return crud.Parent{Model: &models.AssignmentQuestion{}, ID: v.QuestionID}
		},
	}), changed).Register(router, "/assignment_option")

	crud.NewHandler(crud.NewStore(db, crud.Options[models.GapTextOption]{
		Name:    "gap text option",
		Indexed: true,
		Filter:  "sub_question_id",
		Parent: func(v *models.GapTextOption) crud.Parent {
			return crud.Parent{Model: &models.GapTextSubQuestion{}, ID: v.SubQuestionID}
		},
	}), changed).Register(router, "/gap_text_option")
}

// Answers are written only by submissions, so their routes are read-only.
func registerAnswers(router *mux.Router, db *gorm.DB) {
	crud.NewHandler(crud.NewStore(db, crud.Options[models.SingleChoiceAnswer]{
		Name: "single choice answer", Filter: "result_id",
	}), nil).RegisterAdminRead(router, "/single_choice_answer")
	crud.NewHandler(crud.NewStore(db, crud.Options[models.MultipleChoiceAnswer]{
		Name: "multiple choice answer", Filter: "result_id",
	}), nil).RegisterAdminRead(router, "/multiple_choice_answer")
	crud.NewHandler(crud.NewStore(db, crud.Options[models.OpenAnswer]{
		Name: "open answer", Filter: "result_id",
	}), nil).RegisterAdminRead(router, "/open_answer")
	crud.NewHandler(crud.NewStore(db, crud.Options[models.AssignmentAnswer]{
		Name: "assignment answer", Filter: "result_id",
	}), nil).RegisterAdminRead(router, "/assignment_answer")
	crud.NewHandler(crud.NewStore(db, crud.Options[models.GapTextAnswer]{
		Name: "gap text answer", Filter: "result_id",
	}), nil).RegisterAdminRead(router, "/gap_text_answer")
}
