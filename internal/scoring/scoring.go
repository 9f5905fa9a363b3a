// Package scoring decides correctness and points for a single answer.
// Functions here are pure: the caller loads the question with its options.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"quiz-api/internal/models"
)

// Outcome is the verdict for one answer.
type Outcome struct {
	Correct  bool
	Score    int
	MaxScore int
}

func outcome(correct bool, max int) Outcome {
	if correct {
		return Outcome{Correct: true, Score: max, MaxScore: max}
	}
	return Outcome{MaxScore: max}
}

func optionIndexSet[T any](opts []T, index func(T) int) map[int]struct{} {
	set := make(map[int]struct{}, len(opts))
	for _, o := range opts {
		set[index(o)] = struct{}{}
	}
	return set
}

func checkSelected(questionID uint, allowed map[int]struct{}, selected ...int) error {
	for _, s := range selected {
		if _, ok := allowed[s]; !ok {
			return fmt.Errorf("%w: question %d has no option with index %d", models.ErrValidation, questionID, s)
		}
	}
	return nil
}

func SingleChoice(q *models.SingleChoiceQuestion, selected int) (Outcome, error) {
	w, err := q.Difficulty.Weight()
	if err != nil {
		return Outcome{}, err
	}
	allowed := optionIndexSet(q.Options, func(o models.SingleChoiceOption) int { return o.Index })
	if err := checkSelected(q.ID, allowed, selected); err != nil {
		return Outcome{}, err
	}
	return outcome(selected == q.CorrectIndex, w), nil
}

// MultipleChoice compares selections as sets, so order and duplicates are ignored.
func MultipleChoice(q *models.MultipleChoiceQuestion, selected []int) (Outcome, error) {
	w, err := q.Difficulty.Weight()
	if err != nil {
		return Outcome{}, err
	}
	allowed := optionIndexSet(q.Options, func(o models.MultipleChoiceOption) int { return o.Index })
	if err := checkSelected(q.ID, allowed, selected...); err != nil {
		return Outcome{}, err
	}
	return outcome(sameSet(selected, q.CorrectIndices), w), nil
}

// Open is correct when every keyword option occurs in text, ignoring case.
// A question without keywords accepts any text.
func Open(q *models.OpenQuestion, text string) (Outcome, error) {
	w, err := q.Difficulty.Weight()
	if err != nil {
		return Outcome{}, err
	}
	lower := strings.ToLower(text)
	correct := true
	for _, o := range q.Options {
		if !strings.Contains(lower, strings.ToLower(o.Text)) {
			correct = false
			break
		}
	}
	return outcome(correct, w), nil
}

// Assignment is order-sensitive: selected[i] is the match chosen for the i-th item.
func Assignment(q *models.AssignmentQuestion, selected []int) (Outcome, error) {
	w, err := q.Difficulty.Weight()
	if err != nil {
		return Outcome{}, err
	}
	allowed := optionIndexSet(q.Options, func(o models.AssignmentOption) int { return o.Index })
	if err := checkSelected(q.ID, allowed, selected...); err != nil {
		return Outcome{}, err
	}
	return outcome(sameList(selected, q.CorrectIndices), w), nil
}

// GapText scores all gaps together; the answer is worth weight times the number of gaps.
func GapText(q *models.GapTextQuestion, selected []int) (Outcome, error) {
	w, err := q.Difficulty.Weight()
	if err != nil {
		return Outcome{}, err
	}
	subs := append([]models.GapTextSubQuestion(nil), q.SubQuestions...)
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Index < subs[j].Index })
	if len(selected) > len(subs) {
		return Outcome{}, fmt.Errorf("%w: question %d has %d gaps but %d selections", models.ErrValidation, q.ID, len(subs), len(selected))
	}
	for i, s := range selected {
		allowed := optionIndexSet(subs[i].Options, func(o models.GapTextOption) int { return o.Index })
		if err := checkSelected(q.ID, allowed, s); err != nil {
			return Outcome{}, err
		}
	}
	return outcome(sameList(selected, q.CorrectIndices), w*len(q.CorrectIndices)), nil
}

func sameList(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameSet(a, b []int) bool {
	sa := make(map[int]struct{}, len(a))
	for _, v := range a {
		sa[v] = struct{}{}
	}
	sb := make(map[int]struct{}, len(b))
	for _, v := range b {
		sb[v] = struct{}{}
	}
	if len(sa) != len(sb) {
		return false
	}
	for v := range sa {
		if _, ok := sb[v]; !ok {
			return false
		}
	}
	return true
}
