package result

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"quiz-api/internal/models"
	"quiz-api/pkg/database/dbtest"
)

type fakeLeaderboard struct {
	set     map[string]int
	removed []string
}

func (f *fakeLeaderboard) SetScore(ctx context.Context, quizID uint, username string, score int) error {
	if f.set == nil {
		f.set = map[string]int{}
	}
	f.set[username] = score
	return nil
}

func (f *fakeLeaderboard) RemoveUserScores(ctx context.Context, username string, quizIDs []uint) error {
	f.removed = append(f.removed, username)
	return nil
}

type fixture struct {
	db    *gorm.DB
	admin *models.User
	alice *models.User
	bob   *models.User
	quiz  *models.Quiz
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{
		db:    db,
		admin: &models.User{Username: "admin", HashedPassword: "x", IsAdmin: true},
		alice: &models.User{Username: "alice", HashedPassword: "x"},
		bob:   &models.User{Username: "bob", HashedPassword: "x"},
		quiz:  &models.Quiz{Title: "results"},
	}
	for _, u := range []*models.User{f.admin, f.alice, f.bob} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if err := db.Create(f.quiz).Error; err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return f
}

func (f *fixture) addResult(t *testing.T, user *models.User, score int) *models.Result {
	t.Helper()
	res := &models.Result{
		QuizID:    f.quiz.ID,
		UserID:    user.ID,
		Score:     score,
		MaxScore:  10,
		CreatedAt: time.Now().UTC(),
		SingleChoiceAnswers: []models.SingleChoiceAnswer{
			{Answer: models.Answer{QuestionID: 1, Score: score, MaxScore: 10}, SelectedIndex: 0},
		},
		GapTextAnswers: []models.GapTextAnswer{
			{Answer: models.Answer{QuestionID: 2}, SelectedIndices: []int{1, 0}},
		},
	}
	if err := f.db.Create(res).Error; err != nil {
		t.Fatalf("create result: %v", err)
	}
	return res
}

func countAnswers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var total int64
	for _, table := range answerTables {
		var n int64
		if err := db.Model(table).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		total += n
	}
	return total
}

func TestListVisibility(t *testing.T) {
	f := setup(t)
	s := NewService(NewRepository(f.db), nil)
	ctx := context.Background()
	f.addResult(t, f.alice, 3)
	f.addResult(t, f.bob, 5)

	mine, err := s.List(ctx, f.alice, 0, 0)
	if err != nil || len(mine) != 1 || mine[0].UserID != f.alice.ID {
		t.Fatalf("alice list: %+v, %v", mine, err)
	}
	if len(mine[0].GapTextAnswers) != 1 || len(mine[0].GapTextAnswers[0].SelectedIndices) != 2 {
		t.Fatalf("answers not preloaded: %+v", mine[0])
	}
	if _, err := s.List(ctx, f.alice, 0, f.bob.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("peeking at bob: %v", err)
	}
	all, err := s.List(ctx, f.admin, f.quiz.ID, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("admin list: %d, %v", len(all), err)
	}
	byUser, _ := s.List(ctx, f.admin, 0, f.bob.ID)
	if len(byUser) != 1 || byUser[0].Score != 5 {
		t.Fatalf("admin filter by user: %+v", byUser)
	}
	if _, err := s.List(ctx, nil, 0, 0); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("anonymous: %v", err)
	}
}

func TestGetOwnership(t *testing.T) {
	f := setup(t)
	s := NewService(NewRepository(f.db), nil)
	ctx := context.Background()
	res := f.addResult(t, f.bob, 4)

	if _, err := s.Get(ctx, f.alice, res.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("foreign result: %v", err)
	}
	if got, err := s.Get(ctx, f.bob, res.ID); err != nil || got.Score != 4 {
		t.Fatalf("own result: %+v, %v", got, err)
	}
	if _, err := s.Get(ctx, f.admin, 9999); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestDeleteCascadesAndRefreshesLeaderboard(t *testing.T) {
	f := setup(t)
	lb := &fakeLeaderboard{}
	s := NewService(NewRepository(f.db), lb)
	ctx := context.Background()
	best := f.addResult(t, f.alice, 8)
	f.addResult(t, f.alice, 2)
	only := f.addResult(t, f.bob, 6)

	if err := s.Delete(ctx, f.alice, best.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("non-admin delete: %v", err)
	}
	if err := s.Delete(ctx, f.admin, best.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if lb.set["alice"] != 2 {
		t.Fatalf("alice best should fall back to 2, got %+v", lb.set)
	}
	if err := s.Delete(ctx, f.admin, only.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(lb.removed) != 1 || lb.removed[0] != "bob" {
		t.Fatalf("bob should leave the leaderboard: %+v", lb.removed)
	}
	if n := countAnswers(t, f.db); n != 2 {
		t.Fatalf("answers left = %d, want 2", n)
	}
}

func TestBestScoresAndDeleteByUser(t *testing.T) {
	f := setup(t)
	repo := NewRepository(f.db)
	ctx := context.Background()
	f.addResult(t, f.alice, 3)
	f.addResult(t, f.alice, 9)
	f.addResult(t, f.bob, 5)

	entries, err := repo.BestScores(ctx, f.quiz.ID, 0)
	if err != nil {
		t.Fatalf("best scores: %v", err)
	}
	if len(entries) != 2 || entries[0] != (models.LeaderboardEntry{Username: "alice", Score: 9}) {
		t.Fatalf("entries = %+v", entries)
	}

	ids, err := repo.QuizIDsForUser(ctx, f.alice.ID)
	if err != nil || len(ids) != 1 || ids[0] != f.quiz.ID {
		t.Fatalf("quiz ids = %v, %v", ids, err)
	}

	if err := f.db.Transaction(func(tx *gorm.DB) error { return DeleteByUser(tx, f.alice.ID) }); err != nil {
		t.Fatalf("delete by user: %v", err)
	}
	left, _ := repo.List(ctx, 0, 0)
	if len(left) != 1 || left[0].UserID != f.bob.ID {
		t.Fatalf("left = %+v", left)
	}
	if n := countAnswers(t, f.db); n != 2 {
		t.Fatalf("answers left = %d, want 2", n)
	}
}
