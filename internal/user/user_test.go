package user

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"golang.org/x/crypto/bcrypt"

	"quiz-api/internal/models"
	"quiz-api/internal/result"
	"quiz-api/pkg/cache"
	"quiz-api/pkg/database/dbtest"
)

type fakeScores struct {
	username string
	quizIDs  []uint
}

func (f *fakeScores) SetScore(ctx context.Context, quizID uint, username string, score int) error {
	return nil
}

func (f *fakeScores) RemoveUserScores(ctx context.Context, username string, quizIDs []uint) error {
	f.username, f.quizIDs = username, quizIDs
	return nil
}

func TestUserAdministration(t *testing.T) {
	db := dbtest.Open(t)
	scores := &fakeScores{}
	s := NewService(db, result.NewRepository(db), scores)
	ctx := context.Background()

	if _, err := s.Create(ctx, models.UserInput{Username: "nopw"}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("missing password: %v", err)
	}
	u, err := s.Create(ctx, models.UserInput{Username: "henry", Password: "pw"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte("pw")) != nil {
		t.Fatalf("password not hashed with bcrypt")
	}
	if _, err := s.Create(ctx, models.UserInput{Username: "henry", Password: "pw"}); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("duplicate username: %v", err)
	}

	oldHash := u.HashedPassword
	updated, err := s.Update(ctx, u.ID, models.UserInput{Username: "henry", IsAdmin: true})
	if err != nil || !updated.IsAdmin || updated.HashedPassword != oldHash {
		t.Fatalf("update without password: %+v, %v", updated, err)
	}
	if _, err := s.Update(ctx, 999, models.UserInput{Username: "x"}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}

	quiz := models.Quiz{Title: "q"}
	db.Create(&quiz)
	res := models.Result{QuizID: quiz.ID, UserID: u.ID, Score: 1, MaxScore: 1, CreatedAt: time.Now().UTC(),
		OpenAnswers: []models.OpenAnswer{{Answer: models.Answer{QuestionID: 1, Score: 1, MaxScore: 1}, Text: "x"}}}
	if err := db.Create(&res).Error; err != nil {
		t.Fatalf("create result: %v", err)
	}

	if err := s.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var results, answers int64
	db.Model(&models.Result{}).Count(&results)
	db.Model(&models.OpenAnswer{}).Count(&answers)
	if results != 0 || answers != 0 {
		t.Fatalf("cascade left %d results and %d answers", results, answers)
	}
	if scores.username != "henry" || len(scores.quizIDs) != 1 || scores.quizIDs[0] != quiz.ID {
		t.Fatalf("leaderboard cleanup = %+v", scores)
	}
	if _, err := s.Get(ctx, u.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
}

func TestRenameMovesLeaderboardEntries(t *testing.T) {
	db := dbtest.Open(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	board := cache.NewRedisCache(cache.NewClient(mr.Addr(), "", 0), time.Minute)
	results := result.NewRepository(db)
	s := NewService(db, results, board)
	ctx := context.Background()

	u, err := s.Create(ctx, models.UserInput{Username: "henry", Password: "pw"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := s.Create(ctx, models.UserInput{Username: "ida", Password: "pw"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	quiz := models.Quiz{Title: "q"}
	db.Create(&quiz)
	for _, r := range []models.Result{
		{QuizID: quiz.ID, UserID: u.ID, Score: 1, MaxScore: 3, CreatedAt: time.Now().UTC()},
		{QuizID: quiz.ID, UserID: u.ID, Score: 3, MaxScore: 3, CreatedAt: time.Now().UTC()},
		{QuizID: quiz.ID, UserID: other.ID, Score: 2, MaxScore: 3, CreatedAt: time.Now().UTC()},
	} {
		r := r
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("create result: %v", err)
		}
	}
	board.RecordScore(ctx, quiz.ID, "henry", 3)
	board.RecordScore(ctx, quiz.ID, "ida", 2)

	if _, err := s.Update(ctx, u.ID, models.UserInput{Username: "hank"}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	fromRedis, err := board.Leaderboard(ctx, quiz.ID, 0)
	if err != nil {
		t.Fatalf("redis leaderboard: %v", err)
	}
	fromDB, err := results.BestScores(ctx, quiz.ID, 0)
	if err != nil {
		t.Fatalf("db leaderboard: %v", err)
	}
	want := []models.LeaderboardEntry{{Username: "hank", Score: 3}, {Username: "ida", Score: 2}}
	if !reflect.DeepEqual(fromRedis, want) || !reflect.DeepEqual(fromDB, want) {
		t.Fatalf("redis=%+v db=%+v, want %+v", fromRedis, fromDB, want)
	}

	if err := s.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	fromRedis, _ = board.Leaderboard(ctx, quiz.ID, 0)
	if len(fromRedis) != 1 || fromRedis[0].Username != "ida" {
		t.Fatalf("leaderboard after delete = %+v", fromRedis)
	}
}
