package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-api/internal/models"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewRedisCache(NewClient(mr.Addr(), "", 0), time.Minute), mr
}

func TestQuizRoundTripAndInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if _, err := c.GetQuiz(ctx, 1); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	quiz := &models.Quiz{ID: 1, Title: "Capitals", SingleChoiceQuestions: []models.SingleChoiceQuestion{
		{Question: models.Question{ID: 4, QuizID: 1, Title: "France", Difficulty: models.DifficultyEasy}, CorrectIndex: 1},
	}}
	if err := c.SetQuiz(ctx, quiz); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.GetQuiz(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Capitals" || len(got.SingleChoiceQuestions) != 1 || got.SingleChoiceQuestions[0].CorrectIndex != 1 {
		t.Fatalf("unexpected quiz: %+v", got)
	}

	if err := c.InvalidateQuizzes(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := c.GetQuiz(ctx, 1); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after invalidation, got %v", err)
	}
}

func TestQuizTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	if err := c.SetQuiz(ctx, &models.Quiz{ID: 2, Title: "t"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := c.GetQuiz(ctx, 2); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestLeaderboardKeepsBestScore(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for _, s := range []struct {
		user  string
		score int
	}{{"alice", 3}, {"bob", 5}, {"alice", 7}, {"bob", 1}} {
		if err := c.RecordScore(ctx, 9, s.user, s.score); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := c.Leaderboard(ctx, 9, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []models.LeaderboardEntry{{Username: "alice", Score: 7}, {Username: "bob", Score: 5}}
	if len(entries) != len(want) {
		t.Fatalf("entries = %+v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}

	top, _ := c.Leaderboard(ctx, 9, 1)
	if len(top) != 1 || top[0].Username != "alice" {
		t.Fatalf("limit 1: %+v", top)
	}

	if err := c.SetScore(ctx, 9, "alice", 2); err != nil {
		t.Fatalf("set score: %v", err)
	}
	if top, _ := c.Leaderboard(ctx, 9, 1); top[0].Username != "bob" {
		t.Fatalf("SetScore must lower the score, top = %+v", top)
	}

	if err := c.RemoveUserScores(ctx, "alice", []uint{9}); err != nil {
		t.Fatalf("remove user: %v", err)
	}
	entries, _ = c.Leaderboard(ctx, 9, 0)
	if len(entries) != 1 || entries[0].Username != "bob" {
		t.Fatalf("after removal: %+v", entries)
	}

	if err := c.RemoveLeaderboard(ctx, 9); err != nil {
		t.Fatalf("remove leaderboard: %v", err)
	}
	entries, _ = c.Leaderboard(ctx, 9, 0)
	if len(entries) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v", entries)
	}
}
