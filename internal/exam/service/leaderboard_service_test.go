package service_test

import (
	"context"
	"testing"
	"time"

	"examhall/internal/exam/runner"
	"examhall/internal/exam/service"
	appErr "examhall/pkg/errors"
)

func newLeaderboard(env *testEnv) *service.LeaderboardService {
	return service.NewLeaderboardService(env.store)
}

func TestLeaderboardOrdersByScoreThenSubmitTime(t *testing.T) {
	// carol and dave both score 30; dave submits later.
	partial := scriptRunner{fn: func(req runner.ExecuteRequest) (runner.ExecuteResult, error) {
		if req.Stdin == "3" || req.Stdin == "7" {
			return runner.ExecuteResult{Stdout: req.Stdin, ExitCode: 0}, nil
		}
		return runner.ExecuteResult{Stdout: "wrong", ExitCode: 0}, nil
	}}
	env := newTestEnv(t, partial)
	code := setupActiveExam(t, env, "bob", "carol", "dave")
	boards := newLeaderboard(env)

	// bob grades against a fully correct runner on the same store.
	fullScoring := service.NewScoringService(env.store, echoRunner(), nil, nil, 0)
	fullScoring.SetClock(env.clock.Now)

	if _, err := fullScoring.Submit(context.Background(), service.SubmitInput{
		ExamCode: code, ParticipantName: "bob", Language: "python", SourceCode: "right",
	}); err != nil {
		t.Fatalf("bob submit failed: %v", err)
	}
	env.clock.Advance(time.Minute)
	submitFor(t, env, code, "carol", "half right")
	env.clock.Advance(time.Minute)
	submitFor(t, env, code, "dave", "half right")

	board, err := boards.Get(context.Background(), code)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(board.Completed) != 3 {
		t.Fatalf("expected 3 ranked entries, got %d", len(board.Completed))
	}

	wantOrder := []string{"bob", "carol", "dave"}
	for i, want := range wantOrder {
		entry := board.Completed[i]
		if entry.Name != want {
			t.Fatalf("rank %d: expected %s, got %s", i+1, want, entry.Name)
		}
		if entry.Rank != i+1 {
			t.Fatalf("expected sequential rank %d, got %d", i+1, entry.Rank)
		}
	}
	if board.Completed[0].Score != 100 || board.Completed[1].Score != 30 {
		t.Fatalf("unexpected scores: %d, %d", board.Completed[0].Score, board.Completed[1].Score)
	}
}

func TestLeaderboardSeparatesWaitingParticipants(t *testing.T) {
	env := newTestEnv(t, echoRunner())
	code := setupActiveExam(t, env, "bob", "carol")
	boards := newLeaderboard(env)

	submitFor(t, env, code, "bob", "print(input())")

	board, err := boards.Get(context.Background(), code)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(board.Completed) != 1 || board.Completed[0].Name != "bob" {
		t.Fatalf("expected bob ranked alone, got %+v", board.Completed)
	}
	if len(board.Waiting) != 1 || board.Waiting[0].Name != "carol" {
		t.Fatalf("expected carol waiting, got %+v", board.Waiting)
	}
}

func TestLeaderboardStats(t *testing.T) {
	partial := scriptRunner{fn: func(req runner.ExecuteRequest) (runner.ExecuteResult, error) {
		if req.Stdin == "3" || req.Stdin == "7" {
			return runner.ExecuteResult{Stdout: req.Stdin, ExitCode: 0}, nil
		}
		return runner.ExecuteResult{Stdout: "wrong", ExitCode: 0}, nil
	}}
	env := newTestEnv(t, partial)
	code := setupActiveExam(t, env, "bob", "carol", "dave")
	boards := newLeaderboard(env)

	submitFor(t, env, code, "bob", "a")
	env.clock.Advance(time.Minute)
	submitFor(t, env, code, "carol", "b")

	board, err := boards.Get(context.Background(), code)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	stats := board.Stats
	if stats.TotalParticipants != 3 {
		t.Fatalf("expected 3 participants, got %d", stats.TotalParticipants)
	}
	if stats.CompletedSubmissions != 2 {
		t.Fatalf("expected 2 submissions, got %d", stats.CompletedSubmissions)
	}
	if stats.AverageScore != 30 {
		t.Fatalf("expected average 30, got %v", stats.AverageScore)
	}
	if stats.HighestScore != 30 {
		t.Fatalf("expected highest 30, got %d", stats.HighestScore)
	}
}

func TestLeaderboardEmptyExam(t *testing.T) {
	env := newTestEnv(t, nil)
	code := createExam(t, env)
	boards := newLeaderboard(env)

	board, err := boards.Get(context.Background(), code)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(board.Completed) != 0 || len(board.Waiting) != 0 {
		t.Fatalf("expected empty board, got %+v", board)
	}
	if board.Stats.AverageScore != 0 || board.Stats.HighestScore != 0 {
		t.Fatalf("expected zero stats for empty board, got %+v", board.Stats)
	}
}

func TestLeaderboardDeterministicAcrossReads(t *testing.T) {
	env := newTestEnv(t, echoRunner())
	code := setupActiveExam(t, env, "bob", "carol")
	boards := newLeaderboard(env)

	submitFor(t, env, code, "bob", "print(input())")

	first, err := boards.Get(context.Background(), code)
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	second, err := boards.Get(context.Background(), code)
	if err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if len(first.Completed) != len(second.Completed) {
		t.Fatalf("reads disagree on entry count")
	}
	for i := range first.Completed {
		if first.Completed[i] != second.Completed[i] {
			t.Fatalf("entry %d differs between reads with no new submissions", i)
		}
	}
}

func TestLeaderboardUnknownExam(t *testing.T) {
	env := newTestEnv(t, nil)
	boards := newLeaderboard(env)
	_, err := boards.Get(context.Background(), "NOPE42")
	if !appErr.Is(err, appErr.ExamNotFound) {
		t.Fatalf("expected ExamNotFound, got %v", err)
	}
}
