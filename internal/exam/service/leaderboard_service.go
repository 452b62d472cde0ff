package service

import (
	"context"
	"math"
	"sort"

	"examhall/internal/exam/model"
	"examhall/internal/exam/repository"
)

// LeaderboardService recomputes standings from the exam snapshot on every
// read. No cached ranking state exists to drift: two reads with no
// intervening submissions produce identical output.
type LeaderboardService struct {
	store *repository.ExamStore
}

func NewLeaderboardService(store *repository.ExamStore) *LeaderboardService {
	return &LeaderboardService{store: store}
}

// Get builds the leaderboard for the exam. Completed participants are
// ranked by score descending, earlier submission winning ties; participants
// still working appear in a separate waiting section ordered by join time.
func (s *LeaderboardService) Get(ctx context.Context, code string) (*model.Leaderboard, error) {
	exam, err := s.store.Snapshot(code)
	if err != nil {
		return nil, err
	}

	board := &model.Leaderboard{
		ExamCode:  exam.Code,
		Completed: []model.LeaderboardEntry{},
		Waiting:   []model.WaitingEntry{},
	}

	scoreSum := 0
	for _, p := range exam.Participants {
		if p.Completed && p.Score != nil && p.SubmittedAt != nil {
			board.Completed = append(board.Completed, model.LeaderboardEntry{
				Name:           p.Name,
				Score:          *p.Score,
				SubmittedAt:    *p.SubmittedAt,
				ViolationState: p.Integrity.ViolationState,
			})
			scoreSum += *p.Score
		} else {
			board.Waiting = append(board.Waiting, model.WaitingEntry{
				Name:           p.Name,
				JoinedAt:       p.JoinedAt,
				ViolationState: p.Integrity.ViolationState,
			})
		}
	}

	sort.Slice(board.Completed, func(i, j int) bool {
		a, b := board.Completed[i], board.Completed[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.Name < b.Name
	})
	for i := range board.Completed {
		board.Completed[i].Rank = i + 1
	}

	sort.Slice(board.Waiting, func(i, j int) bool {
		a, b := board.Waiting[i], board.Waiting[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.Name < b.Name
	})

	board.Stats = model.LeaderboardStats{
		TotalParticipants:    len(exam.Participants),
		CompletedSubmissions: len(board.Completed),
	}
	if len(board.Completed) > 0 {
		board.Stats.AverageScore = math.Round(float64(scoreSum)/float64(len(board.Completed))*100) / 100
		board.Stats.HighestScore = board.Completed[0].Score
	}
	return board, nil
}
