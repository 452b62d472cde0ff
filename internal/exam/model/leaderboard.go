package model

import (
	"time"
)

// LeaderboardEntry is one ranked row for a participant who has submitted.
type LeaderboardEntry struct {
	Rank            int            `json:"rank"`
	Name            string         `json:"name"`
	Score           int            `json:"score"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	ViolationState  ViolationState `json:"violation_state"`
}

// WaitingEntry is one participant who has joined but not yet submitted.
type WaitingEntry struct {
	Name           string         `json:"name"`
	JoinedAt       time.Time      `json:"joined_at"`
	ViolationState ViolationState `json:"violation_state"`
}

// LeaderboardStats summarizes the current participant set.
type LeaderboardStats struct {
	TotalParticipants    int     `json:"total_participants"`
	CompletedSubmissions int     `json:"completed_submissions"`
	AverageScore         float64 `json:"average_score"`
	HighestScore         int     `json:"highest_score"`
}

// Leaderboard is the derived, recomputed-on-read ranking of an exam.
type Leaderboard struct {
	ExamCode  string             `json:"exam_code"`
	Completed []LeaderboardEntry `json:"completed"`
	Waiting   []WaitingEntry     `json:"waiting"`
	Stats     LeaderboardStats   `json:"stats"`
}
