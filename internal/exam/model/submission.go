package model

import (
	"time"
)

// Submission is the immutable, scored result of one participant's code.
// Created by the scoring service, committed onto the participant under the
// exam lock, never modified afterwards.
type Submission struct {
	ID              string       `json:"id"`
	ParticipantName string       `json:"participant_name"`
	Language        string       `json:"language"`
	Code            string       `json:"code"`
	SubmittedAt     time.Time    `json:"submitted_at"`
	TestResults     []TestResult `json:"test_results"`
	PointsEarned    int          `json:"points_earned"`
	Score           int          `json:"score"`

	// Integrity telemetry snapshot attached at commit time. Advisory only;
	// client-side checks are not treated as tamper-proof.
	IntegritySnapshot *IntegrityState `json:"integrity_snapshot,omitempty"`
}

// TestResult is the outcome of one test case run.
type TestResult struct {
	Index        int    `json:"index"`
	Description  string `json:"description,omitempty"`
	IsPublic     bool   `json:"is_public"`
	Passed       bool   `json:"passed"`
	Points       int    `json:"points"`
	PointsEarned int    `json:"points_earned"`

	// Hidden in participant views for private cases.
	Input          string `json:"input,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	ActualOutput   string `json:"actual_output,omitempty"`
	ErrorOutput    string `json:"error_output,omitempty"`
}

// Clone returns a deep copy of the submission.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	cp := *s
	cp.TestResults = append([]TestResult(nil), s.TestResults...)
	if s.IntegritySnapshot != nil {
		snap := *s.IntegritySnapshot
		snap.Violations = append([]Violation(nil), s.IntegritySnapshot.Violations...)
		cp.IntegritySnapshot = &snap
	}
	return &cp
}

// ParticipantView redacts private test case data: pass/fail and points stay
// visible, input/expected/actual do not.
func (s *Submission) ParticipantView() *Submission {
	cp := s.Clone()
	if cp == nil {
		return nil
	}
	for i := range cp.TestResults {
		if !cp.TestResults[i].IsPublic {
			cp.TestResults[i].Input = ""
			cp.TestResults[i].ExpectedOutput = ""
			cp.TestResults[i].ActualOutput = ""
			cp.TestResults[i].ErrorOutput = ""
		}
	}
	return cp
}
