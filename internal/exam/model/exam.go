package model

import (
	"time"
)

// ExamStatus is the lifecycle state of an exam.
type ExamStatus string

const (
	StatusWaiting   ExamStatus = "waiting"
	StatusActive    ExamStatus = "active"
	StatusCompleted ExamStatus = "completed"
)

// CanTransition reports whether the status may advance to next.
// The lifecycle only moves forward: waiting -> active -> completed,
// with waiting -> completed allowed as cancel-before-start.
func (s ExamStatus) CanTransition(next ExamStatus) bool {
	switch s {
	case StatusWaiting:
		return next == StatusActive || next == StatusCompleted
	case StatusActive:
		return next == StatusCompleted
	default:
		return false
	}
}

// Exam is a timed coding assessment instance identified by a unique code.
// All mutation happens under the owning store's per-exam lock.
type Exam struct {
	Code            string     `json:"code"`
	Title           string     `json:"title"`
	HostName        string     `json:"host_name"`
	Status          ExamStatus `json:"status"`
	DurationMinutes int        `json:"duration_minutes"`
	MaxParticipants int        `json:"max_participants"`
	CreatedAt       time.Time  `json:"created_at"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`

	Problem *Problem `json:"problem,omitempty"`

	// Participants keyed by name (unique within the exam).
	Participants map[string]*Participant `json:"-"`
}

// Expired reports whether an active exam has passed its end time.
func (e *Exam) Expired(now time.Time) bool {
	return e.Status == StatusActive && e.EndTime != nil && !now.Before(*e.EndTime)
}

// RemainingSeconds returns seconds until end_time, clamped at zero.
// Derived per reader; end_time itself is fixed at start (single timer authority).
func (e *Exam) RemainingSeconds(now time.Time) int {
	if e.Status != StatusActive || e.EndTime == nil {
		return 0
	}
	remaining := e.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// Clone returns a deep copy of the exam, including problem and participants.
// Readers work on clones so pollers never observe in-progress mutation.
func (e *Exam) Clone() *Exam {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Problem = e.Problem.Clone()
	cp.Participants = make(map[string]*Participant, len(e.Participants))
	for name, p := range e.Participants {
		cp.Participants[name] = p.Clone()
	}
	return &cp
}
