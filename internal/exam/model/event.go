package model

import (
	"time"
)

// EventType identifies an audit event published to the event stream.
type EventType string

const (
	EventExamCreated           EventType = "exam_created"
	EventExamStarted           EventType = "exam_started"
	EventExamStopped           EventType = "exam_stopped"
	EventExamExpired           EventType = "exam_expired"
	EventParticipantJoined     EventType = "participant_joined"
	EventSubmissionScored      EventType = "submission_scored"
	EventIntegrityViolation    EventType = "integrity_violation"
	EventParticipantTerminated EventType = "participant_terminated"
)

// Event is one audit record. Published best-effort; the exam authority never
// blocks on the stream.
type Event struct {
	Type        EventType              `json:"type"`
	ExamCode    string                 `json:"exam_code"`
	Participant string                 `json:"participant,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Data        map[string]interface{} `json:"data,omitempty"`
}
