package model

import (
	"time"
)

// ViolationState escalates per participant during an active exam.
// Warned may accumulate; Terminated is terminal.
type ViolationState string

const (
	ViolationNone       ViolationState = "none"
	ViolationWarned     ViolationState = "warned"
	ViolationTerminated ViolationState = "terminated"
)

// ViolationKind identifies a detected integrity anomaly.
type ViolationKind string

const (
	ViolationFocusLost      ViolationKind = "focus_lost"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
	ViolationDevtoolsOpen   ViolationKind = "devtools_open"
	ViolationVMSuspected    ViolationKind = "vm_suspected"
)

// Violation is one recorded integrity anomaly.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Detail     string        `json:"detail,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// ReadinessLatch is the monotonic set of proctoring checks a participant must
// pass before entering the exam interface. Each flag, once true, is never
// reset by normal operation.
type ReadinessLatch struct {
	FullscreenActive       bool `json:"fullscreen_active"`
	VMCheckDone            bool `json:"vm_check_done"`
	CopyPasteBlockInstalled bool `json:"copy_paste_block_installed"`
	FocusMonitorInstalled  bool `json:"focus_monitor_installed"`
}

// Complete reports whether every check in the latch has been set.
func (l ReadinessLatch) Complete() bool {
	return l.FullscreenActive && l.VMCheckDone && l.CopyPasteBlockInstalled && l.FocusMonitorInstalled
}

// IntegrityState tracks a participant's readiness latch and violation record.
type IntegrityState struct {
	Latch             ReadinessLatch `json:"latch"`
	AgreementAccepted bool           `json:"agreement_accepted"`

	FocusLostCount      int  `json:"focus_lost_count"`
	FullscreenExitCount int  `json:"fullscreen_exit_count"`
	DevtoolsDetected    bool `json:"devtools_detected"`
	VMSuspected         bool `json:"vm_suspected"`

	ViolationState ViolationState `json:"violation_state"`
	Violations     []Violation    `json:"violations,omitempty"`
}

// Ready reports whether the latch is complete and the agreement accepted.
func (s IntegrityState) Ready() bool {
	return s.Latch.Complete() && s.AgreementAccepted
}

// Participant is one exam entrant. Mutated only by its own submit call
// (at most once) and by integrity violation events.
type Participant struct {
	Name        string     `json:"name"`
	JoinedAt    time.Time  `json:"joined_at"`
	Language    string     `json:"language,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Score       *int       `json:"score,omitempty"`
	Completed   bool       `json:"completed"`

	Submission *Submission    `json:"submission,omitempty"`
	Integrity  IntegrityState `json:"integrity"`
}

// Clone returns a deep copy of the participant.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	cp := *p
	if p.SubmittedAt != nil {
		t := *p.SubmittedAt
		cp.SubmittedAt = &t
	}
	if p.Score != nil {
		s := *p.Score
		cp.Score = &s
	}
	cp.Submission = p.Submission.Clone()
	cp.Integrity.Violations = append([]Violation(nil), p.Integrity.Violations...)
	return &cp
}
