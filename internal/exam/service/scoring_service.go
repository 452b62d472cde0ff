package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"examhall/internal/common/cache"
	"examhall/internal/exam/model"
	"examhall/internal/exam/repository"
	"examhall/internal/exam/runner"
	"examhall/pkg/utils/logger"
	appErr "examhall/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	idempotencyKeyPrefix = "submit:idempotency:"
	defaultMaxCodeBytes  = 128 * 1024
	defaultMarkerTTL     = 24 * time.Hour
)

// ScoringService grades submissions against the exam problem's test cases.
// At most one submission per participant: the admission check, the in-flight
// guard and the commit together guarantee that concurrent duplicate calls
// converge on one stored result returned to every caller.
type ScoringService struct {
	store        *repository.ExamStore
	runner       runner.Runner
	events       repository.EventPublisher
	cache        cache.Cache
	maxCodeBytes int
	now          func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflightGrade
}

type inflightGrade struct {
	done       chan struct{}
	submission *model.Submission
	err        error
}

// NewScoringService creates a scoring service. cache may be nil; it only
// backs best-effort idempotency markers that survive restarts.
func NewScoringService(
	store *repository.ExamStore,
	r runner.Runner,
	events repository.EventPublisher,
	c cache.Cache,
	maxCodeBytes int,
) *ScoringService {
	if maxCodeBytes <= 0 {
		maxCodeBytes = defaultMaxCodeBytes
	}
	if events == nil {
		events = repository.NoopEventPublisher{}
	}
	return &ScoringService{
		store:        store,
		runner:       r,
		events:       events,
		cache:        c,
		maxCodeBytes: maxCodeBytes,
		now:          time.Now,
		inflight:     make(map[string]*inflightGrade),
	}
}

// SetClock overrides the clock, for tests.
func (s *ScoringService) SetClock(now func() time.Time) {
	s.now = now
}

// SubmitInput describes a participant's submission.
type SubmitInput struct {
	ExamCode        string
	ParticipantName string
	Language        string
	SourceCode      string
}

// Submit grades the source against the problem's test cases and commits the
// result onto the participant. A repeated call returns the already-committed
// submission unchanged instead of re-scoring. The returned submission is the
// participant view: private test cases expose only pass/fail and points.
func (s *ScoringService) Submit(ctx context.Context, input SubmitInput) (*model.Submission, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	key := input.ExamCode + "/" + input.ParticipantName

	// Duplicate calls (double-click, retry) wait on the first grade in
	// flight and share its outcome.
	s.mu.Lock()
	if fl, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-fl.done:
		case <-ctx.Done():
			return nil, appErr.Wrap(ctx.Err(), appErr.Timeout)
		}
		if fl.err != nil {
			return nil, fl.err
		}
		return fl.submission.ParticipantView(), nil
	}
	fl := &inflightGrade{done: make(chan struct{})}
	s.inflight[key] = fl
	s.mu.Unlock()

	submission, err := s.submitLocked(ctx, input)

	fl.submission = submission
	fl.err = err
	close(fl.done)
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return submission.ParticipantView(), nil
}

func (s *ScoringService) validate(input SubmitInput) error {
	if strings.TrimSpace(input.ExamCode) == "" {
		return appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "exam_code")
	}
	if strings.TrimSpace(input.ParticipantName) == "" {
		return appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "participant_name")
	}
	if strings.TrimSpace(input.SourceCode) == "" {
		return appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "source_code")
	}
	if len(input.SourceCode) > s.maxCodeBytes {
		return appErr.New(appErr.CodeTooLarge).WithDetail("max_bytes", s.maxCodeBytes)
	}
	return nil
}

// submitLocked runs the three-phase submit: admission under the exam lock,
// grading outside it (leaderboard reads never wait on an executor call), and
// commit back under the lock.
func (s *ScoringService) submitLocked(ctx context.Context, input SubmitInput) (*model.Submission, error) {
	var (
		problem   *model.Problem
		existing  *model.Submission
		integSnap model.IntegrityState
	)
	err := s.store.Update(input.ExamCode, func(exam *model.Exam) error {
		p, ok := exam.Participants[input.ParticipantName]
		if !ok {
			return appErr.New(appErr.ParticipantNotFound).WithDetail("name", input.ParticipantName)
		}
		if p.Submission != nil {
			// Soft conflict: resolved by replaying the original result.
			existing = p.Submission.Clone()
			return nil
		}
		if exam.Expired(s.now()) || exam.Status == model.StatusCompleted {
			return appErr.New(appErr.ExamCompleted).WithMessage("exam has ended, submissions are closed")
		}
		if exam.Status != model.StatusActive {
			return appErr.New(appErr.ExamNotActive).WithMessage("exam has not started yet")
		}
		if exam.Problem == nil {
			return appErr.New(appErr.NotFound).WithMessage("exam has no problem attached")
		}
		if p.Integrity.ViolationState == model.ViolationTerminated {
			return appErr.New(appErr.ParticipantTerminated)
		}
		if !exam.Problem.AllowsLanguage(input.Language) {
			return appErr.New(appErr.LanguageNotAllowed).WithDetail("language", input.Language)
		}
		p.Language = input.Language
		problem = exam.Problem.Clone()
		integSnap = p.Integrity
		integSnap.Violations = append([]model.Violation(nil), p.Integrity.Violations...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	results, pointsEarned := s.grade(ctx, problem, input)
	score := int(math.Round(100 * float64(pointsEarned) / float64(problem.TotalPoints)))

	submission := &model.Submission{
		ID:                uuid.NewString(),
		ParticipantName:   input.ParticipantName,
		Language:          input.Language,
		Code:              input.SourceCode,
		SubmittedAt:       s.now(),
		TestResults:       results,
		PointsEarned:      pointsEarned,
		Score:             score,
		IntegritySnapshot: &integSnap,
	}

	// Commit. An exam stopped mid-grading does not void a submission that
	// was admitted before the state flip: the grade is honored.
	err = s.store.Update(input.ExamCode, func(exam *model.Exam) error {
		p, ok := exam.Participants[input.ParticipantName]
		if !ok {
			return appErr.New(appErr.ParticipantNotFound).WithDetail("name", input.ParticipantName)
		}
		if p.Submission != nil {
			existing = p.Submission.Clone()
			return nil
		}
		p.Submission = submission
		p.Completed = true
		submittedAt := submission.SubmittedAt
		p.SubmittedAt = &submittedAt
		scoreCopy := submission.Score
		p.Score = &scoreCopy
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	s.markIdempotent(ctx, input.ExamCode, input.ParticipantName, submission.ID)
	logger.Info(ctx, "submission scored",
		zap.String("exam_code", input.ExamCode),
		zap.String("participant", input.ParticipantName),
		zap.Int("score", score),
		zap.Int("points_earned", pointsEarned))
	s.events.Publish(ctx, model.Event{
		Type:        model.EventSubmissionScored,
		ExamCode:    input.ExamCode,
		Participant: input.ParticipantName,
		Data: map[string]interface{}{
			"submission_id": submission.ID,
			"score":         score,
		},
	})
	return submission, nil
}

// grade runs every test case through the executor. A failure on one case
// fails only that case; an unreachable executor fails all remaining cases
// with the error annotation. Never returns an error: execution trouble
// degrades the score instead of aborting the submission.
func (s *ScoringService) grade(ctx context.Context, problem *model.Problem, input SubmitInput) ([]model.TestResult, int) {
	results := make([]model.TestResult, 0, len(problem.TestCases))
	pointsEarned := 0
	executorDown := ""

	for i, tc := range problem.TestCases {
		result := model.TestResult{
			Index:          i,
			Description:    tc.Description,
			IsPublic:       tc.IsPublic,
			Points:         tc.Points,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
		}

		if executorDown != "" {
			result.ErrorOutput = executorDown
			results = append(results, result)
			continue
		}

		execResult, err := s.runner.Execute(ctx, runner.ExecuteRequest{
			Source:   input.SourceCode,
			Language: input.Language,
			Stdin:    tc.Input,
		})
		if err != nil {
			result.ErrorOutput = err.Error()
			if appErr.Is(err, appErr.ExecutorUnavailable) {
				executorDown = err.Error()
			}
			logger.Warn(ctx, "test case execution failed",
				zap.String("exam_code", input.ExamCode),
				zap.String("participant", input.ParticipantName),
				zap.Int("test_case", i),
				zap.Error(err))
			results = append(results, result)
			continue
		}

		result.ActualOutput = execResult.Stdout
		result.ErrorOutput = execResult.Stderr
		if execResult.ExitCode == 0 && outputsMatch(execResult.Stdout, tc.ExpectedOutput) {
			result.Passed = true
			result.PointsEarned = tc.Points
			pointsEarned += tc.Points
		}
		results = append(results, result)
	}
	return results, pointsEarned
}

// outputsMatch compares trimmed-whitespace exact output.
func outputsMatch(actual, expected string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(expected)
}

// markIdempotent mirrors the committed submission id into redis,
// best-effort.
func (s *ScoringService) markIdempotent(ctx context.Context, code, name, submissionID string) {
	if s.cache == nil {
		return
	}
	key := idempotencyKeyPrefix + code + ":" + name
	if _, err := s.cache.SetNX(ctx, key, submissionID, defaultMarkerTTL); err != nil {
		logger.Warn(ctx, "set idempotency marker failed", zap.String("key", key), zap.Error(err))
	}
}
