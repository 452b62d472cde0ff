package service

import (
	"context"
	"strings"
	"time"

	"examhall/internal/exam/model"
	"examhall/internal/exam/repository"
	"examhall/pkg/utils/logger"
	appErr "examhall/pkg/errors"

	"go.uber.org/zap"
)

// Limits bounds host-supplied exam parameters.
type Limits struct {
	MinDurationMinutes int
	MaxDurationMinutes int
	MinParticipants    int
	MaxParticipants    int
}

// DefaultLimits returns the bounds used when config leaves them unset.
func DefaultLimits() Limits {
	return Limits{
		MinDurationMinutes: 5,
		MaxDurationMinutes: 480,
		MinParticipants:    1,
		MaxParticipants:    500,
	}
}

// LifecycleService owns exam records and status transitions.
// waiting -> active -> completed, with waiting -> completed as
// cancel-before-start; status never regresses.
type LifecycleService struct {
	store  *repository.ExamStore
	codes  *repository.CodeAllocator
	events repository.EventPublisher
	limits Limits
	now    func() time.Time
}

// NewLifecycleService creates a lifecycle service.
func NewLifecycleService(
	store *repository.ExamStore,
	codes *repository.CodeAllocator,
	events repository.EventPublisher,
	limits Limits,
) *LifecycleService {
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	if events == nil {
		events = repository.NoopEventPublisher{}
	}
	return &LifecycleService{
		store:  store,
		codes:  codes,
		events: events,
		limits: limits,
		now:    time.Now,
	}
}

// SetClock overrides the clock, for tests.
func (s *LifecycleService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateExamInput describes a host's create request.
type CreateExamInput struct {
	Title           string
	HostName        string
	DurationMinutes int
	MaxParticipants int
}

// Create allocates a code unique among all non-completed exams and registers
// a new exam in waiting state.
func (s *LifecycleService) Create(ctx context.Context, input CreateExamInput) (*model.Exam, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.HostName = strings.TrimSpace(input.HostName)
	if input.Title == "" {
		return nil, appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "title")
	}
	if input.HostName == "" {
		return nil, appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "host_name")
	}
	if input.DurationMinutes < s.limits.MinDurationMinutes || input.DurationMinutes > s.limits.MaxDurationMinutes {
		return nil, appErr.Newf(appErr.InvalidValue, "duration must be between %d and %d minutes",
			s.limits.MinDurationMinutes, s.limits.MaxDurationMinutes).WithDetail("field", "duration_minutes")
	}
	if input.MaxParticipants < s.limits.MinParticipants || input.MaxParticipants > s.limits.MaxParticipants {
		return nil, appErr.Newf(appErr.InvalidValue, "max participants must be between %d and %d",
			s.limits.MinParticipants, s.limits.MaxParticipants).WithDetail("field", "max_participants")
	}

	code, err := s.codes.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	exam := &model.Exam{
		Code:            code,
		Title:           input.Title,
		HostName:        input.HostName,
		Status:          model.StatusWaiting,
		DurationMinutes: input.DurationMinutes,
		MaxParticipants: input.MaxParticipants,
		CreatedAt:       s.now(),
		Participants:    make(map[string]*model.Participant),
	}
	if err := s.store.Put(exam); err != nil {
		s.codes.Release(ctx, code)
		return nil, err
	}

	logger.Info(ctx, "exam created",
		zap.String("exam_code", code),
		zap.String("host", input.HostName),
		zap.Int("duration_minutes", input.DurationMinutes))
	s.events.Publish(ctx, model.Event{
		Type:     model.EventExamCreated,
		ExamCode: code,
		Data:     map[string]interface{}{"title": input.Title, "host_name": input.HostName},
	})
	return exam.Clone(), nil
}

// UploadProblem attaches (or replaces) the exam's problem while it is still
// waiting. Returns a non-empty warning when the per-case points do not sum to
// total_points; the mismatch is reported, never auto-normalized.
func (s *LifecycleService) UploadProblem(ctx context.Context, code string, problem *model.Problem) (string, error) {
	if problem == nil {
		return "", appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "problem")
	}
	problem.Title = strings.TrimSpace(problem.Title)
	if problem.Title == "" {
		return "", appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "problem.title")
	}
	if len(problem.TestCases) == 0 {
		return "", appErr.New(appErr.TestCaseMissing)
	}
	if !problem.HasGradableCase() {
		return "", appErr.New(appErr.TestCaseNoOutput)
	}
	if problem.TotalPoints <= 0 {
		return "", appErr.New(appErr.PointsInvalid).WithMessage("total_points must be positive")
	}
	for i, tc := range problem.TestCases {
		if tc.Points < 0 {
			return "", appErr.Newf(appErr.PointsInvalid, "test case %d has negative points", i)
		}
	}

	err := s.store.Update(code, func(exam *model.Exam) error {
		if exam.Status != model.StatusWaiting {
			return appErr.New(appErr.ExamNotWaiting).WithMessage("problem can only be uploaded before the exam starts")
		}
		exam.Problem = problem.Clone()
		return nil
	})
	if err != nil {
		return "", err
	}

	warning := ""
	if sum := problem.PointsSum(); sum != problem.TotalPoints {
		warning = "test case points sum does not match total_points"
		logger.Warn(ctx, "test case points sum mismatch",
			zap.String("exam_code", code),
			zap.Int("points_sum", sum),
			zap.Int("total_points", problem.TotalPoints))
	}
	logger.Info(ctx, "problem uploaded",
		zap.String("exam_code", code),
		zap.String("title", problem.Title),
		zap.Int("test_cases", len(problem.TestCases)))
	return warning, nil
}

// Join admits a participant. Allowed while the exam is waiting or active with
// room; the capacity check and the insert run under the exam lock so
// concurrent joins at the boundary never overbook.
func (s *LifecycleService) Join(ctx context.Context, code, name string) (*model.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.New(appErr.RequiredFieldEmpty).WithDetail("field", "name")
	}
	if len(name) > 64 {
		return nil, appErr.New(appErr.InvalidValue).WithMessage("name is too long").WithDetail("field", "name")
	}

	var (
		joined  *model.Participant
		expired bool
	)
	err := s.store.Update(code, func(exam *model.Exam) error {
		expired = s.expireLocked(exam)
		if exam.Status == model.StatusCompleted {
			return appErr.New(appErr.ExamCompleted).WithMessage("exam has ended, joining is closed")
		}
		if _, taken := exam.Participants[name]; taken {
			return appErr.New(appErr.ParticipantNameTaken).WithDetail("name", name)
		}
		if len(exam.Participants) >= exam.MaxParticipants {
			return appErr.New(appErr.ExamFull).WithDetail("max_participants", exam.MaxParticipants)
		}
		p := &model.Participant{
			Name:     name,
			JoinedAt: s.now(),
			Integrity: model.IntegrityState{
				ViolationState: model.ViolationNone,
			},
		}
		exam.Participants[name] = p
		joined = p.Clone()
		return nil
	})
	s.afterExpiry(ctx, code, expired)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "participant joined",
		zap.String("exam_code", code), zap.String("participant", name))
	s.events.Publish(ctx, model.Event{
		Type:        model.EventParticipantJoined,
		ExamCode:    code,
		Participant: name,
	})
	return joined, nil
}

// Start flips waiting -> active and fixes end_time once. One-way.
func (s *LifecycleService) Start(ctx context.Context, code string) (*model.Exam, error) {
	var started *model.Exam
	err := s.store.Update(code, func(exam *model.Exam) error {
		if exam.Status != model.StatusWaiting {
			return appErr.New(appErr.ExamNotWaiting).WithMessage("exam has already started or finished")
		}
		if exam.Problem == nil {
			return appErr.New(appErr.ProblemNotAttached)
		}
		now := s.now()
		end := now.Add(time.Duration(exam.DurationMinutes) * time.Minute)
		exam.Status = model.StatusActive
		exam.StartTime = &now
		exam.EndTime = &end
		started = exam.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "exam started",
		zap.String("exam_code", code),
		zap.Time("end_time", *started.EndTime))
	s.events.Publish(ctx, model.Event{
		Type:     model.EventExamStarted,
		ExamCode: code,
		Data:     map[string]interface{}{"end_time": started.EndTime},
	})
	return started, nil
}

// Stop sets status=completed regardless of the clock. Idempotent: repeated
// calls after the first are no-ops.
func (s *LifecycleService) Stop(ctx context.Context, code string) error {
	flipped := false
	err := s.store.Update(code, func(exam *model.Exam) error {
		if exam.Status == model.StatusCompleted {
			return nil
		}
		exam.Status = model.StatusCompleted
		flipped = true
		return nil
	})
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	s.codes.Release(ctx, code)
	logger.Info(ctx, "exam stopped", zap.String("exam_code", code))
	s.events.Publish(ctx, model.Event{
		Type:     model.EventExamStopped,
		ExamCode: code,
	})
	return nil
}

// Get returns a snapshot of the exam. When an active exam has reached its
// end_time the status is flipped to completed first; the flip happens under
// the exam lock so concurrent readers cannot double-fire its side effects.
func (s *LifecycleService) Get(ctx context.Context, code string) (*model.Exam, error) {
	var (
		snapshot *model.Exam
		expired  bool
	)
	err := s.store.Update(code, func(exam *model.Exam) error {
		expired = s.expireLocked(exam)
		snapshot = exam.Clone()
		return nil
	})
	s.afterExpiry(ctx, code, expired)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Remaining returns the seconds left in an active exam, derived from the
// fixed end_time. Zero for waiting or completed exams.
func (s *LifecycleService) Remaining(ctx context.Context, code string) (int, error) {
	exam, err := s.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	return exam.RemainingSeconds(s.now()), nil
}

// expireLocked flips an overdue active exam to completed. Caller must hold
// the exam lock. Returns true only for the call that performed the flip.
func (s *LifecycleService) expireLocked(exam *model.Exam) bool {
	if !exam.Expired(s.now()) {
		return false
	}
	exam.Status = model.StatusCompleted
	return true
}

// afterExpiry fires the side effects of a timer-expiry transition exactly
// once, on whichever caller performed the flip.
func (s *LifecycleService) afterExpiry(ctx context.Context, code string, expired bool) {
	if !expired {
		return
	}
	s.codes.Release(ctx, code)
	logger.Info(ctx, "exam expired", zap.String("exam_code", code))
	s.events.Publish(ctx, model.Event{
		Type:     model.EventExamExpired,
		ExamCode: code,
	})
}
