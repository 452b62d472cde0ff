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

// IntegrityConfig tunes the proctoring policy the service enforces and the
// client-side heuristics it hands to exam clients.
type IntegrityConfig struct {
	// FocusLossThreshold is the number of focus-loss violations at which a
	// participant is terminated. Counts below it only warn.
	FocusLossThreshold int `yaml:"focusLossThreshold"`

	// Client heuristic parameters, served verbatim to exam clients.
	DevtoolsPollInterval   time.Duration `yaml:"devtoolsPollInterval"`
	DevtoolsPixelThreshold int           `yaml:"devtoolsPixelThreshold"`
	VMVendorSubstrings     []string      `yaml:"vmVendorSubstrings"`
	MinCPUCores            int           `yaml:"minCpuCores"`
	MinMemoryGB            int           `yaml:"minMemoryGb"`
}

// DefaultIntegrityConfig returns the stock proctoring policy.
func DefaultIntegrityConfig() IntegrityConfig {
	return IntegrityConfig{
		FocusLossThreshold:     3,
		DevtoolsPollInterval:   500 * time.Millisecond,
		DevtoolsPixelThreshold: 160,
		VMVendorSubstrings:     []string{"vmware", "virtualbox", "qemu", "parallels", "hyper-v", "xen"},
		MinCPUCores:            2,
		MinMemoryGB:            2,
	}
}

func (c *IntegrityConfig) applyDefaults() {
	def := DefaultIntegrityConfig()
	if c.FocusLossThreshold <= 0 {
		c.FocusLossThreshold = def.FocusLossThreshold
	}
	if c.DevtoolsPollInterval <= 0 {
		c.DevtoolsPollInterval = def.DevtoolsPollInterval
	}
	if c.DevtoolsPixelThreshold <= 0 {
		c.DevtoolsPixelThreshold = def.DevtoolsPixelThreshold
	}
	if len(c.VMVendorSubstrings) == 0 {
		c.VMVendorSubstrings = def.VMVendorSubstrings
	}
	if c.MinCPUCores <= 0 {
		c.MinCPUCores = def.MinCPUCores
	}
	if c.MinMemoryGB <= 0 {
		c.MinMemoryGB = def.MinMemoryGB
	}
}

// IntegrityService records readiness and violation telemetry reported by exam
// clients. All signals are client-originated and advisory; only the focus-loss
// threshold escalates to termination.
type IntegrityService struct {
	store     *repository.ExamStore
	events    repository.EventPublisher
	telemetry *repository.TelemetryLog
	cfg       IntegrityConfig
	now       func() time.Time
}

func NewIntegrityService(
	store *repository.ExamStore,
	events repository.EventPublisher,
	telemetry *repository.TelemetryLog,
	cfg IntegrityConfig,
) *IntegrityService {
	cfg.applyDefaults()
	if events == nil {
		events = repository.NoopEventPublisher{}
	}
	return &IntegrityService{
		store:     store,
		events:    events,
		telemetry: telemetry,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetClock overrides the clock, for tests.
func (s *IntegrityService) SetClock(now func() time.Time) {
	s.now = now
}

// ReadinessInput carries the checks a client reports as newly passed.
// False fields mean "not reporting", never "un-pass": the latch only moves
// forward.
type ReadinessInput struct {
	FullscreenActive        bool `json:"fullscreen_active"`
	VMCheckDone             bool `json:"vm_check_done"`
	CopyPasteBlockInstalled bool `json:"copy_paste_block_installed"`
	FocusMonitorInstalled   bool `json:"focus_monitor_installed"`
	AgreementAccepted       bool `json:"agreement_accepted"`
}

// SetReadiness ORs the reported checks into the participant's latch and
// returns the updated integrity state.
func (s *IntegrityService) SetReadiness(ctx context.Context, code, name string, input ReadinessInput) (*model.IntegrityState, error) {
	var state model.IntegrityState
	err := s.store.Update(code, func(exam *model.Exam) error {
		p, ok := exam.Participants[name]
		if !ok {
			return appErr.New(appErr.ParticipantNotFound).WithDetail("name", name)
		}
		latch := &p.Integrity.Latch
		latch.FullscreenActive = latch.FullscreenActive || input.FullscreenActive
		latch.VMCheckDone = latch.VMCheckDone || input.VMCheckDone
		latch.CopyPasteBlockInstalled = latch.CopyPasteBlockInstalled || input.CopyPasteBlockInstalled
		latch.FocusMonitorInstalled = latch.FocusMonitorInstalled || input.FocusMonitorInstalled
		p.Integrity.AgreementAccepted = p.Integrity.AgreementAccepted || input.AgreementAccepted
		state = s.copyState(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// VMCheckInput is the client's environment report for the VM heuristic.
type VMCheckInput struct {
	GPURenderer string `json:"gpu_renderer"`
	CPUCores    int    `json:"cpu_cores"`
	MemoryGB    int    `json:"memory_gb"`
}

// ReportVMCheck evaluates the client's environment report. The check always
// completes the VMCheckDone latch flag: a suspected VM is flagged on the
// participant for host review, never blocked from the exam.
func (s *IntegrityService) ReportVMCheck(ctx context.Context, code, name string, input VMCheckInput) (*model.IntegrityState, error) {
	suspected, reason := s.evaluateVM(input)
	var state model.IntegrityState
	err := s.store.Update(code, func(exam *model.Exam) error {
		p, ok := exam.Participants[name]
		if !ok {
			return appErr.New(appErr.ParticipantNotFound).WithDetail("name", name)
		}
		p.Integrity.Latch.VMCheckDone = true
		if suspected && !p.Integrity.VMSuspected {
			p.Integrity.VMSuspected = true
			p.Integrity.Violations = append(p.Integrity.Violations, model.Violation{
				Kind:       model.ViolationVMSuspected,
				Detail:     reason,
				RecordedAt: s.now(),
			})
		}
		state = s.copyState(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if suspected {
		logger.Info(ctx, "vm suspected",
			zap.String("exam_code", code),
			zap.String("participant", name),
			zap.String("reason", reason))
		s.mirror(ctx, code, name, model.Violation{
			Kind:       model.ViolationVMSuspected,
			Detail:     reason,
			RecordedAt: s.now(),
		})
	}
	return &state, nil
}

func (s *IntegrityService) evaluateVM(input VMCheckInput) (bool, string) {
	renderer := strings.ToLower(input.GPURenderer)
	for _, vendor := range s.cfg.VMVendorSubstrings {
		if strings.Contains(renderer, vendor) {
			return true, "gpu renderer matches " + vendor
		}
	}
	if input.CPUCores > 0 && input.CPUCores < s.cfg.MinCPUCores {
		return true, "low cpu core count"
	}
	if input.MemoryGB > 0 && input.MemoryGB < s.cfg.MinMemoryGB {
		return true, "low reported memory"
	}
	return false, ""
}

// ViolationInput is one violation report from an exam client.
type ViolationInput struct {
	Kind   model.ViolationKind `json:"kind"`
	Detail string              `json:"detail"`
}

// ReportViolation records a violation on the participant and escalates the
// violation state. Focus loss warns until the configured threshold, then
// terminates; every other kind only warns or flags, no matter how often
// reported.
func (s *IntegrityService) ReportViolation(ctx context.Context, code, name string, input ViolationInput) (*model.IntegrityState, error) {
	switch input.Kind {
	case model.ViolationFocusLost, model.ViolationFullscreenExit, model.ViolationDevtoolsOpen:
	default:
		return nil, appErr.New(appErr.UnknownViolationKind).WithDetail("kind", string(input.Kind))
	}

	var (
		state      model.IntegrityState
		terminated bool
	)
	err := s.store.Update(code, func(exam *model.Exam) error {
		p, ok := exam.Participants[name]
		if !ok {
			return appErr.New(appErr.ParticipantNotFound).WithDetail("name", name)
		}
		integ := &p.Integrity
		integ.Violations = append(integ.Violations, model.Violation{
			Kind:       input.Kind,
			Detail:     input.Detail,
			RecordedAt: s.now(),
		})
		switch input.Kind {
		case model.ViolationFocusLost:
			integ.FocusLostCount++
			if integ.FocusLostCount >= s.cfg.FocusLossThreshold {
				if integ.ViolationState != model.ViolationTerminated {
					terminated = true
				}
				integ.ViolationState = model.ViolationTerminated
			} else if integ.ViolationState == model.ViolationNone {
				integ.ViolationState = model.ViolationWarned
			}
		case model.ViolationFullscreenExit:
			integ.FullscreenExitCount++
			if integ.ViolationState == model.ViolationNone {
				integ.ViolationState = model.ViolationWarned
			}
		case model.ViolationDevtoolsOpen:
			integ.DevtoolsDetected = true
			if integ.ViolationState == model.ViolationNone {
				integ.ViolationState = model.ViolationWarned
			}
		}
		state = s.copyState(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mirror(ctx, code, name, model.Violation{
		Kind:       input.Kind,
		Detail:     input.Detail,
		RecordedAt: s.now(),
	})
	s.events.Publish(ctx, model.Event{
		Type:        model.EventIntegrityViolation,
		ExamCode:    code,
		Participant: name,
		Data: map[string]interface{}{
			"kind":   string(input.Kind),
			"detail": input.Detail,
		},
	})
	if terminated {
		logger.Warn(ctx, "participant terminated for repeated focus loss",
			zap.String("exam_code", code),
			zap.String("participant", name),
			zap.Int("focus_lost_count", state.FocusLostCount))
		s.events.Publish(ctx, model.Event{
			Type:        model.EventParticipantTerminated,
			ExamCode:    code,
			Participant: name,
			Data: map[string]interface{}{
				"focus_lost_count": state.FocusLostCount,
			},
		})
	}
	return &state, nil
}

// DevtoolsClosed clears the devtools-open flag when the client reports the
// panel closed again. Recorded violations and the violation state stand.
func (s *IntegrityService) DevtoolsClosed(ctx context.Context, code, name string) (*model.IntegrityState, error) {
	var state model.IntegrityState
	err := s.store.Update(code, func(exam *model.Exam) error {
		p, ok := exam.Participants[name]
		if !ok {
			return appErr.New(appErr.ParticipantNotFound).WithDetail("name", name)
		}
		p.Integrity.DevtoolsDetected = false
		state = s.copyState(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// State returns the participant's integrity state plus recent mirrored
// telemetry, if a telemetry log is configured.
func (s *IntegrityService) State(ctx context.Context, code, name string) (*model.IntegrityState, []model.Violation, error) {
	exam, err := s.store.Snapshot(code)
	if err != nil {
		return nil, nil, err
	}
	p, ok := exam.Participants[name]
	if !ok {
		return nil, nil, appErr.New(appErr.ParticipantNotFound).WithDetail("name", name)
	}
	var recent []model.Violation
	if s.telemetry != nil {
		if mirrored, err := s.telemetry.Recent(ctx, code, name, 20); err == nil {
			recent = mirrored
		}
	}
	state := p.Integrity
	return &state, recent, nil
}

// Policy is the client-facing slice of the proctoring configuration.
type Policy struct {
	FocusLossThreshold     int      `json:"focus_loss_threshold"`
	DevtoolsPollIntervalMS int      `json:"devtools_poll_interval_ms"`
	DevtoolsPixelThreshold int      `json:"devtools_pixel_threshold"`
	VMVendorSubstrings     []string `json:"vm_vendor_substrings"`
	MinCPUCores            int      `json:"min_cpu_cores"`
	MinMemoryGB            int      `json:"min_memory_gb"`
}

// Policy returns the heuristic parameters clients should run with.
func (s *IntegrityService) Policy() Policy {
	return Policy{
		FocusLossThreshold:     s.cfg.FocusLossThreshold,
		DevtoolsPollIntervalMS: int(s.cfg.DevtoolsPollInterval / time.Millisecond),
		DevtoolsPixelThreshold: s.cfg.DevtoolsPixelThreshold,
		VMVendorSubstrings:     append([]string(nil), s.cfg.VMVendorSubstrings...),
		MinCPUCores:            s.cfg.MinCPUCores,
		MinMemoryGB:            s.cfg.MinMemoryGB,
	}
}

func (s *IntegrityService) copyState(p *model.Participant) model.IntegrityState {
	state := p.Integrity
	state.Violations = append([]model.Violation(nil), p.Integrity.Violations...)
	return state
}

func (s *IntegrityService) mirror(ctx context.Context, code, name string, v model.Violation) {
	if s.telemetry == nil {
		return
	}
	s.telemetry.Append(ctx, code, name, v)
}
