package service_test

import (
	"context"
	"testing"

	"examhall/internal/exam/model"
	"examhall/internal/exam/service"
	appErr "examhall/pkg/errors"
)

func newIntegrity(env *testEnv) *service.IntegrityService {
	svc := service.NewIntegrityService(env.store, nil, nil, service.IntegrityConfig{})
	svc.SetClock(env.clock.Now)
	return svc
}

func TestReadinessLatchIsMonotonic(t *testing.T) {
	env := newTestEnv(t, nil)
	code := createExam(t, env)
	if _, err := env.lifecycle.Join(context.Background(), code, "bob"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	integ := newIntegrity(env)
	ctx := context.Background()

	state, err := integ.SetReadiness(ctx, code, "bob", service.ReadinessInput{
		FullscreenActive:  true,
		AgreementAccepted: true,
	})
	if err != nil {
		t.Fatalf("set readiness failed: %v", err)
	}
	if state.Ready() {
		t.Fatalf("partial latch must not be ready")
	}

	// A later report with false fields must not unset earlier checks.
	state, err = integ.SetReadiness(ctx, code, "bob", service.ReadinessInput{
		VMCheckDone:             true,
		CopyPasteBlockInstalled: true,
		FocusMonitorInstalled:   true,
	})
	if err != nil {
		t.Fatalf("set readiness failed: %v", err)
	}
	if !state.Latch.FullscreenActive {
		t.Fatalf("latch flag was reset by a later report")
	}
	if !state.Ready() {
		t.Fatalf("complete latch with agreement must be ready")
	}
}

func TestReadinessRequiresAgreement(t *testing.T) {
	env := newTestEnv(t, nil)
	code := createExam(t, env)
	if _, err := env.lifecycle.Join(context.Background(), code, "bob"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	integ := newIntegrity(env)

	state, err := integ.SetReadiness(context.Background(), code, "bob", service.ReadinessInput{
		FullscreenActive:        true,
		VMCheckDone:             true,
		CopyPasteBlockInstalled: true,
		FocusMonitorInstalled:   true,
	})
	if err != nil {
		t.Fatalf("set readiness failed: %v", err)
	}
	if state.Ready() {
		t.Fatalf("complete latch without agreement must not be ready")
	}
}

func TestFocusLossEscalation(t *testing.T) {
	env := newTestEnv(t, nil)
	code := setupActiveExam(t, env, "bob")
	integ := newIntegrity(env)
	ctx := context.Background()

	report := func() *model.IntegrityState {
		state, err := integ.ReportViolation(ctx, code, "bob", service.ViolationInput{
			Kind:   model.ViolationFocusLost,
			Detail: "window blurred",
		})
		if err != nil {
			t.Fatalf("report violation failed: %v", err)
		}
		return state
	}

	if state := report(); state.ViolationState != model.ViolationWarned {
		t.Fatalf("first focus loss: expected warned, got %s", state.ViolationState)
	}
	if state := report(); state.ViolationState != model.ViolationWarned {
		t.Fatalf("second focus loss: expected warned, got %s", state.ViolationState)
	}
	state := report()
	if state.ViolationState != model.ViolationTerminated {
		t.Fatalf("third focus loss: expected terminated, got %s", state.ViolationState)
	}
	if state.FocusLostCount != 3 {
		t.Fatalf("expected 3 recorded focus losses, got %d", state.FocusLostCount)
	}
}

func TestTerminatedParticipantCannotSubmit(t *testing.T) {
	env := newTestEnv(t, echoRunner())
	code := setupActiveExam(t, env, "bob")
	integ := newIntegrity(env)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := integ.ReportViolation(ctx, code, "bob", service.ViolationInput{
			Kind: model.ViolationFocusLost,
		}); err != nil {
			t.Fatalf("report violation failed: %v", err)
		}
	}

	_, err := env.scoring.Submit(ctx, service.SubmitInput{
		ExamCode:        code,
		ParticipantName: "bob",
		Language:        "python",
		SourceCode:      "print(1)",
	})
	if !appErr.Is(err, appErr.ParticipantTerminated) {
		t.Fatalf("expected ParticipantTerminated, got %v", err)
	}
}

func TestFullscreenExitNeverTerminates(t *testing.T) {
	env := newTestEnv(t, nil)
	code := setupActiveExam(t, env, "bob")
	integ := newIntegrity(env)
	ctx := context.Background()

	var state *model.IntegrityState
	var err error
	for i := 0; i < 10; i++ {
		state, err = integ.ReportViolation(ctx, code, "bob", service.ViolationInput{
			Kind: model.ViolationFullscreenExit,
		})
		if err != nil {
			t.Fatalf("report violation failed: %v", err)
		}
	}
	if state.ViolationState != model.ViolationWarned {
		t.Fatalf("fullscreen exits must only warn, got %s", state.ViolationState)
	}
	if state.FullscreenExitCount != 10 {
		t.Fatalf("expected 10 fullscreen exits recorded, got %d", state.FullscreenExitCount)
	}
}

func TestDevtoolsDetectionTogglesButNeverTerminates(t *testing.T) {
	env := newTestEnv(t, nil)
	code := setupActiveExam(t, env, "bob")
	integ := newIntegrity(env)
	ctx := context.Background()

	state, err := integ.ReportViolation(ctx, code, "bob", service.ViolationInput{
		Kind: model.ViolationDevtoolsOpen,
	})
	if err != nil {
		t.Fatalf("report violation failed: %v", err)
	}
	if !state.DevtoolsDetected {
		t.Fatalf("expected devtools flag set")
	}
	if state.ViolationState != model.ViolationWarned {
		t.Fatalf("devtools must only warn, got %s", state.ViolationState)
	}

	state, err = integ.DevtoolsClosed(ctx, code, "bob")
	if err != nil {
		t.Fatalf("devtools closed failed: %v", err)
	}
	if state.DevtoolsDetected {
		t.Fatalf("expected devtools flag cleared")
	}
	if len(state.Violations) != 1 {
		t.Fatalf("closing devtools must not erase the recorded violation")
	}
}

func TestVMSuspicionIsInformationalOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	code := createExam(t, env)
	if _, err := env.lifecycle.Join(context.Background(), code, "bob"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	integ := newIntegrity(env)

	state, err := integ.ReportVMCheck(context.Background(), code, "bob", service.VMCheckInput{
		GPURenderer: "VMware SVGA 3D",
		CPUCores:    8,
		MemoryGB:    16,
	})
	if err != nil {
		t.Fatalf("vm check failed: %v", err)
	}
	if !state.VMSuspected {
		t.Fatalf("expected VM suspicion for vmware renderer")
	}
	if !state.Latch.VMCheckDone {
		t.Fatalf("vm check must complete the latch flag even when suspicious")
	}
	if state.ViolationState != model.ViolationNone {
		t.Fatalf("vm suspicion must not escalate the violation state, got %s", state.ViolationState)
	}
}

func TestVMCheckCleanEnvironment(t *testing.T) {
	env := newTestEnv(t, nil)
	code := createExam(t, env)
	if _, err := env.lifecycle.Join(context.Background(), code, "bob"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	integ := newIntegrity(env)

	state, err := integ.ReportVMCheck(context.Background(), code, "bob", service.VMCheckInput{
		GPURenderer: "NVIDIA GeForce RTX 4070",
		CPUCores:    12,
		MemoryGB:    32,
	})
	if err != nil {
		t.Fatalf("vm check failed: %v", err)
	}
	if state.VMSuspected {
		t.Fatalf("clean environment must not be flagged")
	}
	if !state.Latch.VMCheckDone {
		t.Fatalf("vm check must complete the latch flag")
	}
}

func TestUnknownViolationKindRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	code := setupActiveExam(t, env, "bob")
	integ := newIntegrity(env)

	_, err := integ.ReportViolation(context.Background(), code, "bob", service.ViolationInput{
		Kind: "telepathy",
	})
	if !appErr.Is(err, appErr.UnknownViolationKind) {
		t.Fatalf("expected UnknownViolationKind, got %v", err)
	}
}

func TestIntegrityUnknownParticipant(t *testing.T) {
	env := newTestEnv(t, nil)
	code := createExam(t, env)
	integ := newIntegrity(env)

	_, err := integ.SetReadiness(context.Background(), code, "ghost", service.ReadinessInput{})
	if !appErr.Is(err, appErr.ParticipantNotFound) {
		t.Fatalf("expected ParticipantNotFound, got %v", err)
	}
}

func TestPolicyMirrorsConfig(t *testing.T) {
	env := newTestEnv(t, nil)
	integ := newIntegrity(env)

	policy := integ.Policy()
	if policy.FocusLossThreshold != 3 {
		t.Fatalf("expected default threshold 3, got %d", policy.FocusLossThreshold)
	}
	if policy.DevtoolsPollIntervalMS != 500 {
		t.Fatalf("expected 500ms poll interval, got %d", policy.DevtoolsPollIntervalMS)
	}
	if !containsString(policy.VMVendorSubstrings, "vmware") {
		t.Fatalf("expected vmware in vendor substrings")
	}
}
