package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"examhall/internal/exam/model"
	"examhall/internal/exam/repository"
	"examhall/internal/exam/runner"
	"examhall/internal/exam/service"
)

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced clock shared by the services under test.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testStart}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// scriptRunner executes via the given function. Grading tests script the
// executor instead of spawning one.
type scriptRunner struct {
	fn func(req runner.ExecuteRequest) (runner.ExecuteResult, error)
}

func (r scriptRunner) Execute(_ context.Context, req runner.ExecuteRequest) (runner.ExecuteResult, error) {
	return r.fn(req)
}

// echoRunner claims success and echoes stdin back as stdout, so a test case
// passes exactly when its expected output equals its input.
func echoRunner() runner.Runner {
	return scriptRunner{fn: func(req runner.ExecuteRequest) (runner.ExecuteResult, error) {
		return runner.ExecuteResult{Stdout: req.Stdin, ExitCode: 0}, nil
	}}
}

type testEnv struct {
	store     *repository.ExamStore
	clock     *fakeClock
	lifecycle *service.LifecycleService
	scoring   *service.ScoringService
}

func newTestEnv(t *testing.T, r runner.Runner) *testEnv {
	t.Helper()
	store := repository.NewExamStore()
	clock := newFakeClock()
	codes := repository.NewCodeAllocator(store, nil, 0, 0)
	lifecycle := service.NewLifecycleService(store, codes, nil, service.Limits{})
	lifecycle.SetClock(clock.Now)
	if r == nil {
		r = echoRunner()
	}
	scoring := service.NewScoringService(store, r, nil, nil, 0)
	scoring.SetClock(clock.Now)
	return &testEnv{
		store:     store,
		clock:     clock,
		lifecycle: lifecycle,
		scoring:   scoring,
	}
}

func testProblem() *model.Problem {
	return &model.Problem{
		Title:       "Sum of Two Numbers",
		Description: "Read two integers and print their sum.",
		Languages:   []string{"python", "go"},
		TotalPoints: 100,
		TestCases: []model.TestCase{
			{Input: "3", ExpectedOutput: "3", Description: "small", IsPublic: true, Points: 10},
			{Input: "7", ExpectedOutput: "7", Description: "medium", IsPublic: true, Points: 20},
			{Input: "11", ExpectedOutput: "11", Description: "hidden one", IsPublic: false, Points: 30},
			{Input: "19", ExpectedOutput: "19", Description: "hidden two", IsPublic: false, Points: 40},
		},
	}
}

// createExam drives the real create flow and returns the allocated code.
func createExam(t *testing.T, env *testEnv) string {
	t.Helper()
	exam, err := env.lifecycle.Create(context.Background(), service.CreateExamInput{
		Title:           "Algorithms Final",
		HostName:        "alice",
		DurationMinutes: 60,
		MaxParticipants: 10,
	})
	if err != nil {
		t.Fatalf("create exam failed: %v", err)
	}
	return exam.Code
}

// setupActiveExam creates an exam with a problem, joins the given
// participants and starts it.
func setupActiveExam(t *testing.T, env *testEnv, names ...string) string {
	t.Helper()
	code := createExam(t, env)
	if _, err := env.lifecycle.UploadProblem(context.Background(), code, testProblem()); err != nil {
		t.Fatalf("upload problem failed: %v", err)
	}
	for _, name := range names {
		if _, err := env.lifecycle.Join(context.Background(), code, name); err != nil {
			t.Fatalf("join %s failed: %v", name, err)
		}
	}
	if _, err := env.lifecycle.Start(context.Background(), code); err != nil {
		t.Fatalf("start exam failed: %v", err)
	}
	return code
}

func submitFor(t *testing.T, env *testEnv, code, name, source string) *model.Submission {
	t.Helper()
	sub, err := env.scoring.Submit(context.Background(), service.SubmitInput{
		ExamCode:        code,
		ParticipantName: name,
		Language:        "python",
		SourceCode:      source,
	})
	if err != nil {
		t.Fatalf("submit for %s failed: %v", name, err)
	}
	return sub
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
