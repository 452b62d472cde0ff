package errors_test

import (
	stderrors "errors"
	"testing"

	appErr "examhall/pkg/errors"
)

func TestNewUsesDefaultMessage(t *testing.T) {
	err := appErr.New(appErr.ExamNotFound)
	if err.Code != appErr.ExamNotFound {
		t.Fatalf("expected code %d, got %d", appErr.ExamNotFound, err.Code)
	}
	if err.Error() != "Exam not found" {
		t.Fatalf("unexpected default message: %q", err.Error())
	}
}

func TestWithMessageAndDetail(t *testing.T) {
	err := appErr.New(appErr.RequiredFieldEmpty).
		WithMessage("title is required").
		WithDetail("field", "title")
	if err.Error() != "title is required" {
		t.Fatalf("custom message not applied: %q", err.Error())
	}
	if err.Details["field"] != "title" {
		t.Fatalf("detail not recorded: %v", err.Details)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := appErr.Wrap(cause, appErr.ExecutorUnavailable)
	if !stderrors.Is(err, cause) {
		t.Fatalf("wrapped error must unwrap to its cause")
	}
	if err.Code != appErr.ExecutorUnavailable {
		t.Fatalf("expected code %d, got %d", appErr.ExecutorUnavailable, err.Code)
	}
	if appErr.Wrap(nil, appErr.ExecutorUnavailable) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := appErr.New(appErr.ExamFull)
	if !appErr.Is(err, appErr.ExamFull) {
		t.Fatalf("Is must match the error's code")
	}
	if appErr.Is(err, appErr.ExamNotFound) {
		t.Fatalf("Is must not match a different code")
	}
	if appErr.Is(stderrors.New("plain"), appErr.ExamFull) {
		t.Fatalf("Is must reject non-coded errors")
	}
}

func TestGetCodeFallsBackToInternal(t *testing.T) {
	if got := appErr.GetCode(stderrors.New("boom")); got != appErr.InternalServerError {
		t.Fatalf("expected InternalServerError for plain error, got %d", got)
	}
	if got := appErr.GetCode(nil); got != appErr.Success {
		t.Fatalf("expected Success for nil error, got %d", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code appErr.ErrorCode
		want int
	}{
		{appErr.Success, 200},
		{appErr.ExamNotFound, 404},
		{appErr.ParticipantNotFound, 404},
		{appErr.ExamNotWaiting, 409},
		{appErr.ExamNotActive, 409},
		{appErr.ExamCompleted, 409},
		{appErr.ExamFull, 409},
		{appErr.ParticipantNameTaken, 409},
		{appErr.ParticipantTerminated, 403},
		{appErr.RequiredFieldEmpty, 400},
		{appErr.TestCaseMissing, 400},
		{appErr.LanguageNotAllowed, 400},
		{appErr.UnknownViolationKind, 400},
		{appErr.ExecutorUnavailable, 503},
		{appErr.InternalServerError, 500},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %d: expected HTTP %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestStateErrorRange(t *testing.T) {
	for _, code := range []appErr.ErrorCode{appErr.ExamNotWaiting, appErr.ExamNotActive, appErr.ExamCompleted, appErr.ProblemNotAttached} {
		if !code.IsStateError() {
			t.Fatalf("code %d must be a state error", code)
		}
	}
	if appErr.ExamNotFound.IsStateError() {
		t.Fatalf("ExamNotFound is not a state error")
	}
}
