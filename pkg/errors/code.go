package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Exam lifecycle errors
// 12000-12999: Problem & test case errors
// 13000-13999: Submission & Scoring errors
// 14000-14999: Integrity & Proctoring errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	LockFailed ErrorCode = 10203

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Exam Lifecycle Errors (11000-11999) ==========

	// Exam basic (11000-11099)
	ExamNotFound      ErrorCode = 11000
	ExamCreateFailed  ErrorCode = 11001
	ExamCodeExhausted ErrorCode = 11002

	// State transitions (11100-11199)
	ExamNotWaiting     ErrorCode = 11100
	ExamNotActive      ErrorCode = 11101
	ExamCompleted      ErrorCode = 11102
	ExamNotJoinable    ErrorCode = 11103
	ProblemNotAttached ErrorCode = 11104

	// Admission (11200-11299)
	ExamFull             ErrorCode = 11200
	ParticipantNameTaken ErrorCode = 11201
	ParticipantNotFound  ErrorCode = 11202

	// ========== Problem & Test Case Errors (12000-12999) ==========

	ProblemInvalid      ErrorCode = 12000
	ProblemUploadFailed ErrorCode = 12001
	TestCaseMissing     ErrorCode = 12100
	TestCaseNoOutput    ErrorCode = 12101
	PointsInvalid       ErrorCode = 12102

	// ========== Submission & Scoring Errors (13000-13999) ==========

	SubmissionNotFound ErrorCode = 13000
	SubmissionRejected ErrorCode = 13001
	CodeTooLarge       ErrorCode = 13002
	LanguageNotAllowed ErrorCode = 13003

	// Execution collaborator (13100-13199)
	ExecutionFailed     ErrorCode = 13100
	ExecutorUnavailable ErrorCode = 13101
	ExecutionTimedOut   ErrorCode = 13102

	// ========== Integrity & Proctoring Errors (14000-14999) ==========

	ParticipantNotReady   ErrorCode = 14000
	AgreementNotAccepted  ErrorCode = 14001
	ParticipantTerminated ErrorCode = 14002
	UnknownViolationKind  ErrorCode = 14100
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError: "Cache operation failed",
	LockFailed: "Failed to acquire lock",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Exam
	ExamNotFound:      "Exam not found",
	ExamCreateFailed:  "Failed to create exam",
	ExamCodeExhausted: "Could not allocate a unique exam code",

	ExamNotWaiting:     "Exam has already started or finished",
	ExamNotActive:      "Exam is not active",
	ExamCompleted:      "Exam has ended",
	ExamNotJoinable:    "Exam cannot be joined in its current state",
	ProblemNotAttached: "Exam has no problem attached",

	ExamFull:             "Exam is full",
	ParticipantNameTaken: "Participant name already taken in this exam",
	ParticipantNotFound:  "Participant not found in this exam",

	// Problem
	ProblemInvalid:      "Invalid problem definition",
	ProblemUploadFailed: "Failed to upload problem",
	TestCaseMissing:     "Problem has no test cases",
	TestCaseNoOutput:    "At least one test case must have an expected output",
	PointsInvalid:       "Invalid test case points",

	// Submission
	SubmissionNotFound: "Submission not found",
	SubmissionRejected: "Submission rejected",
	CodeTooLarge:       "Code is too large",
	LanguageNotAllowed: "Language is not allowed for this problem",

	ExecutionFailed:     "Code execution failed",
	ExecutorUnavailable: "Code execution service unavailable",
	ExecutionTimedOut:   "Code execution timed out",

	// Integrity
	ParticipantNotReady:   "Participant has not completed proctoring checks",
	AgreementNotAccepted:  "Exam agreement has not been accepted",
	ParticipantTerminated: "Participant has been terminated for integrity violations",
	UnknownViolationKind:  "Unknown violation kind",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == ExamNotFound, c == ParticipantNotFound, c == SubmissionNotFound:
		return 404
	case c >= 11100 && c < 11200: // state transition errors
		return 409
	case c == ExamFull, c == ParticipantNameTaken:
		return 409
	case c == ParticipantNotReady, c == AgreementNotAccepted, c == ParticipantTerminated:
		return 403
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable, c == ExecutorUnavailable:
		return 503
	case c >= 10300 && c < 10400: // validation errors
		return 400
	case c >= 12000 && c < 13000: // problem definition errors
		return 400
	case c == InvalidParams, c == LanguageNotAllowed, c == CodeTooLarge, c == UnknownViolationKind:
		return 400
	default:
		return 500
	}
}

// IsStateError reports whether the code describes an operation that is legal
// in general but illegal in the exam's current lifecycle state. Callers may
// retry such operations after the state changes.
func (c ErrorCode) IsStateError() bool {
	return c >= 11100 && c < 11200
}
