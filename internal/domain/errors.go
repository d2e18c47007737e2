package domain

import "errors"

// Error kinds. Every client-facing error unwraps to exactly one of them.
var (
	ErrInvalid         = errors.New("invalid request")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("unavailable")
)

// Error is a client-facing failure with a human-readable message and optional
// detail fields that are merged into the JSON error body.
type Error struct {
	Kind    error
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Invalid builds a validation error.
func Invalid(msg string) *Error {
	return &Error{Kind: ErrInvalid, Message: msg}
}

// NotFound builds a not-found error.
func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Conflict builds a conflict error carrying optional details.
func Conflict(msg string, details map[string]any) *Error {
	return &Error{Kind: ErrConflict, Message: msg, Details: details}
}

// Forbidden builds an authorization error.
func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

var (
	// ErrQuizNotFound is returned when a quiz id does not resolve.
	ErrQuizNotFound = NotFound("Quiz not found")
	// ErrSkillNotFound is returned when a skill id does not resolve.
	ErrSkillNotFound = NotFound("Skill not found")
	// ErrQuestionNotFound is returned when a question id does not resolve.
	ErrQuestionNotFound = NotFound("Question not found")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = NotFound("User not found")
	// ErrAttemptNotFound is returned when an attempt id does not resolve.
	ErrAttemptNotFound = NotFound("Attempt not found")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = &Error{Kind: ErrUnauthenticated, Message: "Invalid credentials"}
	// ErrReportsUnavailable is returned when no SQL backend is configured.
	ErrReportsUnavailable = &Error{Kind: ErrUnavailable, Message: "Reports require the SQL backend"}
)

// MissingAnswers reports quiz questions left unanswered in a quiz-scoped submission.
func MissingAnswers(ids []int64) *Error {
	return &Error{Kind: ErrInvalid, Message: "Answer all questions", Details: map[string]any{"missing": ids}}
}

// MissingQuestions reports referenced question ids that do not exist.
func MissingQuestions(ids []int64) *Error {
	return &Error{Kind: ErrInvalid, Message: "Some questions were not found", Details: map[string]any{"missing": ids}}
}
