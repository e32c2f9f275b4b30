package domain

import "errors"

var (
	// ErrMalformedPayload is returned when a question payload cannot be decoded into a question set.
	ErrMalformedPayload = errors.New("malformed question payload")
	// ErrQuestionSetNotFound indicates the payload source has no record for a set id.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrSessionNotFound is returned when a practice session has not been started or was closed.
	ErrSessionNotFound = errors.New("practice session not found")
	// ErrSessionComplete is returned for answer/check calls after the session reached its summary.
	ErrSessionComplete = errors.New("practice session already complete")
	// ErrCheckUnavailable is returned when check is requested without a usable answer.
	ErrCheckUnavailable = errors.New("check unavailable for current answer")
	// ErrQuestionOutOfRange indicates a question reference points past the end of its set.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrEmptyWorkingSet is returned when a session is started with no questions to practice.
	ErrEmptyWorkingSet = errors.New("working set is empty")
	// ErrExternalService wraps failures of the favorite services.
	ErrExternalService = errors.New("external service failure")
)
