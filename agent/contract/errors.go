package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
)

var (
	// ErrInvalidPayload rejects a trigger payload before any run is created.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrMissingClassification means a node that needs a classification ran before classify.
	ErrMissingClassification = errors.New("missing classification")

	// ErrPersistence wraps every failed store write.
	ErrPersistence = errors.New("persistence error")

	ErrUnknownAgent         = errors.New("unknown agent")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrRunNotRunning        = errors.New("run is not running")
	ErrCheckpointRegression = errors.New("checkpoint sequence regressed")
	ErrPostRunAction        = errors.New("post-run action failed")
)
