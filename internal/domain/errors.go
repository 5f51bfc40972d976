package domain

import "errors"

// Sentinel errors used across the delivery pipeline. Handlers map these to
// HTTP statuses; everything else stays scoped to its cohort attempt.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrEmptyAttachment    = errors.New("empty attachment")
	ErrAttachmentTooLarge = errors.New("attachment too large")
	ErrRateLimited        = errors.New("rate limited")
)
