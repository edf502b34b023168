package services

import "errors"

var (
	// ErrContextUnavailable means the stored context could not be read; the
	// pipeline fell back to defaults and did not overwrite the stored blob.
	ErrContextUnavailable = errors.New("conversation context unavailable")
	// ErrContextNotPersisted means the merged context was used but not saved.
	ErrContextNotPersisted   = errors.New("conversation context not persisted")
	ErrTranscriptUnavailable = errors.New("conversation transcript unavailable")
	ErrEmptyMessage          = errors.New("message content is empty")
	ErrInvalidAction         = errors.New("invalid interaction action")
	ErrInvalidProduct        = errors.New("product name is required")
)
