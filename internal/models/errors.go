package models

import "errors"

// Common validation errors for models.
var (
	// ErrTitleRequired indicates a required title field is empty.
	ErrTitleRequired = errors.New("title is required")

	// ErrSlugRequired indicates a required slug field is empty.
	ErrSlugRequired = errors.New("slug is required")

	// ErrVideoIDRequired indicates a required video ID field is zero.
	ErrVideoIDRequired = errors.New("video_id is required")

	// ErrVariantNameRequired indicates a required variant name field is empty.
	ErrVariantNameRequired = errors.New("variant name is required")

	// ErrInvalidStage indicates a malformed stage value.
	ErrInvalidStage = errors.New("invalid stage")
)
