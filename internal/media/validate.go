// Package media provides upload validation and slug derivation.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationReason classifies why an upload was rejected.
type ValidationReason string

const (
	// ReasonTooLarge indicates the upload exceeds the configured size limit.
	ReasonTooLarge ValidationReason = "too_large"
	// ReasonUnsupportedFormat indicates an unrecognized container format.
	ReasonUnsupportedFormat ValidationReason = "unsupported_format"
	// ReasonEmptyFile indicates a zero-byte upload.
	ReasonEmptyFile ValidationReason = "empty_file"
)

// ValidationError describes a rejected upload. It is returned synchronously
// at intake; no job is created for an invalid upload.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// supportedExtensions lists the accepted container file extensions.
var supportedExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".mpg":  true,
	".mpeg": true,
	".ts":   true,
	".wmv":  true,
	".flv":  true,
}

// ValidateUpload checks an upload's declared size and filename before any
// processing happens. It does no I/O.
func ValidateUpload(filename string, size, maxSize int64) *ValidationError {
	if size <= 0 {
		return &ValidationError{
			Reason:  ReasonEmptyFile,
			Message: "uploaded file is empty",
		}
	}
	if size > maxSize {
		return &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("uploaded file exceeds the %d byte limit", maxSize),
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtensions[ext] {
		return &ValidationError{
			Reason:  ReasonUnsupportedFormat,
			Message: fmt.Sprintf("unsupported file format %q", ext),
		}
	}

	return nil
}

// SupportedExtension reports whether the extension (with leading dot) is accepted.
func SupportedExtension(ext string) bool {
	return supportedExtensions[strings.ToLower(ext)]
}
