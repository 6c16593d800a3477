package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDecode      Category = "decode"
	CategoryDimension   Category = "dimension"
	CategoryEncode      Category = "encode"
	CategoryCompression Category = "compression"
	CategoryInput       Category = "input"
	CategoryPipeline    Category = "pipeline"
	CategoryStorage     Category = "storage"
	CategoryFetch       Category = "fetch"
	CategoryConfig      Category = "config"
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.  Inner categories stay visible
// to IsCategory.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// Errorf builds a categorised error from a format string.
func Errorf(category Category, op string, format string, args ...any) *ProcessingError {
	return New(category, op, fmt.Errorf(format, args...))
}

// CategoryOf returns the category of the outermost ProcessingError in err's
// chain, or "" when err is not categorised.
func CategoryOf(err error) Category {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// IsCategory reports whether any ProcessingError in err's chain belongs to
// the given category.
func IsCategory(err error, cat Category) bool {
	for err != nil {
		var pe *ProcessingError
		if !errors.As(err, &pe) {
			return false
		}
		if pe.Category == cat {
			return true
		}
		err = pe.Err
	}
	return false
}

// IsDecodeError reports whether err is a decode failure.
func IsDecodeError(err error) bool { return IsCategory(err, CategoryDecode) }

// IsInvalidDimension reports whether err is a non-positive or out-of-bounds
// dimension failure.
func IsInvalidDimension(err error) bool { return IsCategory(err, CategoryDimension) }

// IsEncodeError reports whether err is an encoder failure.
func IsEncodeError(err error) bool { return IsCategory(err, CategoryEncode) }

// IsCompressionError reports whether err is a failed size-targeted search.
func IsCompressionError(err error) bool { return IsCategory(err, CategoryCompression) }

// UserMessage returns a short message suitable for showing to an end user.
func UserMessage(err error) string {
	switch CategoryOf(err) {
	case CategoryDecode, CategoryFetch:
		return "The selected file could not be read as an image. Please choose another file."
	case CategoryDimension:
		return "The requested width and height must be positive and inside the image."
	case CategoryEncode:
		return "The image could not be saved in the requested format."
	case CategoryCompression:
		return "Could not reach the requested file size. Best effort is unavailable."
	case CategoryInput:
		return "One of the adjustment values is out of range."
	}
	return "An unexpected error occurred. Please try again."
}

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrEmptyInput        = errors.New("empty input")
	ErrEmptyOutput       = errors.New("encoder produced no data")
	ErrInvalidQuality    = errors.New("quality must be a finite value in [0,1]")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrInvalidTarget     = errors.New("invalid compression target")
	ErrNoCandidate       = errors.New("no encode attempt succeeded")
	ErrFetchFailed       = errors.New("fetch failed")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
)
