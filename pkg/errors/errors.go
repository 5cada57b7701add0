package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents page or image fetch errors (network, timeout, bad status)
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeImage represents image processing errors
	ErrorTypeImage ErrorType = "image"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeInput represents input file validation errors
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeStorage represents run store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeArchive represents archive packaging errors
	ErrorTypeArchive ErrorType = "archive"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a pipeline-specific error with the URL it belongs to
type ScrapeError struct {
	Type    ErrorType
	URL     string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.URL == "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s - %v", e.Type, e.Message, e.Err)
		}
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.URL, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsItemLevel returns true if the error should be recorded as a per-item
// failure instead of failing the whole run.
func (e *ScrapeError) IsItemLevel() bool {
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeParsing, ErrorTypeImage, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, url, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		URL:     url,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(url, message string, err error) *ScrapeError {
	return New(ErrorTypeFetch, url, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(url, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, url, message, err)
}

// NewImage creates a new image processing error
func NewImage(url, message string, err error) *ScrapeError {
	return New(ErrorTypeImage, url, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(url string, blockedFor time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", blockedFor)
	return New(ErrorTypeRateLimit, url, message, nil)
}

// NewInput creates a new input validation error
func NewInput(message string, err error) *ScrapeError {
	return New(ErrorTypeInput, "", message, err)
}

// NewStorage creates a new run store error
func NewStorage(message string, err error) *ScrapeError {
	return New(ErrorTypeStorage, "", message, err)
}

// NewArchive creates a new archive error
func NewArchive(message string, err error) *ScrapeError {
	return New(ErrorTypeArchive, "", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}
