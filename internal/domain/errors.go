package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrTooSmall is returned when a downloaded file is at or below the
	// minimum viable size and was discarded.
	ErrTooSmall = errors.New("downloaded file too small")

	// ErrTooManyRedirects is returned when the redirect chain exceeds the depth bound.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrRedirectLoop is returned when a redirect resolves back to itself.
	ErrRedirectLoop = errors.New("redirect loop detected")

	// ErrNoDirectLink is returned when no direct media URL could be found in a response.
	ErrNoDirectLink = errors.New("no direct media link found")

	// ErrAllMirrorsExhausted is returned when every mirror of a strategy failed.
	ErrAllMirrorsExhausted = errors.New("all mirrors exhausted")

	// ErrAllStrategiesExhausted is returned when the full strategy chain failed.
	ErrAllStrategiesExhausted = errors.New("all download strategies exhausted")

	// ErrUnsupportedURL is returned for inputs that are not http(s) URLs.
	ErrUnsupportedURL = errors.New("unsupported URL")

	// ErrTimeout is returned when the platform download deadline elapsed.
	ErrTimeout = errors.New("download timed out")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")
)

// HTTPStatusError reports a non-200 response from a media host.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// DownloadError wraps an error with platform and operation context.
type DownloadError struct {
	Platform Platform
	Op       string
	Err      error
}

func (e *DownloadError) Error() string {
	if e.Platform != "" {
		return e.Op + " [" + e.Platform.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new DownloadError.
func NewDownloadError(platform Platform, op string, err error) *DownloadError {
	return &DownloadError{
		Platform: platform,
		Op:       op,
		Err:      err,
	}
}
