package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// TransientError marks a failure that may succeed on a later attempt:
// HTTP 408, 429 and 5xx responses, network errors and attempt timeouts.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient error (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient error: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that no retry can fix: rejected credentials,
// a missing API key, an unknown provider or an unusable endpoint.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsTransient reports whether err is, or wraps, a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// checkStatus maps a non-2xx HTTP status to the error taxonomy.
func checkStatus(op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	cause := fmt.Errorf("API error (status %d): %s", status, msg)
	switch {
	case status == 401 || status == 403:
		return &FatalError{Op: op, Err: fmt.Errorf("authentication error: %w", cause)}
	case status == 404:
		return &FatalError{Op: op, Err: fmt.Errorf("endpoint or model not found: %w", cause)}
	case status == 408 || status == 429 || status >= 500:
		return &TransientError{Op: op, StatusCode: status, Err: cause}
	default:
		return fmt.Errorf("%s: %w", op, cause)
	}
}

// transportError classifies a failure that happened before any HTTP status
// was received.
func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) && strings.Contains(ue.Err.Error(), "unsupported protocol scheme") {
		return &FatalError{Op: op, Err: err}
	}
	return &TransientError{Op: op, Err: err}
}
