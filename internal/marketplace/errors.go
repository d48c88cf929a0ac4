package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error is an API-level rejection from the marketplace.
type Error struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("marketplace: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("marketplace: %s (http %d)", e.Message, e.StatusCode)
}

// IsRateLimited reports whether the error is a 429-class rejection.
// Rate-limited calls must wait for the next scheduled pass.
func IsRateLimited(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

// IsRetryable reports whether the error is transient: rate limits, upstream
// 5xx, network failures and timeouts. Retryable errors are recorded as
// failed and picked up again on the next pass.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
