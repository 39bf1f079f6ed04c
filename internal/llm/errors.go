package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrRateLimitExceeded is matched by every rate limit failure.
	ErrRateLimitExceeded = errors.New("rate limit exceeded, please try again later")
	// ErrTokenLimitExceeded means the reply was cut off at max_tokens.
	ErrTokenLimitExceeded = errors.New("response truncated: exceeded maximum token limit")
	// ErrInvalidModel means the server does not know the requested model.
	ErrInvalidModel = errors.New("invalid model")
)

// APIError is an error reported by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return "API error: " + e.Message
}

// RateLimitError represents a rate limit error with retry information.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return ErrRateLimitExceeded.Error()
	}
	return "rate limit exceeded: " + e.Message
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// IsLongWait returns true if the retry wait is too long for automatic retry.
func (e *RateLimitError) IsLongWait() bool {
	return e.RetryAfter > 2*time.Minute
}

type errorResponse struct {
	Error *errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// parseErrorResponse turns a non-2xx response into a typed error.
func parseErrorResponse(status int, body []byte, headers http.Header) error {
	var detail errorDetail
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		detail = *parsed.Error
	} else {
		detail.Message = strings.TrimSpace(string(body))
	}
	if detail.Message == "" {
		detail.Message = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests || detail.Code == "rate_limit_exceeded":
		return &RateLimitError{
			Message:    detail.Message,
			RetryAfter: parseRetryAfter(headers.Get("Retry-After")),
		}
	case detail.Code == "model_not_found":
		return fmt.Errorf("%w: %s", ErrInvalidModel, detail.Message)
	}
	return &APIError{StatusCode: status, Code: detail.Code, Message: detail.Message}
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
