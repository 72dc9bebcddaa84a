// Package apperr defines the error taxonomy shared by adapters, the tool
// router, the LLM gateway and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes returned in the HTTP error envelope.
const (
	CodeUpstreamClient  = "UPSTREAM_CLIENT_ERROR"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUpstreamTimeout = "UPSTREAM_TIMEOUT"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeLLMService      = "LLM_SERVICE_ERROR"
	CodeLLMRateLimited  = "LLM_RATE_LIMITED"
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeToolFailed      = "TOOL_EXECUTION_FAILED"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
	CodeInvalidJSON     = "INVALID_JSON"
	CodeNotFound        = "NOT_FOUND"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// UpstreamClientError is a non-retryable 4xx from a content API.
type UpstreamClientError struct {
	Endpoint string
	Status   int
}

func (e *UpstreamClientError) Error() string {
	return fmt.Sprintf("API returned %d for %s", e.Status, e.Endpoint)
}

// UpstreamRateLimited is returned once 429 retries are exhausted.
type UpstreamRateLimited struct {
	RetryAfter float64
}

func (e *UpstreamRateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry after %gs", e.RetryAfter)
}

// UpstreamTimeout is returned once timeout retries are exhausted.
type UpstreamTimeout struct {
	Endpoint string
}

func (e *UpstreamTimeout) Error() string {
	return "request to " + e.Endpoint + " timed out"
}

// UpstreamError covers transport failures and exhausted 5xx retries.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// LLMServiceError is any non-429 failure from the language model upstream.
type LLMServiceError struct {
	Status  int
	Message string
}

func (e *LLMServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("LLM service error [%d]: %s", e.Status, e.Message)
	}
	return "LLM service error: " + e.Message
}

// LLMRateLimited is returned once 429 retries against the LLM are exhausted.
type LLMRateLimited struct {
	RetryAfter float64
}

func (e *LLMRateLimited) Error() string {
	return fmt.Sprintf("LLM rate limited, retry after %gs", e.RetryAfter)
}

// UnknownTool is returned when a tool name is not registered.
type UnknownTool struct {
	Name string
}

func (e *UnknownTool) Error() string {
	return "unknown tool: " + e.Name
}

// ToolExecutionFailed wraps any failure raised while running a tool.
type ToolExecutionFailed struct {
	Tool    string
	Message string
}

func (e *ToolExecutionFailed) Error() string {
	return fmt.Sprintf("Tool '%s' failed: %s", e.Tool, e.Message)
}

// InputValidationFailed is a request that failed validation.
type InputValidationFailed struct {
	Message string
}

func (e *InputValidationFailed) Error() string {
	return e.Message
}

// StatusOf maps an error onto the HTTP status the surface should use.
func StatusOf(err error) int {
	var (
		clientErr  *UpstreamClientError
		rateErr    *UpstreamRateLimited
		timeoutErr *UpstreamTimeout
		upErr      *UpstreamError
		llmErr     *LLMServiceError
		llmRate    *LLMRateLimited
		unknown    *UnknownTool
		toolErr    *ToolExecutionFailed
		inputErr   *InputValidationFailed
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rateErr), errors.As(err, &llmRate):
		return http.StatusTooManyRequests
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &clientErr), errors.As(err, &upErr), errors.As(err, &llmErr):
		return http.StatusBadGateway
	case errors.As(err, &unknown):
		return http.StatusBadRequest
	case errors.As(err, &toolErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the machine code for err.
func CodeOf(err error) string {
	var (
		clientErr  *UpstreamClientError
		rateErr    *UpstreamRateLimited
		timeoutErr *UpstreamTimeout
		upErr      *UpstreamError
		llmErr     *LLMServiceError
		llmRate    *LLMRateLimited
		unknown    *UnknownTool
		toolErr    *ToolExecutionFailed
		inputErr   *InputValidationFailed
	)
	switch {
	case errors.As(err, &inputErr):
		return CodeValidation
	case errors.As(err, &rateErr):
		return CodeRateLimited
	case errors.As(err, &llmRate):
		return CodeLLMRateLimited
	case errors.As(err, &timeoutErr):
		return CodeUpstreamTimeout
	case errors.As(err, &clientErr):
		return CodeUpstreamClient
	case errors.As(err, &upErr):
		return CodeUpstream
	case errors.As(err, &llmErr):
		return CodeLLMService
	case errors.As(err, &unknown):
		return CodeUnknownTool
	case errors.As(err, &toolErr):
		return CodeToolFailed
	default:
		return CodeInternal
	}
}
