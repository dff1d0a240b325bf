package helpers

import (
	"fmt"
	"time"

	"price-stream/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type PriceStreamError struct {
	Message string
	Cause   error
}

func (e *PriceStreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PriceStreamError) Unwrap() error {
	return e.Cause
}

// TransportError - connect/handshake failure. The only error surfaced to
// callers of the stream; retrying is the caller's decision.
type TransportError struct{ PriceStreamError }

// DecodeError - malformed inbound frame. Recovered locally by dropping the
// frame; never surfaced past the read loop.
type DecodeError struct{ PriceStreamError }

// StaleEpochError - an async completion arrived after the session moved on.
// Recovered locally by discarding the completion.
type StaleEpochError struct{ PriceStreamError }

// StaleTickError - a tick whose trading day precedes the working candle.
// Recovered locally; the candle is left unchanged.
type StaleTickError struct{ PriceStreamError }

// ConfigurationError for invalid factory/config input.
type ConfigurationError struct{ PriceStreamError }

// NetworkError for history fetch failures.
type NetworkError struct{ PriceStreamError }

// -----------------------------------------------------------------------------

func NewTransportError(msg string, cause error) *TransportError {
	return &TransportError{PriceStreamError{Message: msg, Cause: cause}}
}

func NewNetworkError(msg string, cause error) *NetworkError {
	return &NetworkError{PriceStreamError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff. The stream never retries on its own; callers that
// want reconnect-style behavior wrap Connect with this.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger: log.Named("ErrorHandler"),
	}
}

// -----------------------------------------------------------------------------

// Handle logs an error with its context. Errors in this subsystem never
// crash the host process; logging is the terminal action for the recovered
// categories.
func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
