package generation

import (
	"context"
	"errors"
	"fmt"
)

// ErrPollExhausted means the job did not finish within the poll policy.
var ErrPollExhausted = errors.New("job did not finish within the poll budget")

// ConfigError is raised before any network call when a provider lacks settings.
type ConfigError struct {
	Provider Kind
	Missing  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider is not configured: missing %s", e.Provider, e.Missing)
}

// TransportError covers non-2xx answers, aborted calls and timeouts.
// StatusCode is 0 when no response was received.
type TransportError struct {
	Op         string
	StatusCode int
	StatusText string
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: %d %s %s", e.Op, e.StatusCode, e.StatusText, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ContractError is a response that parsed but lacked an expected field.
type ContractError struct {
	Op       string
	Expected string
	Raw      string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s response missing %s: %s", e.Op, e.Expected, truncate(e.Raw, 512))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsContractError(err error) bool {
	var target *ContractError
	return errors.As(err, &target)
}

// Retryable reports whether running the same request again could succeed.
func Retryable(err error) bool {
	if err == nil || IsConfigError(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.StatusCode == 0 || transport.StatusCode == 429 || transport.StatusCode >= 500
	}
	return !IsContractError(err)
}
