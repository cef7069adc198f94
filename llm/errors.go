// ABOUTME: Error hierarchy for the LLM client.
// ABOUTME: Defines structured error types with retryability for provider and configuration failures.

package llm

// SDKError is the base error type for all errors in the LLM client.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns false for the base SDKError. Subtypes override this.
func (e *SDKError) IsRetryable() bool {
	return false
}

// ProviderError represents an error returned by an LLM provider's API.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64 // seconds, from Retry-After when present
}

func (e *ProviderError) Error() string {
	return e.SDKError.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.SDKError.Unwrap()
}

// IsRetryable returns the Retryable flag set on the provider error.
func (e *ProviderError) IsRetryable() bool {
	return e.Retryable
}

// As enables errors.As to match SDKError from a ProviderError.
func (e *ProviderError) As(target any) bool {
	switch t := target.(type) {
	case **SDKError:
		*t = &e.SDKError
		return true
	default:
		return false
	}
}

// ConfigurationError represents a client misconfiguration (missing provider,
// missing credentials). Never retryable.
type ConfigurationError struct {
	SDKError
}

func (e *ConfigurationError) Error() string     { return e.SDKError.Error() }
func (e *ConfigurationError) Unwrap() error     { return e.SDKError.Unwrap() }
func (e *ConfigurationError) IsRetryable() bool { return false }

// providerErrorFromStatus builds a ProviderError classified by HTTP status.
// 429 and 5xx are retryable; everything else is terminal.
func providerErrorFromStatus(provider string, status int, message string, cause error) *ProviderError {
	return &ProviderError{
		SDKError:   SDKError{Message: message, Cause: cause},
		Provider:   provider,
		StatusCode: status,
		Retryable:  status == 429 || status >= 500,
	}
}
