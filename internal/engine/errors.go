package engine

// admissionRejectedError signals inbound queue overflow for 429 mapping.
type admissionRejectedError struct{}

func (admissionRejectedError) Error() string { return "admission rejected: inbound queue full" }

// ErrAdmissionRejected constructs an admissionRejectedError.
func ErrAdmissionRejected() error { return admissionRejectedError{} }

// IsAdmissionRejected reports whether err indicates backpressure (return 429).
func IsAdmissionRejected(err error) bool {
	_, ok := err.(admissionRejectedError)
	return ok
}

// modelNotFoundError signals that a dispatch target is absent from the registry.
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates a missing model name.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// runtimeError wraps an opaque backend failure with the model that produced it.
type runtimeError struct {
	model string
	cause error
}

func (e runtimeError) Error() string { return "backend " + e.model + ": " + e.cause.Error() }

func (e runtimeError) Unwrap() error { return e.cause }

// ErrRuntime wraps a backend failure.
func ErrRuntime(model string, cause error) error { return runtimeError{model: model, cause: cause} }

// IsRuntime reports whether err is a wrapped backend failure.
func IsRuntime(err error) bool {
	_, ok := err.(runtimeError)
	return ok
}

// streamAbortedError marks a stream that terminated after frames were sent;
// no structured error body can be substituted at that point. Client
// disconnects surface this way and are logged as normal terminations.
type streamAbortedError struct{ cause error }

func (e streamAbortedError) Error() string { return "stream aborted: " + e.cause.Error() }

func (e streamAbortedError) Unwrap() error { return e.cause }

// ErrStreamAborted constructs a streamAbortedError.
func ErrStreamAborted(cause error) error { return streamAbortedError{cause: cause} }

// IsStreamAborted reports whether err marks a mid-stream termination.
func IsStreamAborted(err error) bool {
	_, ok := err.(streamAbortedError)
	return ok
}
