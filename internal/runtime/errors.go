package runtime

// invalidFormatError signals that a model source failed header/format
// validation (e.g. bad GGUF magic) and was not committed.
type invalidFormatError struct{ msg string }

func (e invalidFormatError) Error() string { return e.msg }

// ErrInvalidFormat constructs an invalidFormatError.
func ErrInvalidFormat(msg string) error { return invalidFormatError{msg: msg} }

// IsInvalidFormat reports whether err indicates a rejected model format.
func IsInvalidFormat(err error) bool {
	_, ok := err.(invalidFormatError)
	return ok
}

// sourceUnavailableError signals that a model source could not be opened.
type sourceUnavailableError struct{ msg string }

func (e sourceUnavailableError) Error() string { return e.msg }

// ErrSourceUnavailable constructs a sourceUnavailableError.
func ErrSourceUnavailable(msg string) error { return sourceUnavailableError{msg: msg} }

// IsSourceUnavailable reports whether err indicates an unreadable source.
func IsSourceUnavailable(err error) bool {
	_, ok := err.(sourceUnavailableError)
	return ok
}

// backendUnavailableError signals a missing native dependency (e.g. a binary
// built without llama support) so the HTTP layer can return 503 instead of 500.
type backendUnavailableError struct{ msg string }

func (e backendUnavailableError) Error() string { return e.msg }

// ErrBackendUnavailable constructs a backendUnavailableError.
func ErrBackendUnavailable(msg string) error { return backendUnavailableError{msg: msg} }

// IsBackendUnavailable reports whether err indicates a missing runtime dependency.
func IsBackendUnavailable(err error) bool {
	_, ok := err.(backendUnavailableError)
	return ok
}
