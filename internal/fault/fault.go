package fault

import "fmt"

const (
	CodeValidation      = "VALIDATION"
	CodeProvider        = "PROVIDER"
	CodeProviderTimeout = "PROVIDER_TIMEOUT"
	CodeGeneration      = "GENERATION"
	CodeStorage         = "STORAGE"
	CodeUploadFailed    = "UPLOAD_FAILED"
	CodeListFailed      = "LIST_FAILED"
	CodeGetFailed       = "GET_FAILED"
	CodeDeleteFailed    = "DELETE_FAILED"
	CodeCleanupFailed   = "CLEANUP_FAILED"
	CodeNotFound        = "NOT_FOUND"
)

// CodedError is a typed error used for stable API mapping.
// Status and Raw carry upstream HTTP diagnostics when a remote
// service produced the failure.
type CodedError struct {
	Code    string
	Message string
	Cause   error
	Status  int
	Raw     string
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// New builds a CodedError without a cause.
func New(code, msg string) error {
	return &CodedError{Code: code, Message: msg}
}

// Newf builds a CodedError with a formatted message.
func Newf(code, format string, args ...any) error {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a CodedError around an underlying cause.
func Wrap(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}
