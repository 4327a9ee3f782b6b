package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	// Transient covers network failures, timeouts and throttling. Retryable.
	Transient Kind = iota
	// InvalidResponse means the service answered with a malformed or incomplete result set.
	InvalidResponse
	// FatalConfiguration aborts the whole run (bad credentials, unknown model).
	FatalConfiguration
	// MalformedDocument means fragment boundaries could not be determined.
	MalformedDocument
	// Invariant is raised when reassembly would change protected content.
	Invariant
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "TransientServiceError"
	case InvalidResponse:
		return "InvalidResponseError"
	case FatalConfiguration:
		return "FatalConfigurationError"
	case MalformedDocument:
		return "MalformedDocumentError"
	case Invariant:
		return "InvariantError"
	default:
		return "Unknown"
	}
}

// Error is the typed error shared by every engine component.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func Wrap(err error, kind Kind, message string) *Error {
	e := New(kind, message)
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var ctxParts []string
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the same request may succeed when repeated.
func Retryable(err error) bool {
	return Is(err, Transient)
}

// Aborts reports whether err must stop the whole run.
func Aborts(err error) bool {
	switch KindOf(err) {
	case FatalConfiguration, MalformedDocument:
		return true
	default:
		return false
	}
}

// Advice returns a hint for the user about how to resolve an error of the given kind.
func Advice(kind Kind) string {
	switch kind {
	case Transient:
		return "The translation service was unreachable or throttled; try again later or lower the batch concurrency"
	case InvalidResponse:
		return "The translation service returned an incomplete answer; try a smaller batch size"
	case FatalConfiguration:
		return "Please check LLM_API_KEY, LLM_MODEL and LLM_API_URL"
	case MalformedDocument:
		return "Please verify the notebook is valid nbformat JSON and every code fence is closed"
	case Invariant:
		return "Protected content would have changed; the affected translation was discarded"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}
