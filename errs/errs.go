// Package errs defines the error kinds shared by the pipeline stages.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindConfiguration Kind = "CONFIGURATION_ERROR"
	KindConnection    Kind = "CONNECTION_ERROR"
	KindQuery         Kind = "QUERY_ERROR"
	KindRender        Kind = "RENDER_ERROR"
	KindGeneration    Kind = "GENERATION_ERROR"
)

// Error is a classified failure. Stage is the pipeline stage that produced it, if any.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix = e.Stage + ":" + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindQuery}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Stage == ""
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Configuration(message string, cause error) *Error {
	return New(KindConfiguration, message, cause)
}

func Connection(message string, cause error) *Error {
	return New(KindConnection, message, cause)
}

func Query(message string, cause error) *Error {
	return New(KindQuery, message, cause)
}

func Render(message string, cause error) *Error {
	return New(KindRender, message, cause)
}

func Generation(message string, cause error) *Error {
	return New(KindGeneration, message, cause)
}

// WithStage tags err with a stage name. Unclassified errors are returned wrapped as-is.
func WithStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Stage != "" {
			return err
		}
		tagged := *e
		tagged.Stage = stage
		return &tagged
	}
	return fmt.Errorf("%s: %w", stage, err)
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindConnection:
		return http.StatusServiceUnavailable
	case KindQuery, KindRender:
		return http.StatusUnprocessableEntity
	case KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
