package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrProviderNotFound = errors.New("provider not found")
)

// FailureKind classifies a stage failure so callers can decide whether to
// retry, fix configuration, or surface a hard error.
type FailureKind string

const (
	KindPreconditionNotMet  FailureKind = "precondition_not_met"
	KindUnsupportedProvider FailureKind = "unsupported_provider"
	KindProviderUnavailable FailureKind = "provider_unavailable"
	KindEmptyResponse       FailureKind = "empty_response"
	KindMalformedResponse   FailureKind = "malformed_response"
	KindTransientProvider   FailureKind = "transient_provider_error"
	KindInternal            FailureKind = "internal_error"
)

// PreconditionError reports that a stage was asked to run before its
// prerequisites were in place.
type PreconditionError struct {
	Stage   Stage
	Missing []string
}

func (e *PreconditionError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("stage %s: preconditions not met", e.Stage)
	}
	return fmt.Sprintf("stage %s: missing %s", e.Stage, strings.Join(e.Missing, ", "))
}

// UnsupportedProviderError reports a provider name with no registered
// constructor. Registered carries the currently known names.
type UnsupportedProviderError struct {
	Name       string
	Registered []string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported AI provider %q, registered providers: %s",
		e.Name, strings.Join(e.Registered, ", "))
}

// ProviderUnavailableError reports a provider whose configuration is missing
// or inactive. It is raised before any network call.
type ProviderUnavailableError struct {
	Name   string
	Reason string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("AI provider %q unavailable: %s", e.Name, e.Reason)
}

// EmptyResponseError reports an empty generation result. Empty is never valid
// output for any stage.
type EmptyResponseError struct {
	Operation string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s: provider returned an empty response", e.Operation)
}

// MalformedResponseError reports text that could not be parsed into the
// expected structure. Raw carries the original response so the caller can log
// or surface it; the parser never guesses a structure.
type MalformedResponseError struct {
	Operation string
	Raw       string
}

func (e *MalformedResponseError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("%s: response is not valid JSON: %s", e.Operation, raw)
}

// TransientProviderError wraps network, timeout and rate-limit failures.
// Callers may retry with backoff; the pipeline does not retry internally.
type TransientProviderError struct {
	Provider string
	Err      error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("provider %s: transient failure: %v", e.Provider, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// FailureKindOf maps an error from a stage transition to the failure taxonomy.
func FailureKindOf(err error) FailureKind {
	var (
		pre    *PreconditionError
		unsup  *UnsupportedProviderError
		unav   *ProviderUnavailableError
		empty  *EmptyResponseError
		malf   *MalformedResponseError
		transi *TransientProviderError
	)
	switch {
	case errors.As(err, &pre):
		return KindPreconditionNotMet
	case errors.As(err, &unsup):
		return KindUnsupportedProvider
	case errors.As(err, &unav):
		return KindProviderUnavailable
	case errors.As(err, &empty):
		return KindEmptyResponse
	case errors.As(err, &malf):
		return KindMalformedResponse
	case errors.As(err, &transi):
		return KindTransientProvider
	default:
		return KindInternal
	}
}
