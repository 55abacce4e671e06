package fallback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Reason classifies why a provider call or a whole chain failed.
type Reason string

const (
	ReasonTimeout    Reason = "timeout"
	ReasonConnection Reason = "connection"
	ReasonBadStatus  Reason = "bad-status"
	ReasonBadShape   Reason = "bad-shape"
	ReasonUnknown    Reason = "unknown"
	ReasonAggregated Reason = "aggregated"
	ReasonConfig     Reason = "config"
)

var (
	// ErrNotFound matches an aggregated failure: every provider in the chain failed.
	ErrNotFound = errors.New("not found in any provider")
	// ErrConfig matches a configuration failure such as a missing API key.
	ErrConfig = errors.New("provider misconfigured")
)

// Failure is the error side of a Result. Aggregated failures carry the
// per-provider failures in provider order.
type Failure struct {
	Capability string
	Provider   string
	Reason     Reason
	Status     int
	Err        error
	Causes     []Failure
}

func (f *Failure) Error() string {
	switch f.Reason {
	case ReasonAggregated:
		if len(f.Causes) == 0 {
			return fmt.Sprintf("%s: no providers configured", f.label())
		}
		parts := make([]string, 0, len(f.Causes))
		for _, c := range f.Causes {
			parts = append(parts, fmt.Sprintf("%s=%s", c.Provider, c.Reason))
		}
		return fmt.Sprintf("%s: all providers failed (%s)", f.label(), strings.Join(parts, ", "))
	case ReasonBadStatus:
		return fmt.Sprintf("%s: unexpected status %d", f.label(), f.Status)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.label(), f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.label(), f.Reason)
}

func (f *Failure) label() string {
	switch {
	case f.Provider != "":
		return f.Provider
	case f.Capability != "":
		return f.Capability
	}
	return "provider"
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets callers test failures against ErrNotFound and ErrConfig.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return f.Reason == ReasonAggregated
	case ErrConfig:
		return f.Reason == ReasonConfig
	}
	return false
}

// Reasons lists the per-provider reasons of an aggregated failure.
func (f *Failure) Reasons() []Reason {
	reasons := make([]Reason, 0, len(f.Causes))
	for _, c := range f.Causes {
		reasons = append(reasons, c.Reason)
	}
	return reasons
}

// Message returns the innermost human readable error text.
func (f *Failure) Message() string {
	if f.Reason == ReasonAggregated && len(f.Causes) > 0 {
		return f.Causes[len(f.Causes)-1].Message()
	}
	var shapeErr *ShapeError
	if errors.As(f.Err, &shapeErr) && shapeErr.Err == nil {
		return shapeErr.Detail
	}
	if f.Err != nil {
		return f.Err.Error()
	}
	return f.Error()
}

// aggregate folds per-provider failures into the chain failure. A chain whose
// every provider is misconfigured surfaces as a config failure.
func aggregate(capability string, causes []Failure) *Failure {
	f := &Failure{Capability: capability, Reason: ReasonAggregated, Causes: causes}
	if len(causes) == 0 {
		return f
	}
	for _, c := range causes {
		if c.Reason != ReasonConfig {
			return f
		}
	}
	f.Reason = ReasonConfig
	f.Err = causes[0].Err
	return f
}

// StatusError is returned by provider calls that got a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ShapeError is returned when a 2xx payload lacks the fields a capability needs.
type ShapeError struct {
	Detail string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response shape: %s: %v", e.Detail, e.Err)
	}
	return "unexpected response shape: " + e.Detail
}

func (e *ShapeError) Unwrap() error { return e.Err }

// ShapeErrorf builds a ShapeError from a format string.
func ShapeErrorf(format string, args ...any) error {
	return &ShapeError{Detail: fmt.Sprintf(format, args...)}
}

// ConfigError marks a provider that cannot run with the current settings.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// ConfigErrorf builds a ConfigError from a format string.
func ConfigErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Classify maps an error returned by a provider call onto a Reason. The
// status code is non-zero only for ReasonBadStatus.
func Classify(err error) (Reason, int) {
	if err == nil {
		return "", 0
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return ReasonBadStatus, statusErr.Code
	}
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) {
		return ReasonBadShape, 0
	}
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ReasonConfig, 0
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout, 0
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout, 0
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return ReasonConnection, 0
	case errors.As(err, &urlErr):
		return ReasonConnection, 0
	}

	return ReasonUnknown, 0
}

// isTransient reports whether a failed attempt is worth repeating.
func isTransient(err error) bool {
	reason, status := Classify(err)
	switch reason {
	case ReasonTimeout, ReasonConnection:
		return true
	case ReasonBadStatus:
		return status == 429 || status >= 500
	}
	return false
}
