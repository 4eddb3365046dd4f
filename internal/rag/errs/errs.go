// Package errs defines the error taxonomy shared by the retrieval engine.
//
// Configuration errors are fatal and raised before any provider call. Provider
// errors are recoverable per question: the failed question yields no result,
// but the session stays valid. A corrupt persisted index is fatal for that
// document only and triggers a rebuild.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors detected when loading a persisted index.
var (
	// ErrCorruptIndex indicates a persisted index that fails to deserialize or
	// whose passage and vector tables disagree.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrModelMismatch indicates a persisted index built with a different
	// embedding model than the one supplied at load time.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// ConfigError is a fatal configuration problem, such as invalid chunking
// parameters or a non-positive top-k. It must abort the run before any
// provider call is made.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...interface{}) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ProviderError wraps a failed or timed-out call to an external capability
// (embedding model or language model). It is recoverable: the current
// question produces no result, subsequent questions proceed.
type ProviderError struct {
	// Op names the failed operation, e.g. "embed query" or "generate answer".
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider unavailable during %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider wraps err as a ProviderError for the named operation.
func Provider(op string, err error) error {
	return &ProviderError{Op: op, Err: err}
}

// IsProvider reports whether err is (or wraps) a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
