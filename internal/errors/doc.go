// Package errors defines error types for procbridge.
//
// The package provides sentinel errors for the conditions callers branch on
// (capacity, timeout, cancellation) and structured error types for failures
// that carry extra context. All error types support unwrapping and can be
// checked using errors.Is, errors.As, and errors.AsType.
package errors
