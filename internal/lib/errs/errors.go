// Package errs defines the error taxonomy shared by the cache internals.
package errs

import (
	"fmt"

	perrors "github.com/jmgilman/go/errors"
)

var (
	// ErrUnhashableArgument is returned when a call argument cannot take part
	// in a cache key (slices, maps, funcs, or composites holding them).
	ErrUnhashableArgument = perrors.New(perrors.CodeInvalidInput, "unhashable argument")

	// ErrDuplicateArgument is returned when a named argument appears twice in one call.
	ErrDuplicateArgument = perrors.New(perrors.CodeInvalidInput, "duplicate named argument")

	// ErrInvalidCapacity is returned when a cache is configured with a negative capacity.
	ErrInvalidCapacity = perrors.New(perrors.CodeInvalidConfig, "capacity must be positive")

	// ErrPanic is returned if a panic occurs in the cached function.
	ErrPanic = perrors.New(perrors.CodeInternal, "panic occurred in cached function")

	// ErrHook is reported to the error hook when a lifecycle hook fails or panics.
	ErrHook = perrors.New(perrors.CodeInternal, "lifecycle hook failed")
)

// NewError wraps an error with additional context fields for structured error reporting.
//
//   - errType: The sentinel error to wrap. errors.Is(result, errType) holds.
//   - kv: A map of key-value pairs providing additional context.
//
// The code of the sentinel is carried over to the returned error.
func NewError(errType error, kv map[string]interface{}) error {
	code := perrors.GetCode(errType)
	if kv == nil {
		return perrors.Wrap(errType, code, "lfucache")
	}
	details := make(map[string]interface{}, len(kv))
	for k, v := range kv {
		switch val := v.(type) {
		case error:
			details[k] = val.Error()
		default:
			details[k] = fmt.Sprintf("%v", val)
		}
	}
	return perrors.WrapWithContext(errType, code, "lfucache", details)
}

// FromPanic converts a recovered panic value into an ErrPanic error.
func FromPanic(r any) error {
	return NewError(ErrPanic, map[string]interface{}{
		"panic": Recovered(r),
	})
}

// Recovered converts a value returned by recover into an error.
func Recovered(r any) error {
	switch v := r.(type) {
	case error:
		return v
	case string:
		return fmt.Errorf("%s", v)
	default:
		return fmt.Errorf("%v", v)
	}
}
