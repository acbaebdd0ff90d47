package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) AnnotatedError {
	return newAnnotated(msg, attrs)
}

// newAnnotated records the caller of its caller so that New and Wrap both point at user code.
func newAnnotated(msg string, attrs []slog.Attr) AnnotatedError {
	var pcs [1]uintptr
	// Skip runtime.Callers, this function and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return AnnotatedError{
		msg:   msg,
		pc:    pcs[0],
		attrs: attrs,
	}
}

// NewSentinel creates a plain error without other context that can be used as sentinel error that can be detected
// with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap annotates err with msg, the caller's source location and attrs. Returns nil if err is nil.
//
// The result matches err with [Is] and [As].
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return newAnnotated(msg, attrs).Wrap(err)
}

// Wrap is a convenience function for wrapping errors, e.g., adding context to a sentinel error.
func (err AnnotatedError) Wrap(inner error) error {
	return fmt.Errorf("%w: %w", err, inner)
}

// Error implements error interface.
func (err AnnotatedError) Error() string {
	return err.msg
}

// LogValue formats the error for useful logging.
func (err AnnotatedError) LogValue() slog.Value {
	attrs := append(
		[]slog.Attr{err.sourceAttr()},
		err.attrs...,
	)

	return slog.GroupValue(attrs...)
}

// sourceAttr retrieves the source location of the error so that developers can locate it faster.
func (err AnnotatedError) sourceAttr() slog.Attr {
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()
	return slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line))
}

// SlogError returns an "error" attribute for logging err.
//
// The attribute contains the full error message, the source of the innermost AnnotatedError and the
// attributes of every AnnotatedError in the chain.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var (
		source slog.Attr
		attrs  []slog.Attr
	)
	walk(err, func(annotated AnnotatedError) {
		source = annotated.sourceAttr()
		attrs = append(attrs, annotated.attrs...)
	})
	group := []slog.Attr{slog.String("message", err.Error())}
	if source.Key != "" {
		group = append(group, source)
	}
	group = append(group, attrs...)
	return slog.Attr{Key: "error", Value: slog.GroupValue(group...)}
}

// walk visits the AnnotatedErrors of the error tree in depth-first order, outermost first.
func walk(err error, visit func(AnnotatedError)) {
	if err == nil {
		return
	}
	if annotated, ok := err.(AnnotatedError); ok { //nolint:errorlint // we walk the tree manually
		visit(annotated)
	}
	switch unwrapper := err.(type) { //nolint:errorlint // we walk the tree manually
	case interface{ Unwrap() []error }:
		for _, inner := range unwrapper.Unwrap() {
			walk(inner, visit)
		}
	case interface{ Unwrap() error }:
		walk(unwrapper.Unwrap(), visit)
	}
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
