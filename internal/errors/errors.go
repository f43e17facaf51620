// Package errors provides enhanced errors with component, category, and
// structured context, while remaining drop-in compatible with the
// standard library errors package.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Category classifies an error for logging and telemetry.
type Category string

const (
	CategoryValidation   Category = "validation"
	CategoryNetwork      Category = "network"
	CategoryCache        Category = "cache"
	CategorySync         Category = "sync"
	CategoryConfig       Category = "config"
	CategoryNotification Category = "notification"
	CategoryGeneric      Category = "generic"
)

// EnhancedError carries a wrapped error plus component/category/context
// metadata.
type EnhancedError struct {
	Err       error
	component string
	category  Category
	context   map[string]any
}

// Error renders the underlying message with component and context appended.
func (e *EnhancedError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.component != "" {
		fmt.Fprintf(&b, " [component=%s]", e.component)
	}
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " [%s=%v]", k, e.context[k])
		}
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is / errors.As.
func (e *EnhancedError) Unwrap() error { return e.Err }

// GetComponent returns the component tag, or "" if unset.
func (e *EnhancedError) GetComponent() string { return e.component }

// GetCategory returns the category, defaulting to CategoryGeneric.
func (e *EnhancedError) GetCategory() Category {
	if e.category == "" {
		return CategoryGeneric
	}
	return e.category
}

// GetContext returns a context value by key.
func (e *EnhancedError) GetContext(key string) (any, bool) {
	v, ok := e.context[key]
	return v, ok
}

// ErrorBuilder accumulates metadata before producing an error.
type ErrorBuilder struct {
	err       error
	component string
	category  Category
	context   map[string]any
}

// New starts building an enhanced error wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts building an enhanced error from a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: fmt.Errorf(format, args...)}
}

// Component tags the error with the originating component.
func (b *ErrorBuilder) Component(component string) *ErrorBuilder {
	b.component = component
	return b
}

// Category classifies the error.
func (b *ErrorBuilder) Category(category Category) *ErrorBuilder {
	b.category = category
	return b
}

// Context attaches a key/value pair to the error.
func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalizes the error and reports it to the configured telemetry
// reporter, if any.
func (b *ErrorBuilder) Build() error {
	e := &EnhancedError{
		Err:       b.err,
		component: b.component,
		category:  b.category,
		context:   b.context,
	}
	report(e)
	return e
}

// Standard library passthroughs so callers only import this package.

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// Unwrap returns the result of calling Unwrap on err, if any.
func Unwrap(err error) error { return errors.Unwrap(err) }

// NewStd creates a plain sentinel error with no metadata.
func NewStd(text string) error { return errors.New(text) }

// Join wraps errors.Join.
func Join(errs ...error) error { return errors.Join(errs...) }
