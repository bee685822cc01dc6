// Package failure classifies errors returned by the auction core so callers
// can map them onto transport status codes.
package failure

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind enumerates error categories.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	// KindNone is reported for a nil error.
	KindNone
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNone:
		return "none"
	default:
		return "internal"
	}
}

// Error is a classified error. Op names the failing operation and Fields
// carries per-field reasons for validation failures.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(" (")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.String())
		if i == len(e.Fields)-1 {
			b.WriteString(")")
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, failure.NotFound("", ""))
// style comparisons work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal
// when there is none and KindNone when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Sentinels usable with errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrInternal   = &Error{Kind: KindInternal}
)

func newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return newf(KindNotFound, op, format, args...)
}

func Forbidden(op, format string, args ...any) *Error {
	return newf(KindForbidden, op, format, args...)
}

func Conflict(op, format string, args ...any) *Error {
	return newf(KindConflict, op, format, args...)
}

// Validation wraps a failed validation result.
func Validation(op string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: "invalid input", Fields: fields}
}

// Internal wraps an unexpected error, typically from storage.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// Wrap returns err unchanged when it is already classified and wraps it as
// internal otherwise. A nil err yields nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return Internal(op, err)
}

// FieldError describes why one input field was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (f FieldError) String() string { return f.Field + ": " + f.Reason }

// ValidationResult accumulates field errors.
type ValidationResult struct {
	fields []FieldError
}

// Add records a field error.
func (r *ValidationResult) Add(field, reason string) {
	r.fields = append(r.fields, FieldError{Field: field, Reason: reason})
}

// OK reports whether no errors were recorded.
func (r *ValidationResult) OK() bool { return len(r.fields) == 0 }

// Fields returns the recorded errors sorted by field name.
func (r *ValidationResult) Fields() []FieldError {
	out := append([]FieldError(nil), r.fields...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Err returns a validation *Error or nil when the result is OK.
func (r *ValidationResult) Err(op string) error {
	if r.OK() {
		return nil
	}
	return Validation(op, r.Fields()...)
}
