// Package apperr maps domain failures to HTTP responses.
package apperr

import (
	"errors"
	"net/http"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/lhclegal/lhc-backend/internal/utils"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// InternalMessage is the body returned for unexpected failures.
const InternalMessage = "Error interno del servidor"

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Kind.Status())
}

func (e *Error) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }

// Internal wraps err so it renders as a generic 500.
func Internal(err error) error { return &Error{Kind: KindInternal, Err: err} }

// Validation reports per-field messages.
func Validation(fields map[string]string) error {
	return &Error{Kind: KindValidation, Fields: fields}
}

// FromValidation converts the result of validation.ValidateStruct or
// validation.Errors.Filter into a field error. Internal rule errors become
// Internal.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		if _, ok := err.(validation.InternalError); ok {
			return Internal(err)
		}
		return BadRequest(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for name, e := range verrs {
		if e != nil {
			fields[name] = e.Error()
		}
	}
	return Validation(fields)
}

// KindOf returns the Kind carried by err, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Write renders err as JSON. Validation errors with fields render as
// {"errors": {...}}; everything else as {"msg": ...}.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		utils.Msg(w, http.StatusInternalServerError, InternalMessage)
		return
	}
	if len(e.Fields) > 0 {
		utils.WriteJSON(w, e.Kind.Status(), map[string]any{"errors": e.Fields})
		return
	}
	utils.Msg(w, e.Kind.Status(), e.Error())
}

// FieldNames returns the sorted field names of a validation error.
func FieldNames(err error) []string {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
