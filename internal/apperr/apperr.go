// Package apperr classifies failures into the small set of kinds the API
// reports, and maps them to HTTP responses.
package apperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUnavailable
)

// Codes that clients can branch on.
const (
	CodeAlreadyReviewed   = "already_reviewed"
	CodeIllegalTransition = "illegal_transition"
	CodeDuplicate         = "duplicate"
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }

func Conflict(code, msg string) error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func Unavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// KindOf returns the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of err, if any.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Postgres SQLSTATE codes we classify.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
	pgInsufficientPriv    = "42501"
	pgRaiseException      = "P0001"
)

// FromPg classifies a pgx error. notFound is used as the message for
// pgx.ErrNoRows. Unknown errors are returned unchanged.
func FromPg(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Kind: KindNotFound, Message: notFound, Err: err}
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return &Error{Kind: KindConflict, Code: CodeDuplicate, Message: Message(err), Err: err}
	case pgForeignKeyViolation, pgCheckViolation, pgInvalidText:
		return &Error{Kind: KindValidation, Message: Message(err), Err: err}
	case pgInsufficientPriv:
		return &Error{Kind: KindForbidden, Message: "permission denied", Err: err}
	case pgRaiseException:
		if strings.Contains(pgErr.Message, "illegal order status transition") {
			return &Error{Kind: KindConflict, Code: CodeIllegalTransition, Message: pgErr.Message, Err: err}
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a Postgres unique violation,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

var translations = []struct {
	substr string
	msg    string
}{
	{"duplicate key value", "this record already exists"},
	{"violates foreign key constraint", "referenced record does not exist"},
	{"violates check constraint", "value is out of the allowed range"},
	{"invalid input syntax for type uuid", "invalid id"},
	{"invalid input value for enum", "unsupported value"},
	{"connection refused", "service temporarily unavailable"},
	{"context deadline exceeded", "request timed out"},
}

// Message translates known backend error substrings to user-facing text,
// falling back to the raw message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	raw := err.Error()
	for _, t := range translations {
		if strings.Contains(raw, t.substr) {
			return t.msg
		}
	}
	return raw
}

func status(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Respond writes err as a JSON error body with the matching status.
// Internal errors are not echoed back to the client.
func Respond(c echo.Context, err error, fallback string) error {
	k := KindOf(err)
	if k == KindInternal {
		c.Logger().Errorf("%s: %v", fallback, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
	body := echo.Map{"error": Message(err)}
	if code := CodeOf(err); code != "" {
		body["code"] = code
	}
	return c.JSON(status(k), body)
}
