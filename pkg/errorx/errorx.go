// Package errorx defines coded business errors shared by every layer.
package errorx

import (
	"errors"
	"fmt"
)

// CodeError is an error carrying a stable business code.
// It wraps an optional cause so errors.Is/errors.As keep working through it.
type CodeError struct {
	Code  int    // business code
	Msg   string // user-facing message
	Data  any    // optional structured detail returned to the client
	cause error  // wrapped cause
}

// Error implements error. With a cause the format is "msg: cause".
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap exposes the wrapped cause.
func (e *CodeError) Unwrap() error {
	return e.cause
}

// WithData returns a copy of e that carries data.
// Predefined errors stay untouched.
func (e *CodeError) WithData(data any) *CodeError {
	return &CodeError{
		Code:  e.Code,
		Msg:   e.Msg,
		Data:  data,
		cause: e.cause,
	}
}

// New creates a CodeError.
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf creates a CodeError with a formatted message.
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a code and message to err.
// Usage: errorx.Wrap(err, CodeNotFound, "room not found")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf attaches a code and a formatted message to err.
// Usage: errorx.Wrapf(err, CodeNotFound, "room %d not found", roomID)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode extracts the business code, defaulting to CodeServerBusy.
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code int) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == code
}

// Business codes.
const (
	CodeSuccess      = 1000 // success
	CodeInvalidParam = 1001 // bad request parameters
	CodeServerBusy   = 1005 // unexpected failure
	CodeUnauthorized = 1006 // missing or invalid credentials
	CodeNotFound     = 1008 // resource absent
	CodeDBError      = 1010 // persistence failure
	CodeCacheError   = 1011 // cache failure

	CodeAccessDenied     = 2001 // not a participant, or permission denied
	CodeChatBlocked      = 2002 // private pair blocked
	CodeGroupBlocked     = 2003 // muted in this group
	CodeInvalidMembers   = 2004 // custom group spans clinics
	CodeDuplicateGroup   = 2005 // clinic_all already exists
	CodeEmptyMessage     = 2006 // no content and no attachments
	CodeAlreadyBlocked   = 2007
	CodeNotBlocked       = 2008
	CodeSelfActionDenied = 2009 // block or mute targeting self
	CodeReadOnly         = 2010 // audit viewers cannot mutate
)

// Predefined errors. Return them directly or compare with errors.Is.
var (
	ErrInvalidParam     = New(CodeInvalidParam, "invalid request parameters")
	ErrServerBusy       = New(CodeServerBusy, "server busy")
	ErrUnauthorized     = New(CodeUnauthorized, "authentication required")
	ErrAccessDenied     = New(CodeAccessDenied, "chat not available")
	ErrForbidden        = New(CodeAccessDenied, "forbidden")
	ErrChatBlocked      = New(CodeChatBlocked, "you cannot send messages to this user")
	ErrGroupBlocked     = New(CodeGroupBlocked, "you are blocked in this group")
	ErrInvalidMembers   = New(CodeInvalidMembers, "all members must belong to the same clinic")
	ErrDuplicateGroup   = New(CodeDuplicateGroup, "clinic group already exists")
	ErrEmptyMessage     = New(CodeEmptyMessage, "content or attachments required")
	ErrAlreadyBlocked   = New(CodeAlreadyBlocked, "user is already blocked")
	ErrNotBlocked       = New(CodeNotBlocked, "user is not blocked by you")
	ErrSelfActionDenied = New(CodeSelfActionDenied, "you cannot target yourself")
	ErrReadOnly         = New(CodeReadOnly, "read-only access")
)

// IsNotFound reports whether err means "record not found".
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code == CodeNotFound {
		return true
	}
	return err != nil && err.Error() == "record not found"
}
