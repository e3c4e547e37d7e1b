package colstore

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable reason attached to every failure.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindAlreadyExists  ErrorKind = "already_exists"
	KindValidation     ErrorKind = "validation_error"
	KindStorage        ErrorKind = "storage_error"
	KindPartialFailure ErrorKind = "partial_failure"
)

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAlreadyExists  = &Error{Kind: KindAlreadyExists}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrStorage        = &Error{Kind: KindStorage}
	ErrPartialFailure = &Error{Kind: KindPartialFailure}
)

// Error is a classified failure naming the offending collection and file.
type Error struct {
	Kind       ErrorKind
	Collection string
	File       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Collection == "" && t.File == "" && t.Err == nil
}

// KindOf returns the classification of err. Unclassified errors are storage errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// NotFoundError reports a missing collection, or a missing file when file is set.
func NotFoundError(collection, file string) *Error {
	msg := fmt.Sprintf("collection %q not found", collection)
	if file != "" {
		msg = fmt.Sprintf("file %q not found in collection %q", file, collection)
	}
	return &Error{Kind: KindNotFound, Collection: collection, File: file, Message: msg}
}

// AlreadyExistsError reports a duplicate collection name.
func AlreadyExistsError(collection string) *Error {
	return &Error{
		Kind:       KindAlreadyExists,
		Collection: collection,
		Message:    fmt.Sprintf("collection %q already exists", collection),
	}
}

// ValidationError reports rejected input.
func ValidationError(collection, file, msg string) *Error {
	return &Error{Kind: KindValidation, Collection: collection, File: file, Message: msg}
}

// StorageError wraps an I/O or database failure. Already classified errors pass through.
func StorageError(collection, file string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorage, Collection: collection, File: file, Message: "storage failure", Err: err}
}
