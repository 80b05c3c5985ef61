package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure by where it happened.
type Kind string

const (
	KindConnection    Kind = "CONNECTION"
	KindSchema        Kind = "SCHEMA"
	KindStorage       Kind = "STORAGE"
	KindSerialization Kind = "SERIALIZATION"
	KindValidation    Kind = "VALIDATION"
)

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrConnection    = &Error{Kind: KindConnection}
	ErrSchema        = &Error{Kind: KindSchema}
	ErrStorage       = &Error{Kind: KindStorage}
	ErrSerialization = &Error{Kind: KindSerialization}
	ErrValidation    = &Error{Kind: KindValidation}
)

// Error is returned by every Store, Recorder and Aggregator operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s error: %s: %v", kindName(e.Kind), e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s error: %s", kindName(e.Kind), e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", kindName(e.Kind), e.Err)
	default:
		return kindName(e.Kind) + " error"
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from an error chain, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func kindName(k Kind) string {
	switch k {
	case KindConnection:
		return "connection"
	case KindSchema:
		return "schema"
	case KindStorage:
		return "storage"
	case KindSerialization:
		return "serialization"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

func connectionError(op string, err error) error {
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

func schemaError(op string, err error) error {
	return &Error{Kind: KindSchema, Op: op, Err: err}
}

func storageError(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

func serializationError(op string, err error) error {
	return &Error{Kind: KindSerialization, Op: op, Err: err}
}

func validationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}
