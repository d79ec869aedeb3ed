package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindDecryption    Kind = "decryption_failed"
	KindIndexing      Kind = "indexing_inconsistency"
	KindInference     Kind = "inference_failed"
)

// Error carries a Kind so transports can map failures without string matching.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is lets errors.Is match on Kind against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Field == "" && t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrUnauthorized     = &Error{Kind: KindAuthorization}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrInference        = &Error{Kind: KindInference}
	ErrIndexing         = &Error{Kind: KindIndexing}
	ErrDecryptionFailed = &Error{Kind: KindDecryption, Message: "decryption failed"}

	ErrInvalidKeyLength = errors.New("cipher key must be 32 bytes")
)

func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFound(what string, id any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", what, id)}
}

func Inference(stage string, cause error) error {
	return &Error{Kind: KindInference, Field: stage, Message: "inference call failed", Cause: cause}
}

// KindOf returns the Kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}
