package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the ingestion core.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindFetch means the source page could not be retrieved; fatal to a run.
	KindFetch
	// KindExtraction means a single listing block was malformed.
	KindExtraction
	// KindPersistence means a storage call failed.
	KindPersistence
	// KindResolution means a tag could not be resolved to an identity.
	KindResolution
)

func (k ErrorKind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindExtraction:
		return "extraction"
	case KindPersistence:
		return "persistence"
	case KindResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Error is the tagged error type surfaced by the ingestion core.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and the failing operation.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost domain Error in err's chain.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
