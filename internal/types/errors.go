package types

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates invalid chunking or retrieval parameters.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmbedding indicates the embedding service failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore indicates the vector store failed.
	ErrStore = errors.New("vector store failed")

	// ErrGeneration indicates the generation model failed.
	ErrGeneration = errors.New("generation failed")

	// ErrTimeout indicates an external call exceeded its deadline.
	// Errors matching it also match the kind of the call that timed out.
	ErrTimeout = errors.New("timed out")

	// ErrEmptyRetrieval indicates no chunks were found for a query.
	ErrEmptyRetrieval = errors.New("no relevant documents found")
)

// Error tags an underlying failure with its kind and the operation that failed.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	if target == ErrTimeout {
		return errors.Is(e.Err, context.DeadlineExceeded)
	}
	return target == e.Kind
}

// Wrap returns err tagged with kind. A nil err yields nil, and an err that
// already carries kind is returned unchanged.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) && tagged.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configf builds an ErrConfig error.
func Configf(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrConfig, Op: op, Err: fmt.Errorf(format, args...)}
}
