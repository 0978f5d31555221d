package db

import (
	"errors"
	"fmt"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
)

var (
	// ErrInvalidRequestShape is returned for malformed requests, always before the store is
	// contacted.
	ErrInvalidRequestShape              = query.ErrInvalidRequestShape
	ErrInvalidSubscriptionTarget        = fmt.Errorf("invalid-subscription-target: %w", ErrInvalidRequestShape)
	ErrDocumentNotFound                 = fmt.Errorf("document-not-found")
	ErrPersistenceCapabilityUnavailable = fmt.Errorf("persistence-capability-unavailable")
)

// StoreExecutionError is a failure reported by the store while executing Op.
type StoreExecutionError struct {
	Op   string
	Code store.Code
	Err  error
}

func (e *StoreExecutionError) Error() string {
	return fmt.Sprintf("%s: store %s: %v", e.Op, e.Code, e.Err)
}

func (e *StoreExecutionError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var serr *StoreExecutionError
	if errors.As(err, &serr) {
		return err
	}
	return &StoreExecutionError{
		Op:   op,
		Code: store.CodeOf(err),
		Err:  err,
	}
}

func invalidShape(format string, args ...any) error {
	return errors.Join(ErrInvalidRequestShape, fmt.Errorf(format, args...))
}

func documentDoesNotExist() error {
	return errors.Join(ErrDocumentNotFound, fmt.Errorf("document does not exist"))
}
