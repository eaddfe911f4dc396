package store

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-household-store/model"
)

// Text codes attached to the errors produced by this package.
const (
	TextCodeNotFound       = "RECORD_NOT_FOUND"
	TextCodeStorageFailure = "STORAGE_FAILURE"
	TextCodeValidation     = "VALIDATION_FAILED"
)

// NotFound reports that family has no live row with id.
func NotFound(family model.Family, id uuid.UUID) error {
	return goerrors.New(fmt.Sprintf("%s %s not found", family, id), goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound)
}

// StorageFailure wraps a backing-store error. Context errors and errors that
// already carry a code from this package are returned unchanged.
func StorageFailure(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsNotFound(err) || IsStorageFailure(err) || IsValidation(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).WithTextCode(TextCodeStorageFailure)
}

// ValidationFailure wraps an entity validation error.
func ValidationFailure(family model.Family, err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, fmt.Sprintf("invalid %s", family)).
		WithTextCode(TextCodeValidation)
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return hasTextCode(err, TextCodeNotFound) }

// IsStorageFailure reports whether err is a StorageFailure error.
func IsStorageFailure(err error) bool { return hasTextCode(err, TextCodeStorageFailure) }

// IsValidation reports whether err is a ValidationFailure error.
func IsValidation(err error) bool { return hasTextCode(err, TextCodeValidation) }

func hasTextCode(err error, code string) bool {
	var typed *goerrors.Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.TextCode == code
}
