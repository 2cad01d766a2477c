package services

import (
	"errors"

	"github.com/maxldruck/printcalc/internal/draft"
)

var (
	// ErrDuplicateName is returned when a username (or its ledger key) is taken.
	ErrDuplicateName = errors.New("name already exists")

	// ErrInvalidCredentials is returned for unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingReferenceData is returned when a printed part is priced
	// while the catalog has no materials or no printers.
	ErrMissingReferenceData = errors.New("catalog has no materials or printers")

	// ErrEmptyDraft is returned when saving a draft without items.
	ErrEmptyDraft = errors.New("draft has no items")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when an account may not perform an action.
	ErrForbidden = errors.New("forbidden")

	ErrIndexOutOfRange = draft.ErrIndexOutOfRange
)
