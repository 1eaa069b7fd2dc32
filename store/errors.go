package store

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned when a pointer with the same (pk, sk) exists.
	ErrAlreadyExists = errors.New("docpointer: document pointer already exists")

	// ErrNotFound is returned when no pointer matches the requested id.
	ErrNotFound = errors.New("docpointer: document pointer not found")

	// ErrInternal marks failures that are the system's fault rather than the
	// caller's. Callers render it without detail.
	ErrInternal = errors.New("docpointer: internal error")

	// ErrDuplicateLookupKey is returned when more than one pointer shares a doc_key.
	ErrDuplicateLookupKey = fmt.Errorf("%w: duplicate lookup key", ErrInternal)

	// ErrCorruptPointer is returned when a stored pointer fails to re-parse.
	ErrCorruptPointer = fmt.Errorf("%w: stored pointer failed to parse", ErrInternal)

	// ErrPointerMissing is returned when update or delete finds no (pk, sk).
	ErrPointerMissing = fmt.Errorf("%w: document pointer does not exist", ErrInternal)

	// ErrKeyFieldChanged is returned when a replacement document no longer
	// derives the pointer's pk or sk.
	ErrKeyFieldChanged = errors.New("docpointer: key field changed")

	// ErrSubjectChanged is returned when a replacement names another patient.
	ErrSubjectChanged = fmt.Errorf("%w: subject", ErrKeyFieldChanged)

	// ErrTypeChanged is returned when a replacement has another pointer type.
	ErrTypeChanged = fmt.Errorf("%w: type", ErrKeyFieldChanged)
)
