package domain

import "errors"

// Error taxonomy. Handlers map these to HTTP statuses with errors.Is; store
// and service code wraps them with context via fmt.Errorf and %w.
var (
	// ErrValidation marks malformed or missing input the caller can correct.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a zone, work record, or photo id that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrPrecondition marks a state-machine guard failure, such as approving a
	// record without both photo sets.
	ErrPrecondition = errors.New("precondition failed")

	// ErrForbidden marks an action the principal's role does not permit.
	ErrForbidden = errors.New("forbidden")
)

// CanAttachAfterPhoto is the guard for the after-photo submission event.
// A complete record is terminal; a rejected record is implicitly re-opened by
// the submission. The record must already hold at least one before photo.
func CanAttachAfterPhoto(status WorkStatus, beforeCount int) error {
	if status.OrDefault() == StatusComplete {
		return ErrPrecondition
	}
	if beforeCount == 0 {
		return ErrPrecondition
	}
	return nil
}

// CanDecide is the guard for the approve/reject event: the record must be
// inprogress and carry at least one photo in each sequence.
func CanDecide(status WorkStatus, beforeCount, afterCount int) error {
	if status.OrDefault() != StatusInProgress {
		return ErrPrecondition
	}
	if beforeCount == 0 || afterCount == 0 {
		return ErrPrecondition
	}
	return nil
}

// CanRemoveAfterPhoto is the guard for after-photo deletion: permitted only on
// a rejected record, where it serves as the start of re-submission.
func CanRemoveAfterPhoto(status WorkStatus) error {
	if status.OrDefault() != StatusRejected {
		return ErrPrecondition
	}
	return nil
}
