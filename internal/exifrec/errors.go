package exifrec

import "errors"

var (
	// ErrExtractionFailure means the metadata of one file could not be read.
	ErrExtractionFailure = errors.New("extraction failure")

	// ErrWriteBackFailure means accepted values could not be written to a file.
	// The file stays pending.
	ErrWriteBackFailure = errors.New("write-back failure")

	// ErrIncompleteReview is returned when a change set is committed with
	// undecided entries. Nothing is applied.
	ErrIncompleteReview = errors.New("incomplete review")

	// ErrConcurrentModification is returned when the accepted state of a file
	// moved between computing a change set and storing or committing it.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrNotTracked is returned for paths the store has never imported.
	ErrNotTracked = errors.New("file is not tracked")
)
