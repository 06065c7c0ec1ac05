package domain

import (
	"errors"
	"fmt"
)

// ClassificationError reports a failed breed classification call
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("breed classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ExtractionError is part of the taxonomy but extraction always falls back
// to FallbackBreed, so nothing returns it today.
type ExtractionError struct {
	Description string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not extract breed from %q", e.Description)
}

// GenerationFailure reports a generation stage that produced no usable image
type GenerationFailure struct {
	Stage Stage
	Err   error
}

func (e *GenerationFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to generate image %d (%s): %v", int(e.Stage), e.Stage, e.Err)
	}
	return fmt.Sprintf("failed to generate image %d (%s)", int(e.Stage), e.Stage)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// PersistenceError reports a failed directory create or artifact write.
// Stage is zero when the output directory itself could not be created.
type PersistenceError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Stage == 0 {
		return fmt.Sprintf("failed to create output directory %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to save image %d to %s: %v", int(e.Stage), e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StageOf returns the stage an error occurred at, or 0 when it happened
// before any generation stage ran.
func StageOf(err error) Stage {
	var genErr *GenerationFailure
	if errors.As(err, &genErr) {
		return genErr.Stage
	}
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return persistErr.Stage
	}
	return 0
}
