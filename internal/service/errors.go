package service

import "errors"

var (
	// ErrDesignNotFound is returned when the referenced design does not
	// exist locally (or has been soft-deleted).
	ErrDesignNotFound = errors.New("design not found")

	// ErrConflictActive is returned when a mutation targets a design frozen
	// in the conflict state. The caller must resolve the conflict first.
	ErrConflictActive = errors.New("design has an unresolved conflict")

	// ErrNoConflict is returned when a conflict resolution targets a design
	// that is not in the conflict state.
	ErrNoConflict = errors.New("design is not in conflict")

	ErrValidationEmptyName     = errors.New("design name must not be empty")
	ErrValidationBadDimensions = errors.New("design dimensions must be positive")
	ErrValidationBadMeshCount  = errors.New("design mesh count must be positive")
)
