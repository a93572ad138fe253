package command

import (
	"errors"

	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/domain/tree"
	"github.com/JJStrongstone/niwa/internal/domain/version"
	"github.com/JJStrongstone/niwa/internal/markdown"
)

// ErrInvalidInput covers argument-shape problems the surface itself catches
// before calling into a component (empty required field, bad resolution
// string, unknown Kind).
var ErrInvalidInput = errors.New("invalid input")

// ExitCode derives the process exit status from an operation's error, per
// §7: input-validation kinds exit 1, ConflictDetected exits 2, invariant
// violations exit 3, and internal store errors exit 4.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var detected *conflict.DetectedError
	if errors.As(err, &detected) {
		return 2
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, tree.ErrNodeNotFound),
		errors.Is(err, tree.ErrParentNotFound),
		errors.Is(err, tree.ErrDuplicateTitle),
		errors.Is(err, tree.ErrInvalidTitle),
		errors.Is(err, tree.ErrDepthExceeded),
		errors.Is(err, version.ErrNodeNotFound),
		errors.Is(err, version.ErrVersionNotFound),
		errors.Is(err, conflict.ErrUnreadEdit),
		errors.Is(err, conflict.ErrNoPendingConflict),
		errors.Is(err, markdown.ErrOrphanedHeading):
		return 1

	case errors.Is(err, conflict.ErrCorruptState):
		return 3

	default:
		return 4
	}
}
