package store

import (
	"errors"

	"github.com/sadopc/studylog/internal/apperrors"
)

// referenceError turns a missing referenced entity into a validation failure of the
// entity being written; other errors pass through.
func referenceError(entity, id string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Validation("unknown %s %q", entity, id)
	}
	return err
}
