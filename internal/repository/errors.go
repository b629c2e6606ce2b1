package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// writeError maps unique violations to a conflict error and wraps everything else with op.
func writeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		var pqErr *pq.Error
		errors.As(err, &pqErr)
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
			fmt.Sprintf("%s: duplicate value violates %s", op, pqErr.Constraint))
	}
	return fmt.Errorf("%s: %w", op, err)
}
