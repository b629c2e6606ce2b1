package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrNotFound, "subject not found")
	wrapped := fmt.Errorf("load: %w", err)

	assert.True(t, stdErrors.Is(wrapped, ErrNotFound))
	assert.False(t, stdErrors.Is(wrapped, ErrConflict))
	assert.Equal(t, "subject not found", err.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestWithDetailsKeepsCode(t *testing.T) {
	err := WithDetails(ErrIntegrity, []string{"CS101:3"})

	assert.Equal(t, ErrIntegrity.Code, err.Code)
	assert.Equal(t, []string{"CS101:3"}, err.Details)
	assert.Nil(t, ErrIntegrity.Details)
}
