package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil, nil)
	var dest map[string]string

	assert.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "k"))
}

func TestSyncRepositoryWithoutClient(t *testing.T) {
	repo := NewSyncRepository(nil, nil, "", nil)

	assert.False(t, repo.Available())
	assert.Equal(t, "dashboard:sync:prof-1", repo.Channel("prof-1"))
	assert.ErrorIs(t, repo.Publish(context.Background(), "prof-1", []byte("{}")), ErrSyncUnavailable)
	_, _, err := repo.Subscribe(context.Background(), "prof-1")
	assert.ErrorIs(t, err, ErrSyncUnavailable)
}
