package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardRepositoryGet(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT professor_id, snapshot, version, updated_at FROM dashboard_states WHERE professor_id = $1")).
		WithArgs("prof-1").
		WillReturnRows(sqlmock.NewRows([]string{"professor_id", "snapshot", "version", "updated_at"}).
			AddRow("prof-1", []byte(`{"subjects":[]}`), 3, time.Now()))

	state, err := repo.Get(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Version)
	assert.JSONEq(t, `{"subjects":[]}`, state.Snapshot.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepositorySaveBumpsVersion(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	snapshot := types.JSONText(`{"students":[]}`)
	mock.ExpectQuery(`(?s)INSERT INTO dashboard_states .* ON CONFLICT \(professor_id\) DO UPDATE SET .*version = dashboard_states.version \+ 1.* RETURNING professor_id, snapshot, version, updated_at`).
		WithArgs("prof-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"professor_id", "snapshot", "version", "updated_at"}).
			AddRow("prof-1", []byte(snapshot), 4, time.Now()))

	state, err := repo.Save(context.Background(), "prof-1", snapshot)
	require.NoError(t, err)
	assert.Equal(t, int64(4), state.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
