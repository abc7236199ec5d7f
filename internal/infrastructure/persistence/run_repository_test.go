package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/orderrecon/internal/domain/history"
	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/erp/orderrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRunTestDB(t *testing.T) *GormRunRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewGormRunRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func newRun(t *testing.T, platform string, createdAt time.Time) *history.Run {
	t.Helper()
	run, err := history.NewRun(platform)
	require.NoError(t, err)
	run.CreatedAt = createdAt
	run.UpdatedAt = createdAt
	return run
}

func TestGormRunRepository_SaveAndFind(t *testing.T) {
	repo := setupRunTestDB(t)
	ctx := context.Background()

	run := newRun(t, "momo", time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, run))

	t.Run("saves pending run", func(t *testing.T) {
		found, err := repo.FindByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, found.ID)
		assert.Equal(t, "momo", found.Platform)
		assert.Equal(t, history.StatusPending, found.Status)
		assert.Nil(t, found.StartedAt)
		assert.Equal(t, 1, found.Version)
	})

	t.Run("updates completed run", func(t *testing.T) {
		require.NoError(t, run.Start("out/momo.csv"))
		diag := reconcile.NewDiagnostics(10)
		diag.FilesRead = 2
		diag.MergedKeys = 7
		require.NoError(t, run.Complete(history.Counts{FilesRead: 2, RowsRead: 9, OutputRows: 7}, diag))
		require.NoError(t, repo.Save(ctx, run))

		found, err := repo.FindByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, history.StatusCompleted, found.Status)
		assert.Equal(t, "out/momo.csv", found.OutputPath)
		assert.Equal(t, 9, found.RowsRead)
		assert.Equal(t, 7, found.OutputRows)
		assert.Equal(t, 3, found.Version)
		require.NotNil(t, found.CompletedAt)
		assert.WithinDuration(t, *run.CompletedAt, *found.CompletedAt, time.Millisecond)

		decoded, err := found.DecodeDiagnostics()
		require.NoError(t, err)
		assert.Equal(t, 7, decoded.MergedKeys)
	})

	t.Run("missing run", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormRunRepository_FindRecent(t *testing.T) {
	repo := setupRunTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i, platform := range []string{"momo", "yahoo", "momo", "momo"} {
		run := newRun(t, platform, base.Add(time.Duration(i)*time.Hour))
		if i == 3 {
			require.NoError(t, run.Fail(errors.New("mapping missing")))
		}
		require.NoError(t, repo.Save(ctx, run))
		ids = append(ids, run.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := repo.FindRecent(ctx, history.Filter{})
		require.NoError(t, err)
		require.Len(t, runs, 4)
		assert.Equal(t, ids[3], runs[0].ID)
		assert.Equal(t, ids[0], runs[3].ID)
	})

	t.Run("filters by platform and limit", func(t *testing.T) {
		runs, err := repo.FindRecent(ctx, history.Filter{Platform: "momo", Limit: 2})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, ids[3], runs[0].ID)
		assert.Equal(t, ids[2], runs[1].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		failed := history.StatusFailed
		runs, err := repo.FindRecent(ctx, history.Filter{Status: &failed})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "mapping missing", runs[0].ErrorMessage)
	})
}

// newMockRunRepository creates a GormRunRepository with a mocked postgres connection
func newMockRunRepository(t *testing.T) (*GormRunRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormRunRepository(gormDB), mock, mockDB
}

func TestGormRunRepository_Postgres(t *testing.T) {
	t.Run("finds run by id", func(t *testing.T) {
		repo, mock, mockDB := newMockRunRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "platform", "status", "rows_read", "version"}).
			AddRow(id.String(), "momo", "completed", 12, 3)

		mock.ExpectQuery(`SELECT \* FROM "reconcile_runs" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(rows)

		run, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, run.ID)
		assert.Equal(t, history.StatusCompleted, run.Status)
		assert.Equal(t, 12, run.RowsRead)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps no rows to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockRunRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "reconcile_runs" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("recent runs with filters", func(t *testing.T) {
		repo, mock, mockDB := newMockRunRepository(t)
		defer mockDB.Close()

		status := history.StatusCompleted
		mock.ExpectQuery(`SELECT \* FROM "reconcile_runs" WHERE platform = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3`).
			WithArgs("momo", "completed", DefaultRunLimit).
			WillReturnRows(sqlmock.NewRows([]string{"id", "platform", "status"}).
				AddRow(uuid.NewString(), "momo", "completed").
				AddRow(uuid.NewString(), "momo", "completed"))

		runs, err := repo.FindRecent(context.Background(), history.Filter{Platform: "momo", Status: &status})
		require.NoError(t, err)
		assert.Len(t, runs, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates query errors", func(t *testing.T) {
		repo, mock, mockDB := newMockRunRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "reconcile_runs"`).
			WillReturnError(assert.AnError)

		_, err := repo.FindRecent(context.Background(), history.Filter{})
		assert.ErrorIs(t, err, assert.AnError)
	})
}
