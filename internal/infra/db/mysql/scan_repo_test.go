package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
	"github.com/bryanwahyu/brainscan/internal/domain/scanerrors"
)

func newRepoWithMock(t *testing.T) (*ScanRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewScanRepository(db), mock, db
}

var cols = []string{"id", "owner_id", "image_locator", "content_type", "diagnosis_text", "confidence", "analyzed_at", "created_at"}

func TestCreate_InsertsAndAssignsDefaults(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+scan_records\b.*VALUES\s*\(\?,\?,\?,\?,\?,\?,\?,\?\)`).
		WithArgs(sqlmock.AnyArg(), "u1", "u1/x.png", "image/png", "Tumor detected", 0.87, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := repo.Create(context.Background(), &domain.ScanRecord{
		OwnerID:       "u1",
		ImageLocator:  "u1/x.png",
		ContentType:   "image/png",
		DiagnosisText: "Tumor detected",
		Confidence:    0.87,
		AnalyzedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+scan_records`).WillReturnError(errors.New("duplicate"))

	_, err := repo.Create(context.Background(), &domain.ScanRecord{ID: "s1", OwnerID: "u1"})
	assert.True(t, errors.Is(err, domain.ErrRepository))
}

func TestFindByID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM scan_records WHERE id=\? LIMIT 1`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("s1", "u1", "u1/s1.png", "image/png", "Normal", 0.5, now, now))

	rec, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ScanID("s1"), rec.ID)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, 0.5, rec.Confidence)
	assert.True(t, rec.CreatedAt.Equal(now))
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM scan_records WHERE id=\?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListByOwner_YieldsRowsInOrder(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)SELECT .* FROM scan_records\s+WHERE owner_id=\?\s+ORDER BY created_at DESC, id DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s2", "u1", "l2", "image/png", "B", 0.2, now, now).
			AddRow("s1", "u1", "l1", "image/png", "A", 0.1, now, now.Add(-time.Hour)))

	var ids []domain.ScanID
	for rec, err := range repo.ListByOwner(context.Background(), "u1") {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []domain.ScanID{"s2", "s1"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwner_QueryError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM scan_records`).WillReturnError(errors.New("boom"))

	var got error
	for _, err := range repo.ListByOwner(context.Background(), "u1") {
		got = err
	}
	assert.True(t, errors.Is(got, domain.ErrRepository))
}

func TestDelete(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM scan_records WHERE id=\?`).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM scan_records WHERE id=\?`).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "s1"), domain.ErrNotFound))
}

func TestScanErrorRepository_SaveDefaultsEmptyFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewScanErrorRepository(db)

	mock.ExpectExec(`INSERT INTO scan_errors`).
		WithArgs(sqlmock.AnyArg(), "u1", "s1", "notify", "-", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Save(context.Background(), &scanerrors.ScanError{OwnerID: "u1", ScanID: "s1", Stage: scanerrors.StageNotify})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanErrorRepository_ListByScan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewScanErrorRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM scan_errors`).
		WithArgs("u1", "s1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "scan_id", "stage", "message", "created_at"}).
			AddRow("e1", "u1", "s1", "analysis", "timeout", now))

	list, err := repo.ListByScan(context.Background(), "u1", "s1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, scanerrors.StageAnalysis, list[0].Stage)
}
