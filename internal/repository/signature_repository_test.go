package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

func newSignatureRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func signatureRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "document_id", "signer_id", "role", "position", "artifact",
		"unit_name", "unit_floor", "visibility_vote", "created_at", "updated_at", "signer_name",
	})
}

func TestSignatureRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newSignatureRepoMock(t)
	defer cleanup()

	repo := NewSignatureRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signatures")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sig := &models.Signature{
		DocumentID: "doc-1",
		SignerID:   "user-1",
		Role:       models.TenancyRoleTenant,
		Position:   models.PositionApprove,
		Artifact:   []byte("rendered"),
		UnitName:   "Toko Sinar",
		UnitFloor:  "2",
	}
	require.NoError(t, repo.Insert(context.Background(), sig))
	require.NotEmpty(t, sig.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureRepositoryInsertDuplicateMapsToAlreadySigned(t *testing.T) {
	db, mock, cleanup := newSignatureRepoMock(t)
	defer cleanup()

	repo := NewSignatureRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signatures")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "signatures_document_id_signer_id_key"})

	err := repo.Insert(context.Background(), &models.Signature{
		DocumentID: "doc-1",
		SignerID:   "user-1",
		Role:       models.TenancyRoleTenant,
		Position:   models.PositionApprove,
	})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrAlreadySigned))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureRepositoryFindByDocumentAndSigner(t *testing.T) {
	db, mock, cleanup := newSignatureRepoMock(t)
	defer cleanup()

	repo := NewSignatureRepository(db)
	now := time.Now().UTC()
	rows := signatureRows().
		AddRow("sig-1", "doc-1", "user-1", "TENANT", "APPROVE", []byte("rendered"),
			"Toko Sinar", "2", true, now, now, "Budi Santoso")
	mock.ExpectQuery(regexp.QuoteMeta("FROM signatures s")).
		WithArgs("doc-1", "user-1").
		WillReturnRows(rows)

	sig, err := repo.FindByDocumentAndSigner(context.Background(), "doc-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, "sig-1", sig.ID)
	require.Equal(t, "Budi Santoso", sig.SignerName)
	require.NotNil(t, sig.VisibilityVote)
	require.True(t, *sig.VisibilityVote)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureRepositoryListByDocument(t *testing.T) {
	db, mock, cleanup := newSignatureRepoMock(t)
	defer cleanup()

	repo := NewSignatureRepository(db)
	now := time.Now().UTC()
	rows := signatureRows().
		AddRow("sig-1", "doc-1", "user-1", "TENANT", "APPROVE", []byte("a"), "Toko Sinar", "2", true, now, now, "Budi").
		AddRow("sig-2", "doc-1", "user-2", "LANDLORD", "REJECT", []byte("b"), "Blok B-12", "1", nil, now, now, "Siti")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.created_at ASC")).
		WithArgs("doc-1").
		WillReturnRows(rows)

	signatures, err := repo.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, signatures, 2)
	require.Nil(t, signatures[1].VisibilityVote)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newSignatureRepoMock(t)
	defer cleanup()

	repo := NewSignatureRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE signatures")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Signature{
		ID:       "sig-404",
		Role:     models.TenancyRoleTenant,
		Position: models.PositionReject,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureRepositorySetVisibilityVote(t *testing.T) {
	db, mock, cleanup := newSignatureRepoMock(t)
	defer cleanup()

	repo := NewSignatureRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("visibility_vote IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.SetVisibilityVote(context.Background(), "doc-1", "user-1", true)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignatureRepositorySetVisibilityVoteLosesWhenAlreadySet(t *testing.T) {
	db, mock, cleanup := newSignatureRepoMock(t)
	defer cleanup()

	repo := NewSignatureRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("visibility_vote IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.SetVisibilityVote(context.Background(), "doc-1", "user-1", false)
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}
