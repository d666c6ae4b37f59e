package credentials

import (
	"context"
	"testing"

	"github.com/Tenac92/LEXIS-sub001/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const userID = "0b9e7f0c-1a2b-4c3d-8e9f-a0b1c2d3e4f5"

func newMock(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewServiceWithHasher(&db.DB{DB: sqlDB}, testHasher), mock
}

var testHasher = NewHasher(bcrypt.MinCost)

func mustHash(t *testing.T, h Hasher, password string) string {
	t.Helper()
	hash, _, err := h.Hash(password)
	require.NoError(t, err)
	return hash
}

func TestHasher_RoundTrip(t *testing.T) {
	hash, version, err := testHasher.Hash("correct horse")
	require.NoError(t, err)
	assert.Equal(t, HashVersionBcrypt, version)
	assert.NoError(t, testHasher.Verify(hash, "correct horse"))
	assert.ErrorIs(t, testHasher.Verify(hash, "wrong horse"), ErrInvalidCredentials)
	assert.False(t, testHasher.NeedsRehash(hash))
	assert.True(t, NewHasher(bcrypt.MinCost+1).NeedsRehash(hash))

	_, _, err = testHasher.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestNewHasher_OutOfRangeCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
}

func TestAuthenticate_UpgradesStaleHash(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	s := NewServiceWithHasher(&db.DB{DB: sqlDB}, NewHasher(bcrypt.MinCost+1))

	mock.ExpectQuery(`SELECT u.id, u.role, c.password_hash`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "password_hash"}).
			AddRow(userID, "user", mustHash(t, testHasher, "s3cret-pass")))
	mock.ExpectExec(`UPDATE credentials`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), HashVersionBcrypt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := s.Authenticate(context.Background(), "clerk@example.gr", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.False(t, p.IsAdmin())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate_ReturnsPrincipal(t *testing.T) {
	s, mock := newMock(t)
	hash := mustHash(t, testHasher, "s3cret-pass")

	mock.ExpectQuery(`SELECT u.id, u.role, c.password_hash`).
		WithArgs("clerk@example.gr").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "password_hash"}).AddRow(userID, "manager", hash))

	p, err := s.Authenticate(context.Background(), "clerk@example.gr", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: userID, Role: "manager"}, p)
}

func TestAuthenticate_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	s, mock := newMock(t)
	hash := mustHash(t, testHasher, "s3cret-pass")

	mock.ExpectQuery(`SELECT u.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "password_hash"}).AddRow(userID, "user", hash))
	_, err := s.Authenticate(context.Background(), "clerk@example.gr", "guess")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery(`SELECT u.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "password_hash"}))
	_, err = s.Authenticate(context.Background(), "nobody@example.gr", "guess")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_CreatesUserCredentialsAndUnits(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users`).
		WithArgs("new@example.gr").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("new@example.gr", "user").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO credentials`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_units`).
		WithArgs(sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_units`).
		WithArgs(sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.Register(context.Background(), "new@example.gr", "long-enough", "", []int64{4, 9})
	require.NoError(t, err)
	assert.Equal(t, userID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_AlreadyRegistered(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := s.Register(context.Background(), "old@example.gr", "long-enough", "user", nil)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.NoError(t, mock.ExpectationsWereMet())
}
