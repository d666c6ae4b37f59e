package app

import (
	"context"
	"errors"
	"testing"

	"github.com/Tenac92/LEXIS-sub001/internal/db"
	"github.com/Tenac92/LEXIS-sub001/internal/redis"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInfra(t *testing.T) (*Infra, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client, err := redis.New(mr.Addr(), "", 0)
	require.NoError(t, err)

	infra := &Infra{
		DB:       &db.DB{DB: sqlDB},
		Redis:    client,
		closeGeo: func() error { return nil },
	}
	t.Cleanup(func() { _ = infra.Close() })
	return infra, mock, mr
}

func TestInfraCheck_Healthy(t *testing.T) {
	infra, mock, _ := newTestInfra(t)
	mock.ExpectPing()

	assert.NoError(t, infra.Check(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInfraCheck_ReportsEveryFailingStore(t *testing.T) {
	infra, mock, mr := newTestInfra(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mr.Close()

	err := infra.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db:")
	assert.Contains(t, err.Error(), "redis:")
}
