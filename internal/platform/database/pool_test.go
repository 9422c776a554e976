package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	pool, err := New(context.Background(), config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, pool)

	assert.ErrorIs(t, pool.Health(context.Background()), errNotConfigured)
	assert.NoError(t, pool.Close())
}

func TestMigrate(t *testing.T) {
	migrations := fstest.MapFS{
		"002_b.up.sql":   {Data: []byte("CREATE INDEX b;")},
		"001_a.up.sql":   {Data: []byte("CREATE TABLE a;")},
		"001_a.down.sql": {Data: []byte("DROP TABLE a;")},
		"003_empty.up.sql": {Data: []byte("  \n")},
	}

	t.Run("applies up files in order", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE a;").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX b;").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, Migrate(context.Background(), db, migrations))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE a;").WillReturnError(errors.New("permission denied"))

		err = Migrate(context.Background(), db, migrations)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "001_a.up.sql")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
