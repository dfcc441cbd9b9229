// Package testutil holds fixtures shared by repository and service tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stockledger/stockledger/pkg/database"
)

// NewDB opens a private SQLite database under t.TempDir() with the full
// schema. A single connection serializes transactions the way row locks
// would. The database lives in a file, so a connection discarded by a
// cancelled transaction does not take the schema with it.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, 1)
}

// NewPooledDB is NewDB with up to conns connections, for tests in which
// units of work really overlap. Transactions start deferred: a unit of work
// takes no SQLite lock until its first statement.
func NewPooledDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	return open(t, conns)
}

func open(t *testing.T, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), uuid.NewString()+".db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}
