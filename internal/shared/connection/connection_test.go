package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectDB_UnsupportedDriver(t *testing.T) {
	db, err := ConnectDB(DBConfig{Driver: "oracle"}, 1)

	assert.Nil(t, db)
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestConnectDB_SQLite(t *testing.T) {
	db, err := ConnectDB(DBConfig{Driver: DriverSQLite, Path: t.TempDir() + "/leave.sqlite3"}, 1)
	assert.NoError(t, err)

	var fk int
	assert.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	assert.NoError(t, sqlDB.Close())
}
