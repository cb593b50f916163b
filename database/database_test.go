package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microposts/domain"
)

func TestConnectionInfo(t *testing.T) {
	pg := Config{Driver: "postgres", Host: "localhost", Port: 5432, User: "postgres", Name: "microposts"}
	assert.Equal(t, "host=localhost port=5432 user=postgres dbname=microposts sslmode=disable", pg.ConnectionInfo())

	pg.Password = "pw"
	pg.SSLMode = "require"
	assert.Equal(t, "host=localhost port=5432 user=postgres password=pw dbname=microposts sslmode=require", pg.ConnectionInfo())

	my := Config{Driver: "mysql", Host: "db", Port: 3306, User: "root", Password: "pw", Name: "microposts"}
	assert.Equal(t, "root:pw@tcp(db:3306)/microposts?charset=utf8mb4&parseTime=True&loc=Local", my.ConnectionInfo())

	assert.Equal(t, "/tmp/x.db", Config{Driver: "sqlite", FilePath: "/tmp/x.db"}.ConnectionInfo())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, true)
	assert.Error(t, err)
}

func TestOpenMigrateReset(t *testing.T) {
	cfg := Config{Driver: "sqlite", FilePath: filepath.Join(t.TempDir(), "test.db")}
	db, err := Open(cfg, true)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, AutoMigrate(db))
	for _, table := range []string{"users", "microposts", "user_follow", "favorites"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&domain.Follow{}, "idx_user_follow_pair"))
	assert.True(t, db.Migrator().HasIndex(&domain.Favorite{}, "idx_favorites_pair"))

	require.NoError(t, db.Create(&domain.User{Name: "a", Email: "a@example.com", PasswordHash: "x", RememberHash: "y"}).Error)
	require.NoError(t, DestructiveReset(db))
	var n int64
	require.NoError(t, db.Model(&domain.User{}).Count(&n).Error)
	assert.Zero(t, n)
}
