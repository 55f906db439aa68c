// Package testutil provides testing utilities and helpers.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/cache"
	"github.com/oggyb/destined/internal/config"
	"github.com/oggyb/destined/internal/db"
	"github.com/oggyb/destined/internal/logger"
	"github.com/oggyb/destined/internal/metrics"
)

// NewTestDB opens an isolated in-memory SQLite database with the full schema.
// A single connection serializes writers the way row locks do on MySQL.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// NewTestCache starts a miniredis and returns a cache bound to it.
func NewTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

// NewTestApp wires an AppContext over SQLite, miniredis and a discarded logger.
func NewTestApp(t *testing.T) *app.AppContext {
	t.Helper()

	cfg := config.New()
	cfg.Match.ScanBatchSize = 2 // force several pages in tests
	rc, _ := NewTestCache(t)

	return app.New(cfg, NewTestDB(t), rc, logger.Discard(), metrics.New(prometheus.NewRegistry()))
}

// CreateUser inserts a VERIFIED user with the given interests as
// alternating interest/option pairs.
func CreateUser(t *testing.T, gdb *gorm.DB, name string, pairs ...string) db.User {
	t.Helper()
	require.True(t, len(pairs)%2 == 0, "interests must be interest/option pairs")

	u := db.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@test.com",
		PasswordHash: "x",
		Phone:        "000",
		Gender:       "MALE",
		IsActive:     db.StatusVerified,
		LastActiveAt: time.Now().UTC(),
	}
	for i := 0; i < len(pairs); i += 2 {
		u.Interests = append(u.Interests, db.UserInterest{Interest: pairs[i], SelectedOption: pairs[i+1]})
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// Reload fetches the user row again.
func Reload(t *testing.T, gdb *gorm.DB, id uint64) db.User {
	t.Helper()
	var u db.User
	require.NoError(t, gdb.First(&u, id).Error)
	return u
}

// IDs returns the second column of a two-column set table for owner.
func IDs(t *testing.T, gdb *gorm.DB, table, ownerCol, memberCol string, owner uint64) []uint64 {
	t.Helper()
	var ids []uint64
	require.NoError(t, gdb.Table(table).Where(ownerCol+" = ?", owner).Order(memberCol).Pluck(memberCol, &ids).Error)
	return ids
}
