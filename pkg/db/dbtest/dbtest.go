// Package dbtest opens in-memory sqlite databases carrying the application
// schema, for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var seq atomic.Int64

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE COLLATE NOCASE,
  password_hash TEXT,
  kakao_subject TEXT UNIQUE,
  username TEXT,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  avatar_url TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS popup_stores (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  location TEXT NOT NULL,
  latitude REAL,
  longitude REAL,
  start_date DATE NOT NULL,
  end_date DATE NOT NULL,
  opening_hours TEXT,
  contact_info TEXT,
  images TEXT NOT NULL DEFAULT '{}',
  tags TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'draft',
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  comment TEXT,
  images TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (store_id, user_id)
);
CREATE TABLE IF NOT EXISTS favorites (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, store_id)
);
CREATE TABLE IF NOT EXISTS collaborations (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  requester_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  collaboration_type TEXT NOT NULL,
  contact_email TEXT NOT NULL,
  contact_phone TEXT,
  budget_range TEXT,
  preferred_dates TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (store_id, requester_id)
);`

// Open returns a private in-memory database with every table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	return OpenWithout(t)
}

// OpenWithout omits the named tables, for missing-schema paths.
func OpenWithout(t *testing.T, skip ...string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:dbtest_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || skipped(stmt, skip) {
			continue
		}
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func skipped(stmt string, skip []string) bool {
	for _, name := range skip {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+name+" ") {
			return true
		}
	}
	return false
}
