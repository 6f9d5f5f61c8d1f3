package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestBuildDSN_SQLite はSQLite用のDSNがWALとbusy_timeout付きで生成されることを検証します。
func TestBuildDSN_SQLite(t *testing.T) {
	t.Parallel()

	cfg := Config{Driver: DriverSQLite, Path: "database/cvara.db"}

	dsn := BuildDSN(cfg)

	expected := "file:database/cvara.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	if dsn != expected {
		t.Errorf("expected DSN %q, got %q", expected, dsn)
	}
}

// TestBuildDSN_Postgres はPostgreSQL用のDSN文字列が正しく生成されることを検証します。
func TestBuildDSN_Postgres(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Driver:   DriverPostgres,
		User:     "testuser",
		Password: "testpass",
		Name:     "testdb",
		Host:     "localhost",
		Port:     "5432",
	}

	dsn := BuildDSN(cfg)

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable TimeZone=UTC"
	if dsn != expected {
		t.Errorf("expected DSN %q, got %q", expected, dsn)
	}
}

// TestConnectWithRetry_SuccessOnFirstTry は初回接続成功時にリトライせずDBを返すことを検証します。
func TestConnectWithRetry_SuccessOnFirstTry(t *testing.T) {
	t.Parallel()

	mockDB := &gorm.DB{}
	attempts := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attempts++
		return mockDB, nil
	}

	db, err := ConnectWithRetry("test-dsn", 5*time.Second, opener)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != mockDB {
		t.Error("expected mock DB to be returned")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

// TestConnectWithRetry_RetriesOnFailure は接続失敗時にリトライして最終的に成功することを検証します。
func TestConnectWithRetry_RetriesOnFailure(t *testing.T) {
	// Not parallel: retryInterval is shortened for this test.
	orig := retryInterval
	retryInterval = 10 * time.Millisecond
	t.Cleanup(func() { retryInterval = orig })

	mockDB := &gorm.DB{}
	attemptCount := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attemptCount++
		if attemptCount < 3 {
			return nil, errors.New("connection refused")
		}
		return mockDB, nil
	}

	db, err := ConnectWithRetry("test-dsn", 5*time.Second, opener)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != mockDB {
		t.Error("expected mock DB to be returned")
	}
	if attemptCount != 3 {
		t.Errorf("expected 3 attempts, got %d", attemptCount)
	}
}

// TestConnectWithRetry_TimeoutAfterRetries はタイムアウト後にエラーが返されることを検証します。
func TestConnectWithRetry_TimeoutAfterRetries(t *testing.T) {
	orig := retryInterval
	retryInterval = 10 * time.Millisecond
	t.Cleanup(func() { retryInterval = orig })

	attemptCount := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attemptCount++
		return nil, errors.New("connection refused")
	}

	_, err := ConnectWithRetry("test-dsn", 30*time.Millisecond, opener)

	if err == nil {
		t.Fatal("expected error after timeout, got nil")
	}
	if attemptCount == 0 {
		t.Error("expected at least one connection attempt")
	}
}

// TestLoadConfigFromEnv は環境変数からデータベース設定が正しく読み込まれることを検証します。
func TestLoadConfigFromEnv(t *testing.T) {
	// Not parallel: modifies environment variables.
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DB_PATH", "")
	t.Setenv("DB_USER", "envuser")
	t.Setenv("DB_PASSWORD", "envpass")
	t.Setenv("DB_NAME", "envdb")
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("RUN_MIGRATIONS", "")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "envuser", cfg.User)
	assert.Equal(t, "envpass", cfg.Password)
	assert.Equal(t, "envdb", cfg.Name)
	assert.Equal(t, "envhost", cfg.Host)
	assert.Equal(t, "5433", cfg.Port)
	assert.False(t, cfg.RunMigrations, "postgres migrations are opt-in")
}

// TestLoadConfigFromEnv_SQLiteDefaults はSQLiteのデフォルト値を検証します。
func TestLoadConfigFromEnv_SQLiteDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("RUN_MIGRATIONS", "")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, filepath.Join("database", "cvara.db"), cfg.Path)
	assert.True(t, cfg.RunMigrations)
}

// TestOpenDB_SQLiteMigrates は一時ファイルのSQLiteを開き、モデルをマイグレーションできることを検証します。
func TestOpenDB_SQLiteMigrates(t *testing.T) {
	t.Parallel()

	type probe struct {
		ID   uint `gorm:"primaryKey"`
		Name string
	}

	cfg := Config{
		Driver:        DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "nested", "probe.db"),
		RunMigrations: true,
	}

	db, err := OpenDB(cfg, &probe{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&probe{Name: "x"}).Error)
	var count int64
	require.NoError(t, db.Model(&probe{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
