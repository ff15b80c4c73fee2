// Package testutil connects tests to the local test Postgres (5433) and
// Redis (6380). Callers skip when the infrastructure is not running.
package testutil

import (
	"context"
	"fmt"
	"log"
	"testing"

	"ticket-booking/config"
	"ticket-booking/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// SetupDatabase 連線測試 DB 並建立 schema
func SetupDatabase() (*pgxpool.Pool, func(), error) {
	cfg := config.LoadTestConfig()

	testDB, err := database.InitDatabase(context.Background(), &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize test database: %v", err)
	}

	if err := database.Migrate(context.Background(), testDB); err != nil {
		testDB.Close()
		return nil, nil, fmt.Errorf("failed to migrate test database: %v", err)
	}

	log.Println("Test database connected successfully")

	cleanup := func() {
		testDB.Close()
		log.Println("Test database closed")
	}
	return testDB, cleanup, nil
}

// SetupRedisOnly 僅初始化 Redis，用於只依賴 Redis 的測試（如 queue 整合測試）
func SetupRedisOnly() (*redis.Client, func(), error) {
	cfg := config.LoadTestConfig()
	rdb, err := database.InitRedis(context.Background(), &cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %v", err)
	}
	cleanup := func() { rdb.Close() }
	return rdb, cleanup, nil
}

// Require skips t when the shared resource failed to come up in TestMain.
func Require(t *testing.T, resource any, setupErr error) {
	t.Helper()
	if setupErr != nil || resource == nil {
		t.Skipf("test infrastructure not available: %v", setupErr)
	}
}
