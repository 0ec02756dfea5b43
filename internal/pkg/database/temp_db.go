package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var tempDBSeq atomic.Int64

// CreateTempDB 为单个测试创建独立的内存数据库并完成迁移, 测试结束时关闭
func CreateTempDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:agora_test_%d?mode=memory&cache=shared&_busy_timeout=5000", tempDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("cannot open temp DB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("cannot get temp DB handle: %v", err)
	}
	// 内存库在最后一个连接关闭时销毁, 固定单连接
	sqlDB.SetMaxOpenConns(1)

	if err = Migrate(db); err != nil {
		t.Fatalf("cannot migrate temp DB: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
