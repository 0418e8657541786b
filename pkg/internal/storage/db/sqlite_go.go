//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/staticmd/pkg/configs"
)

// createSQLiteDialector 纯 Go 版本，测试与单机部署默认使用. 事务内的条件插入依赖 DSN 中的 busy_timeout.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(dsn)
}

func init() {
	RegisterDialectorFactory(createSQLiteDialector, configs.SQLite)
}
