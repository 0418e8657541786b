//go:build !no_sqlite && cgo

package db

import (
	"regexp"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/staticmd/pkg/configs"
)

var pragmaBusyTimeout = regexp.MustCompile(`_pragma=busy_timeout\((\d+)\)`)

// createSQLiteDialector CGo 版本. 配置生成的 DSN 使用纯 Go 驱动的 _pragma 写法，这里转换为 mattn 的参数.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(pragmaBusyTimeout.ReplaceAllString(dsn, "_busy_timeout=$1"))
}

func init() {
	RegisterDialectorFactory(createSQLiteDialector, configs.SQLite)
}
