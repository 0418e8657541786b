//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/staticmd/pkg/configs"
)

// mysqlIndexedStringSize utf8mb4 下单列索引最多 767 字节.
const mysqlIndexedStringSize = 191

func createMySQLDialector(dsn string) gorm.Dialector {
	return mysql.New(mysql.Config{
		DSN:               dsn,
		DefaultStringSize: mysqlIndexedStringSize,
	})
}

func init() {
	RegisterDialectorFactory(createMySQLDialector, configs.MySQL, configs.MariaDB)
}
