package log

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

// GormLogger 返回写入同一 zerolog 实例的 gorm logger.
// debug 时输出全部 SQL，否则只记录慢查询与错误.
func GormLogger(debug bool, slow time.Duration) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	return logger.New(gormWriter{Logger()}, logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormWriter struct {
	l *zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.l.Debug().Str("component", "gorm").Msgf(format, args...)
}
