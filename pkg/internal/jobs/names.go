package jobs

import (
	"errors"
	"time"
)

// 任务名称.
const (
	JobTokensReap   = "tokens.reap"
	JobTagsBackfill = "tags.backfill"
)

const (
	// backfillAge 新图片留给打标 worker 的处理时间，超过后才补发.
	backfillAge = time.Hour
	// backfillBatch 单次补发上限.
	backfillBatch = 500
)

// ErrUnknownJob 任务名不存在.
var ErrUnknownJob = errors.New("unknown job")
