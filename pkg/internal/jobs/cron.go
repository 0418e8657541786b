// Package jobs 实现维护任务：过期令牌回收与补打标，并注册到 scheduler.
package jobs

import (
	"context"
	"fmt"
	"sort"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/log"
	"github.com/yeisme/staticmd/pkg/scheduler"
)

// Runner 持有任务依赖，cron 与 `staticmd jobs run` 共用.
type Runner struct {
	svc *service.Services
	cfg *configs.AppConfig
}

// NewRunner 创建任务执行器.
func NewRunner(svc *service.Services, cfg *configs.AppConfig) *Runner {
	return &Runner{svc: svc, cfg: cfg}
}

type entry struct {
	cron string
	fn   scheduler.JobFunc
}

// enabled 返回按配置启用的任务. retention <= 0 时令牌永久保留，不注册回收；
// 打标关闭时不注册补打标.
func (r *Runner) enabled() map[string]entry {
	out := map[string]entry{}

	if r.cfg.Upload.TokenRetention > 0 && r.cfg.Jobs.TokenReapCron != "" {
		out[JobTokensReap] = entry{cron: r.cfg.Jobs.TokenReapCron, fn: r.ReapTokens}
	}

	if r.cfg.Tagging.Enabled && r.cfg.Jobs.TagBackfillCron != "" {
		out[JobTagsBackfill] = entry{cron: r.cfg.Jobs.TagBackfillCron, fn: r.BackfillTags}
	}

	return out
}

// Names 已启用任务名，排序后返回.
func (r *Runner) Names() []string {
	jobs := r.enabled()

	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// RegisterCronJobs 将启用的任务注册到调度器.
func RegisterCronJobs(sched *scheduler.Scheduler, r *Runner) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if !r.cfg.Jobs.Enabled {
		log.Logger().Info().Msg("maintenance jobs disabled")
		return nil
	}

	for _, name := range r.Names() {
		e := r.enabled()[name]
		if err := sched.AddCron(name, e.cron, e.fn); err != nil {
			return fmt.Errorf("register job %s: %w", name, err)
		}
	}

	return nil
}

// Run 同步执行一次指定任务，不受 jobs.enabled 影响.
func (r *Runner) Run(ctx context.Context, name string) error {
	switch name {
	case JobTokensReap:
		return r.ReapTokens(ctx)
	case JobTagsBackfill:
		return r.BackfillTags(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
}

// ReapTokens 删除过期超过 upload.token_retention 的令牌.
func (r *Runner) ReapTokens(ctx context.Context) error {
	l := log.Logger().With().Str("job", JobTokensReap).Logger()

	n, err := r.svc.Tokens.Purge(ctx, r.cfg.Upload.TokenRetention)
	if err != nil {
		return err
	}

	if n > 0 {
		l.Info().Int64("deleted", n).Dur("retention", r.cfg.Upload.TokenRetention).Msg("expired tokens reaped")
	}

	return nil
}

// BackfillTags 为超过一小时仍未打标的图片重新发布 smd.photo.stored.
func (r *Runner) BackfillTags(ctx context.Context) error {
	l := log.Logger().With().Str("job", JobTagsBackfill).Logger()

	if !r.cfg.Tagging.Enabled {
		l.Debug().Msg("tagging disabled, skip")
		return nil
	}

	photos, err := r.svc.Photos.PendingTagging(ctx, backfillAge, backfillBatch)
	if err != nil {
		return err
	}

	published := 0

	for i := range photos {
		if !service.IsImageFormat(photos[i].Format) || photos[i].Format == "svg" {
			continue
		}

		if err := r.svc.Photos.Republish(ctx, &photos[i]); err != nil {
			l.Warn().Err(err).Str("fingerprint", photos[i].Fingerprint).Msg("republish failed")
			continue
		}

		published++
	}

	l.Info().Int("candidates", len(photos)).Int("published", published).Msg("tag backfill done")

	return nil
}
