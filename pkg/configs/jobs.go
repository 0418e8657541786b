package configs

import "github.com/spf13/viper"

// JobsConfig 维护任务的调度.
type JobsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	TokenReapCron   string `mapstructure:"token_reap_cron"`
	TagBackfillCron string `mapstructure:"tag_backfill_cron"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.token_reap_cron", "*/5 * * * *")
	v.SetDefault("jobs.tag_backfill_cron", "30 3 * * *")
}
