package configs

import (
	"time"

	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
)

// CircuitBreakerConfig HTTP 中间件与打标客户端共用. enabled 只控制 HTTP 中间件.
type CircuitBreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	FailureRate         float64       `mapstructure:"failure_rate"         rule:"gte=0,lte=1"`
	MinRequests         uint32        `mapstructure:"min_requests"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"` // 未达 min_requests 时连续失败多少次即熔断，0 关闭
	Interval            time.Duration `mapstructure:"interval"`             // 计数清零周期
	Timeout             time.Duration `mapstructure:"timeout"`              // 打开状态持续时间
	HalfOpenRequests    uint32        `mapstructure:"half_open_requests"`
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_rate", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 20)
	v.SetDefault("circuit_breaker.consecutive_failures", 5)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.half_open_requests", 5)
}

// Settings 构造指定名称的 gobreaker 参数.
func (c CircuitBreakerConfig) Settings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: c.HalfOpenRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: c.readyToTrip,
	}
}

func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return c.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= c.ConsecutiveFailures
	}

	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRate
}
