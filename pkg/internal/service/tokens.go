package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/jonboulle/clockwork"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/metrics"
)

// TokenSecretLength 令牌长度.
const TokenSecretLength = 100

// IssuedToken 新签发的令牌.
type IssuedToken struct {
	Secret       string
	ValidFrom    time.Time
	ExpireAt     time.Time
	Delay        int // 秒
	ValidSeconds int
	ServerTime   time.Time
}

// TokenService v2 上传令牌. 令牌在窗口内可重复校验，不会被消费.
type TokenService struct {
	db    *gorm.DB
	clock clockwork.Clock
	cfg   configs.UploadConfig
	delay func(lo, hi int) (int, error)
}

// NewTokenService clock 为 nil 时使用系统时钟.
func NewTokenService(db *gorm.DB, clock clockwork.Clock, cfg configs.UploadConfig) *TokenService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.TokenValidSeconds <= 0 {
		cfg.TokenValidSeconds = configs.DefaultTokenValidSeconds
	}

	return &TokenService{db: db, clock: clock, cfg: cfg, delay: randomDelay}
}

// WithDelay 固定延迟来源，测试使用.
func (s *TokenService) WithDelay(fn func(lo, hi int) (int, error)) *TokenService {
	cp := *s
	cp.delay = fn

	return &cp
}

func randomDelay(lo, hi int) (int, error) {
	if hi <= lo {
		return lo, nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		return 0, err
	}

	return lo + int(n.Int64()), nil
}

// Issue 签发令牌，生效时间延后 d 秒，有效期 token_valid_seconds.
func (s *TokenService) Issue(ctx context.Context, fingerprint string) (IssuedToken, error) {
	d, err := s.delay(s.cfg.TokenMinDelaySeconds, s.cfg.TokenMaxDelaySeconds)
	if err != nil {
		return IssuedToken{}, err
	}

	secret, err := gonanoid.Generate(alphanumeric, TokenSecretLength)
	if err != nil {
		return IssuedToken{}, err
	}

	now := s.clock.Now().UTC()
	tok := model.UploadToken{
		Fingerprint: fingerprint,
		Secret:      secret,
		ValidFrom:   now.Add(time.Duration(d) * time.Second),
		ExpireAt:    now.Add(time.Duration(d+s.cfg.TokenValidSeconds) * time.Second),
		CreatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(&tok).Error; err != nil {
		return IssuedToken{}, storageFault("save token", err)
	}

	return IssuedToken{
		Secret:       secret,
		ValidFrom:    tok.ValidFrom,
		ExpireAt:     tok.ExpireAt,
		Delay:        d,
		ValidSeconds: s.cfg.TokenValidSeconds,
		ServerTime:   now,
	}, nil
}

// Validate 令牌与指纹匹配且当前时间在 [ValidFrom, ExpireAt] 内.
func (s *TokenService) Validate(ctx context.Context, fingerprint, secret string) error {
	if fingerprint == "" || secret == "" {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		return ErrTokenInvalid
	}

	var tok model.UploadToken

	err := s.db.WithContext(ctx).
		Where("fingerprint = ? AND secret = ?", fingerprint, secret).
		Take(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		return ErrTokenInvalid
	}

	if err != nil {
		return storageFault("load token", err)
	}

	now := s.clock.Now()
	if now.Before(tok.ValidFrom) || now.After(tok.ExpireAt) {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		return ErrTokenInvalid
	}

	metrics.TokenValidations.WithLabelValues("ok").Inc()

	return nil
}

// Purge 删除过期超过 retention 的令牌，retention <= 0 时保留全部.
func (s *TokenService) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}

	cutoff := s.clock.Now().UTC().Add(-retention)

	res := s.db.WithContext(ctx).Where("expire_at < ?", cutoff).Delete(&model.UploadToken{})
	if res.Error != nil {
		return 0, storageFault("purge tokens", res.Error)
	}

	return res.RowsAffected, nil
}
