package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/staticmd/pkg/cache"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/metrics"
)

// DefaultLinkCacheTTL 链接缓存默认有效期.
const DefaultLinkCacheTTL = 10 * time.Minute

// LinkResolver 链接码到图片或相册的一次键查找，前置读穿缓存.
// 链接提交后不可变，未命中不写缓存.
type LinkResolver struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
}

// NewLinkResolver c 为 nil 时直接查库.
func NewLinkResolver(db *gorm.DB, c *cache.Cache, ttl time.Duration) *LinkResolver {
	if ttl <= 0 {
		ttl = DefaultLinkCacheTTL
	}

	return &LinkResolver{db: db, cache: c, ttl: ttl}
}

func linkCacheKey(code string) string { return "link:" + code }

// Resolve 返回链接，不存在时返回 ErrNotFound.
func (r *LinkResolver) Resolve(ctx context.Context, code string) (model.Link, error) {
	if code == "" {
		return model.Link{}, ErrNotFound
	}

	if r.cache == nil {
		return r.load(ctx, code)
	}

	if link, err := cache.Get[model.Link](ctx, r.cache, linkCacheKey(code)); err == nil {
		metrics.LinkLookups.WithLabelValues("hit").Inc()
		return link, nil
	}

	link, err := cache.GetOrSet(ctx, r.cache, linkCacheKey(code), func(ctx context.Context) (model.Link, error) {
		return r.load(ctx, code)
	}, r.ttl)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.LinkLookups.WithLabelValues("not_found").Inc()
		}

		return model.Link{}, err
	}

	metrics.LinkLookups.WithLabelValues("miss").Inc()

	return link, nil
}

func (r *LinkResolver) load(ctx context.Context, code string) (model.Link, error) {
	var link model.Link

	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Link{}, ErrNotFound
	}

	if err != nil {
		return model.Link{}, storageFault("load link", err)
	}

	return link, nil
}

// Exists 链接码是否已被占用，供 CodeGenerator 使用.
func (r *LinkResolver) Exists(ctx context.Context, code string) (bool, error) {
	_, err := r.Resolve(ctx, code)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Register 在调用方事务内写入链接，已存在时返回 ErrAlreadyExists.
func (r *LinkResolver) Register(tx *gorm.DB, code string, typ model.TargetType, id string) error {
	return registerLink(tx, code, typ, id)
}

func registerLink(tx *gorm.DB, code string, typ model.TargetType, id string) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Link{Code: code, TargetType: typ, TargetID: id})
	if res.Error != nil {
		return storageFault("register link", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrAlreadyExists
	}

	return nil
}

// FindGalleryByLinkScan 在相册的 links 列表中查找链接码. 这是 O(n) 的兜底路径，
// 仅用于 links 表缺行的历史数据.
func (r *LinkResolver) FindGalleryByLinkScan(ctx context.Context, code string) (*model.Gallery, error) {
	if code == "" || strings.ContainsAny(code, `"%_\`) {
		return nil, ErrNotFound
	}

	var candidates []model.Gallery

	err := r.db.WithContext(ctx).
		Where("links LIKE ?", `%"`+code+`"%`).
		Order("created_at").
		Find(&candidates).Error
	if err != nil {
		return nil, storageFault("scan galleries", err)
	}

	for i := range candidates {
		for _, l := range candidates[i].Links() {
			if l == code {
				return &candidates[i], nil
			}
		}
	}

	return nil, ErrNotFound
}
