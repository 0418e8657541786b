package service

import (
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yeisme/staticmd/pkg/cache"
	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/storage"
	"github.com/yeisme/staticmd/pkg/internal/storage/blob"
	"github.com/yeisme/staticmd/pkg/internal/storage/kv"
	"github.com/yeisme/staticmd/pkg/queue"
)

// Deps 业务依赖的存储接口，全部显式注入.
type Deps struct {
	DB        *gorm.DB
	Blob      blob.Store
	KV        kv.KVStore
	Publisher queue.Publisher
	Clock     clockwork.Clock
}

// Services 一组共享依赖的业务组件.
type Services struct {
	Links     *LinkResolver
	Photos    *PhotoStore
	Galleries *GalleryAggregator
	Tokens    *TokenService
	Tagger    *Tagger
	Cache     *cache.Cache
	Upload    configs.UploadConfig
}

// New 按配置组装业务组件. KV 为 nil 时链接解析直接查库.
func New(d Deps, cfg *configs.AppConfig) *Services {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}

	var c *cache.Cache
	if d.KV != nil {
		c = cache.NewCache(d.KV)
	}

	var events *queue.Emitter
	if d.Publisher != nil {
		events = queue.NewEmitter(d.Publisher, cfg.Events, d.Clock)
	}

	links := NewLinkResolver(d.DB, c, cfg.Upload.LinkCacheTTL)
	photos := NewPhotoStore(d.DB, d.Blob, events, d.Clock, cfg.Upload)

	return &Services{
		Links:     links,
		Photos:    photos,
		Galleries: NewGalleryAggregator(d.DB, links, nil, events, d.Clock, cfg.Upload),
		Tokens:    NewTokenService(d.DB, d.Clock, cfg.Upload),
		Tagger:    NewTagger(photos, cfg.Tagging, cfg.CircuitBreaker),
		Cache:     c,
		Upload:    cfg.Upload,
	}
}

// FromManager 使用存储管理器中的客户端组装.
func FromManager(mgr *storage.Manager, cfg *configs.AppConfig) *Services {
	d := Deps{Blob: mgr.GetBlobStore()}

	if dbc := mgr.GetDBClient(); dbc != nil {
		d.DB = dbc.GetDB()
	}

	if kvc := mgr.GetKVClient(); kvc != nil {
		d.KV = kvc
	}

	if mqc := mgr.GetMQClient(); mqc != nil {
		d.Publisher = mqc
	}

	return New(d, cfg)
}
