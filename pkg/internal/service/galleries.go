package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/staticmd/pkg/configs"
	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/metrics"
	"github.com/yeisme/staticmd/pkg/queue"
	"github.com/yeisme/staticmd/pkg/tracing"
)

// GalleryRef 聚合结果.
type GalleryRef struct {
	ID      string   `json:"id"`
	Code    string   `json:"code"`
	Members []string `json:"members"`
	Created bool     `json:"created"`
}

// GalleryLink 相册中的一张图片.
type GalleryLink struct {
	URL  string    `json:"url"`
	Size PhotoSize `json:"size"`
}

// PhotoSize 图片尺寸.
type PhotoSize struct {
	H int `json:"h"`
	W int `json:"w"`
}

// GalleryAggregator 按成员集合去重创建相册.
type GalleryAggregator struct {
	db     *gorm.DB
	links  *LinkResolver
	codes  *CodeGenerator
	events *queue.Emitter
	clock  clockwork.Clock
	cfg    configs.UploadConfig
}

// NewGalleryAggregator codes 为 nil 时使用 links.Exists 检查冲突.
func NewGalleryAggregator(db *gorm.DB, links *LinkResolver, codes *CodeGenerator, events *queue.Emitter,
	clock clockwork.Clock, cfg configs.UploadConfig,
) *GalleryAggregator {
	if codes == nil {
		codes = NewCodeGenerator(links.Exists)
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &GalleryAggregator{db: db, links: links, codes: codes, events: events, clock: clock, cfg: cfg}
}

// MembershipKey 排序后以 "|" 连接，与顺序无关.
func MembershipKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	return strings.Join(sorted, "|")
}

func membershipHash(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

// dedupe 保留首次出现的顺序.
func dedupe(refs []PhotoRef) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))

	for _, r := range refs {
		if _, ok := seen[r.StorageKey]; ok {
			continue
		}

		seen[r.StorageKey] = struct{}{}
		out = append(out, r.StorageKey)
	}

	return out
}

// GroupOrReuse 同一成员集合只对应一个相册，已存在时直接复用.
func (g *GalleryAggregator) GroupOrReuse(ctx context.Context, refs []PhotoRef) (GalleryRef, error) {
	ctx, span := tracing.StartSpan(ctx, "gallery.group")
	defer span.End()

	members := dedupe(refs)
	if len(members) == 0 {
		return GalleryRef{}, ErrNoPhotosToGroup
	}

	key := MembershipKey(members)
	hash := membershipHash(key)
	span.SetAttributes(attribute.Int("gallery.members", len(members)))

	if existing, err := g.findByHash(ctx, hash); err == nil {
		metrics.GalleriesTotal.WithLabelValues("reused").Inc()
		return toGalleryRef(existing, false), nil
	} else if !errors.Is(err, ErrNotFound) {
		tracing.RecordError(span, err)
		return GalleryRef{}, err
	}

	length := g.cfg.GalleryCodeLength
	if length <= 0 {
		length = configs.DefaultGalleryCodeLength
	}

	code, err := g.codes.NewUniqueCode(ctx, length)
	if err != nil {
		tracing.RecordError(span, err)
		return GalleryRef{}, err
	}

	gallery := model.Gallery{
		ID:             ulid.MustNew(ulid.Timestamp(g.clock.Now()), rand.Reader).String(),
		MembershipKey:  key,
		MembershipHash: hash,
		PhotoIDsJSON:   model.EncodeList(members),
		LinksJSON:      model.EncodeList([]string{code}),
		TagsJSON:       model.EncodeList(nil),
		CreatedAt:      g.clock.Now(),
	}

	lost := false

	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gallery)
		if res.Error != nil {
			return storageFault("create gallery", res.Error)
		}

		if res.RowsAffected == 0 {
			lost = true
			return nil
		}

		return registerLink(tx, code, model.TargetGallery, gallery.ID)
	})
	if err != nil {
		tracing.RecordError(span, err)

		if errors.Is(err, ErrAlreadyExists) {
			return GalleryRef{}, storageFault("register gallery link", err)
		}

		return GalleryRef{}, err
	}

	if lost {
		winner, err := g.findByHash(ctx, hash)
		if err != nil {
			return GalleryRef{}, err
		}

		metrics.GalleriesTotal.WithLabelValues("reused").Inc()

		return toGalleryRef(winner, false), nil
	}

	metrics.GalleriesTotal.WithLabelValues("created").Inc()

	if err := g.events.GalleryCreated(ctx, queue.GalleryCreatedPayload{
		GalleryID: gallery.ID,
		Code:      code,
		PhotoIDs:  members,
		URL:       g.cfg.PublicURL("g/" + code),
	}); err != nil {
		ctxPkg.Logger(ctx).Warn().Err(err).Str("gallery", gallery.ID).Msg("publish gallery created failed")
	}

	return toGalleryRef(&gallery, true), nil
}

func (g *GalleryAggregator) findByHash(ctx context.Context, hash string) (*model.Gallery, error) {
	var gallery model.Gallery

	err := g.db.WithContext(ctx).Where("membership_hash = ?", hash).Take(&gallery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, storageFault("find gallery", err)
	}

	return &gallery, nil
}

func toGalleryRef(g *model.Gallery, created bool) GalleryRef {
	return GalleryRef{ID: g.ID, Code: g.PrimaryCode(), Members: g.PhotoIDs(), Created: created}
}

// Lookup 先查链接表，找不到时退回相册 links 扫描.
func (g *GalleryAggregator) Lookup(ctx context.Context, code string) (*model.Gallery, error) {
	link, err := g.links.Resolve(ctx, code)

	switch {
	case err == nil && link.TargetType == model.TargetGallery:
		var gallery model.Gallery

		err = g.db.WithContext(ctx).Where("id = ?", link.TargetID).Take(&gallery).Error
		if err == nil {
			return &gallery, nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storageFault("load gallery", err)
		}
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	return g.links.FindGalleryByLinkScan(ctx, code)
}

// GalleryLinks 按展示顺序返回成员图片，已消失的图片跳过.
func (g *GalleryAggregator) GalleryLinks(ctx context.Context, code string) ([]GalleryLink, error) {
	ctx, span := tracing.StartSpan(ctx, "gallery.links")
	defer span.End()

	gallery, err := g.Lookup(ctx, code)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	members := gallery.PhotoIDs()
	if len(members) == 0 {
		return []GalleryLink{}, nil
	}

	var photos []model.Photo
	if err := g.db.WithContext(ctx).Where("storage_key IN ?", members).Find(&photos).Error; err != nil {
		return nil, storageFault("load gallery photos", err)
	}

	byKey := make(map[string]*model.Photo, len(photos))
	for i := range photos {
		byKey[photos[i].StorageKey] = &photos[i]
	}

	out := make([]GalleryLink, 0, len(members))

	for _, id := range members {
		p, ok := byKey[id]
		if !ok {
			continue
		}

		out = append(out, GalleryLink{
			URL:  g.cfg.PublicURL(primaryLink(p)),
			Size: PhotoSize{H: p.Height, W: p.Width},
		})
	}

	return out, nil
}
