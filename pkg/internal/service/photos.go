package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/staticmd/pkg/configs"
	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/storage/blob"
	"github.com/yeisme/staticmd/pkg/queue"
	"github.com/yeisme/staticmd/pkg/tracing"
)

const (
	// BlobCacheControl 写入对象存储时的缓存指令.
	BlobCacheControl = "public, max-age=315360000"

	// TagAnalyzed 打标完成标记，存在时 ApplyTags 不再修改.
	TagAnalyzed = "ai:analyzed"

	tagCASRetries = 3
)

var errTagConflict = errors.New("tags changed concurrently")

// IngestInput 一次文件上传.
type IngestInput struct {
	Name   string
	Data   []byte
	MIME   string
	Origin string
}

// PhotoRef 入库结果. Created 为 false 表示命中已有内容.
type PhotoRef struct {
	Fingerprint string `json:"fingerprint"`
	StorageKey  string `json:"storage_key"`
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Created     bool   `json:"created"`
}

// PhotoStore 按内容去重保存图片.
type PhotoStore struct {
	db     *gorm.DB
	blobs  blob.Store
	fp     *Fingerprinter
	events *queue.Emitter
	clock  clockwork.Clock
	cfg    configs.UploadConfig
}

// NewPhotoStore events 可以为 nil.
func NewPhotoStore(db *gorm.DB, blobs blob.Store, events *queue.Emitter, clock clockwork.Clock, cfg configs.UploadConfig) *PhotoStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &PhotoStore{
		db:     db,
		blobs:  blobs,
		fp:     NewFingerprinter(cfg.MaxFileBytes, cfg.AllowVideo),
		events: events,
		clock:  clock,
		cfg:    cfg,
	}
}

// Ingest 准入后按指纹去重：新内容写对象存储并原子创建图片、两条链接和首个来源，
// 已有内容只累加上传次数并合并来源.
func (s *PhotoStore) Ingest(ctx context.Context, in IngestInput) (PhotoRef, error) {
	ctx, span := tracing.StartSpan(ctx, "photo.ingest")
	defer span.End()

	fingerprint, format, err := s.fp.Admit(in.Name, in.Data, in.MIME)
	if err != nil {
		return PhotoRef{}, err
	}

	span.SetAttributes(attribute.String("photo.fingerprint", fingerprint))

	origin := in.Origin
	if origin == "" {
		origin = "unknown"
	}

	var existing model.Photo

	err = s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).Take(&existing).Error

	switch {
	case err == nil:
		return s.ingestDuplicate(ctx, fingerprint, origin)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		tracing.RecordError(span, err)
		return PhotoRef{}, storageFault("lookup photo", err)
	}

	ref, err := s.ingestNew(ctx, in, fingerprint, format, origin)
	tracing.RecordError(span, err)

	return ref, err
}

func (s *PhotoStore) ingestNew(ctx context.Context, in IngestInput, fingerprint, format, origin string) (PhotoRef, error) {
	key := fingerprint + "." + format
	contentType := ContentTypeFor(format)

	if err := s.blobs.Put(ctx, blob.Object{
		Key:          key,
		Body:         bytes.NewReader(in.Data),
		Size:         int64(len(in.Data)),
		ContentType:  contentType,
		CacheControl: BlobCacheControl,
	}); err != nil {
		return PhotoRef{}, storageFault("put blob", err)
	}

	width, height := Probe(in.Data)

	photo := model.Photo{
		Fingerprint:  fingerprint,
		StorageKey:   key,
		Format:       format,
		ContentType:  contentType,
		Width:        width,
		Height:       height,
		SizeBytes:    int64(len(in.Data)),
		OriginalName: in.Name,
		Host:         s.cfg.Host,
		UploadCount:  1,
		LinksJSON:    model.EncodeList([]string{key, fingerprint}),
		TagsJSON:     model.EncodeList(nil),
		CreatedAt:    s.clock.Now(),
		UpdatedAt:    s.clock.Now(),
	}

	lost := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&photo)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			lost = true
			return nil
		}

		// 链接码由内容决定，已存在即指向同一指纹
		for _, code := range []string{key, fingerprint} {
			if err := registerLink(tx, code, model.TargetPhoto, fingerprint); err != nil && !errors.Is(err, ErrAlreadyExists) {
				return err
			}
		}

		return insertSource(tx, fingerprint, origin)
	})
	if err != nil {
		return PhotoRef{}, storageFault("create photo", err)
	}

	if lost {
		ctxPkg.Logger(ctx).Debug().Str("fingerprint", fingerprint).Msg("photo creation race lost, counting as duplicate")
		return s.ingestDuplicate(ctx, fingerprint, origin)
	}

	ref := PhotoRef{
		Fingerprint: fingerprint,
		StorageKey:  key,
		URL:         s.cfg.PublicURL(key),
		Width:       width,
		Height:      height,
		Created:     true,
	}

	if err := s.events.PhotoStored(ctx, queue.PhotoStoredPayload{
		Fingerprint:  fingerprint,
		StorageKey:   key,
		Format:       format,
		ContentType:  contentType,
		Width:        width,
		Height:       height,
		SizeBytes:    photo.SizeBytes,
		URL:          ref.URL,
		OriginalName: in.Name,
	}); err != nil {
		ctxPkg.Logger(ctx).Warn().Err(err).Str("fingerprint", fingerprint).Msg("publish photo stored failed")
	}

	return ref, nil
}

func (s *PhotoStore) ingestDuplicate(ctx context.Context, fingerprint, origin string) (PhotoRef, error) {
	var photo model.Photo

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Photo{}).
			Where("fingerprint = ?", fingerprint).
			Updates(map[string]any{
				"upload_count": gorm.Expr("upload_count + ?", 1),
				"updated_at":   s.clock.Now(),
			})
		if res.Error != nil {
			return res.Error
		}

		if err := insertSource(tx, fingerprint, origin); err != nil {
			return err
		}

		return tx.Where("fingerprint = ?", fingerprint).Take(&photo).Error
	})
	if err != nil {
		return PhotoRef{}, storageFault("record duplicate", err)
	}

	return s.refOf(&photo, false), nil
}

func insertSource(tx *gorm.DB, fingerprint, origin string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.PhotoSource{Fingerprint: fingerprint, Address: origin}).Error
}

func (s *PhotoStore) refOf(p *model.Photo, created bool) PhotoRef {
	return PhotoRef{
		Fingerprint: p.Fingerprint,
		StorageKey:  p.StorageKey,
		URL:         s.cfg.PublicURL(primaryLink(p)),
		Width:       p.Width,
		Height:      p.Height,
		Created:     created,
	}
}

func primaryLink(p *model.Photo) string {
	if links := p.Links(); len(links) > 0 {
		return links[0]
	}

	return p.StorageKey
}

// Get 按指纹读取图片，屏蔽的图片视为不存在.
func (s *PhotoStore) Get(ctx context.Context, fingerprint string) (*model.Photo, error) {
	var photo model.Photo

	err := s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).Take(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, storageFault("load photo", err)
	}

	if photo.Blocked {
		return nil, ErrNotFound
	}

	return &photo, nil
}

// Open 打开图片内容，调用方负责关闭.
func (s *PhotoStore) Open(ctx context.Context, p *model.Photo) (io.ReadCloser, error) {
	rc, _, err := s.blobs.Open(ctx, p.StorageKey)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, storageFault("open blob", err)
	}

	return rc, nil
}

// viewLogSampler 浏览计数失败日志只保留百分之一.
var viewLogSampler = &zerolog.BasicSampler{N: 100}

// RecordView 累加浏览次数，失败只记日志.
func (s *PhotoStore) RecordView(ctx context.Context, fingerprint string) {
	err := s.db.WithContext(ctx).Model(&model.Photo{}).
		Where("fingerprint = ?", fingerprint).
		UpdateColumns(map[string]any{
			"seen_count":   gorm.Expr("seen_count + ?", 1),
			"last_seen_at": s.clock.Now(),
		}).Error
	if err != nil {
		l := ctxPkg.Logger(ctx).Sample(viewLogSampler)
		l.Warn().Err(err).Str("fingerprint", fingerprint).Msg("record view failed")
	}
}

// ApplyTags 合并小写去重后的标签并追加 TagAnalyzed，已有标记时不做修改.
// 标签列表按比较并交换更新，返回最终标签.
func (s *PhotoStore) ApplyTags(ctx context.Context, fingerprint string, tags []string, source string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "photo.apply_tags")
	defer span.End()

	for range tagCASRetries {
		var photo model.Photo

		err := s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).Take(&photo).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		if err != nil {
			return nil, storageFault("load photo", err)
		}

		current := photo.Tags()
		if slices.Contains(current, TagAnalyzed) {
			return current, nil
		}

		merged := MergeTags(current, tags)

		res := s.db.WithContext(ctx).Model(&model.Photo{}).
			Where("fingerprint = ? AND tags = ?", fingerprint, photo.TagsJSON).
			UpdateColumn("tags", model.EncodeList(merged))
		if res.Error != nil {
			tracing.RecordError(span, res.Error)
			return nil, storageFault("update tags", res.Error)
		}

		if res.RowsAffected == 0 {
			continue
		}

		if err := s.events.PhotoTagged(ctx, queue.PhotoTaggedPayload{
			Fingerprint: fingerprint,
			Tags:        merged,
			Source:      source,
		}); err != nil {
			ctxPkg.Logger(ctx).Warn().Err(err).Str("fingerprint", fingerprint).Msg("publish photo tagged failed")
		}

		return merged, nil
	}

	tracing.RecordError(span, errTagConflict)

	return nil, storageFault("apply tags", errTagConflict)
}

// MergeTags 保持已有顺序，新标签转小写去重，末尾追加 TagAnalyzed.
func MergeTags(current, incoming []string) []string {
	out := make([]string, 0, len(current)+len(incoming)+1)
	seen := make(map[string]struct{}, cap(out))

	add := func(t string) {
		if t == "" {
			return
		}

		if _, ok := seen[t]; ok {
			return
		}

		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range current {
		add(t)
	}

	for _, t := range incoming {
		add(strings.ToLower(strings.TrimSpace(t)))
	}

	add(TagAnalyzed)

	return out
}

// PendingTagging 返回创建超过 age 且未打标的图片，补打标任务使用.
func (s *PhotoStore) PendingTagging(ctx context.Context, age time.Duration, limit int) ([]model.Photo, error) {
	var photos []model.Photo

	cutoff := s.clock.Now().Add(-age)

	err := s.db.WithContext(ctx).
		Where("created_at < ? AND blocked = ? AND tags NOT LIKE ?", cutoff, false, `%"`+TagAnalyzed+`"%`).
		Order("created_at").
		Limit(limit).
		Find(&photos).Error
	if err != nil {
		return nil, storageFault("list untagged photos", err)
	}

	return photos, nil
}

// Republish 重新发布 smd.photo.stored.
func (s *PhotoStore) Republish(ctx context.Context, p *model.Photo) error {
	return s.events.PhotoStored(ctx, queue.PhotoStoredPayload{
		Fingerprint:  p.Fingerprint,
		StorageKey:   p.StorageKey,
		Format:       p.Format,
		ContentType:  p.ContentType,
		Width:        p.Width,
		Height:       p.Height,
		SizeBytes:    p.SizeBytes,
		URL:          s.cfg.PublicURL(primaryLink(p)),
		OriginalName: p.OriginalName,
		Backfill:     true,
	})
}
