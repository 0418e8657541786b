package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yeisme/staticmd/pkg/configs"
	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/storage/mq"
	"github.com/yeisme/staticmd/pkg/queue"
	"github.com/yeisme/staticmd/pkg/tracing"
)

// TaggerHandlerName 订阅 smd.photo.stored 的处理器名.
const TaggerHandlerName = "photo-tagger"

var safeSearchFlags = map[string]string{
	"adult":    "nsfw",
	"violence": "violence",
	"racy":     "racy",
	"medical":  "medical",
}

// Annotation 外部打标服务的响应.
type Annotation struct {
	SafeSearch map[string]string `json:"safe_search"`
	Labels     []Label           `json:"labels"`
}

// Label 一个识别标签.
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type annotateRequest struct {
	URL         string `json:"url"`
	Fingerprint string `json:"fingerprint"`
	ContentType string `json:"content_type"`
}

// Tagger 消费新图片事件，调用外部打标服务并写回标签.
type Tagger struct {
	photos  *PhotoStore
	cfg     configs.TaggingConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewTagger 熔断参数沿用 circuit_breaker 配置.
func NewTagger(photos *PhotoStore, cfg configs.TaggingConfig, cb configs.CircuitBreakerConfig) *Tagger {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}

	return &Tagger{
		photos:  photos,
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(cb.Settings("tagger")),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Register 挂到 mq 路由，需在 Run 之前调用.
func (t *Tagger) Register(c *mq.Client) {
	c.Handle(TaggerHandlerName, queue.TopicPhotoStored, t.Handle)
}

// Handle 处理一条 smd.photo.stored. 打标失败只记日志并确认消息，补打标任务会再次发布.
func (t *Tagger) Handle(msg *message.Message) error {
	env, err := queue.ParsePhotoStored(msg)
	if err != nil {
		ctxPkg.Logger(msg.Context()).Warn().Err(err).Str("msg_id", msg.UUID).Msg("drop malformed photo event")
		return nil
	}

	_, err = t.Tag(msg.Context(), env.Payload)
	if err != nil {
		ctxPkg.Logger(msg.Context()).Warn().Err(err).Str("fingerprint", env.Payload.Fingerprint).Msg("tagging failed")
	}

	return nil
}

// Tag 跳过非图片与 svg，返回写回后的标签.
func (t *Tagger) Tag(ctx context.Context, p queue.PhotoStoredPayload) ([]string, error) {
	if !t.cfg.Enabled || t.cfg.Endpoint == "" {
		return nil, nil
	}

	if !IsImageFormat(p.Format) || p.Format == "svg" {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "tagger.annotate")
	defer span.End()

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := t.breaker.Execute(func() (any, error) {
		return t.annotate(ctx, p)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	tags := TagsFromAnnotation(out.(*Annotation), t.cfg.MinScore)

	return t.photos.ApplyTags(ctx, p.Fingerprint, tags, "tagger")
}

func (t *Tagger) annotate(ctx context.Context, p queue.PhotoStoredPayload) (*Annotation, error) {
	body, err := sonic.Marshal(annotateRequest{URL: p.URL, Fingerprint: p.Fingerprint, ContentType: p.ContentType})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tagger returned %d", resp.StatusCode)
	}

	var a Annotation
	if err := sonic.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode annotation: %w", err)
	}

	return &a, nil
}

// TagsFromAnnotation LIKELY 及以上的安全标记，加上分数高于 minScore 的标签.
func TagsFromAnnotation(a *Annotation, minScore float64) []string {
	if a == nil {
		return nil
	}

	var tags []string

	for _, key := range []string{"adult", "violence", "racy", "medical"} {
		switch strings.ToUpper(a.SafeSearch[key]) {
		case "LIKELY", "VERY_LIKELY":
			tags = append(tags, safeSearchFlags[key])
		}
	}

	for _, l := range a.Labels {
		if l.Score > minScore && l.Description != "" {
			tags = append(tags, strings.ToLower(l.Description))
		}
	}

	return tags
}
