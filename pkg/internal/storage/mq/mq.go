// Package mq 提供基于 Watermill 的事件总线，封装 Publisher、Subscriber 与 Router.
//
// 支持的 MQ 类型：
//   - memory（gochannel，单实例部署与测试）
//   - nats（可选 JetStream）
//   - redis（pub/sub）
//
// 使用示例：
//
//	client, err := mq.New(ctx, cfg.MQ, cfg.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Handle("tagger", "smd.photo.stored", func(msg *message.Message) error {
//		return nil
//	})
//	go client.Run(ctx)
package mq

import (
	"context"
	"errors"
	"fmt"
	"sort"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/staticmd/pkg/configs"
	nlog "github.com/yeisme/staticmd/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的类型，按名称排序.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 封装 watermill Publisher、Subscriber 与 Router.
type Client struct {
	kind       configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	closeFunc  func() // 关闭独立的 metrics 服务
}

// New 按配置创建消息队列客户端.
func New(ctx context.Context, cfg configs.MQConfig, metricsCfg configs.MetricsConfig) (*Client, error) {
	kind := cfg.Type
	if kind == "" {
		kind = configs.MQTypeMemory
	}

	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", kind)
	}

	logger := NewLogger(nlog.Logger())

	pub, sub, err := factory(ctx, &cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", kind, err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	c := &Client{kind: kind, publisher: pub, subscriber: sub, router: router}

	if metricsCfg.Enabled && metricsCfg.MQEndpoint != "" {
		registry, closeMetricsServer := metrics.CreateRegistryAndServeHTTP(metricsCfg.MQEndpoint)
		c.closeFunc = closeMetricsServer

		builder := metrics.NewPrometheusMetricsBuilder(registry, configs.AppName, "mq")
		builder.AddPrometheusRouterMetrics(router)

		if c.publisher, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if c.subscriber, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}

		nlog.Logger().Info().Str("endpoint", metricsCfg.MQEndpoint).Msg("MQ metrics enabled")
	}

	nlog.Logger().Info().Str("type", string(kind)).Msg("MQ 已初始化")

	return c, nil
}

// Type 返回后端类型.
func (c *Client) Type() configs.MQType { return c.kind }

// Publish 发布一条或多条消息.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return errors.New("mq publisher not initialized")
	}

	for _, m := range msgs {
		m.SetContext(ctx)
	}

	return c.publisher.Publish(topic, msgs...)
}

// Subscribe 直接订阅主题，调用方负责 Ack.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, errors.New("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// Handle 在 Router 上注册消费者，须在 Run 之前调用.
// 返回 error 时消息被 Nack 并重新投递.
func (c *Client) Handle(name, topic string, h message.NoPublishHandlerFunc) {
	c.router.AddNoPublisherHandler(name, topic, c.subscriber, h)
}

// Run 启动 Router，阻塞直到 ctx 取消或 Close.
func (c *Client) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running 在 Router 启动完成后关闭.
func (c *Client) Running() chan struct{} {
	return c.router.Running()
}

// HealthCheck 发布一条探测消息.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Publish(ctx, "smd.health", message.NewMessage(watermill.NewUUID(), []byte("ping")))
}

// Close 关闭资源.
func (c *Client) Close() error {
	var errs []error

	if c.router != nil {
		errs = append(errs, c.router.Close())
	}

	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}

	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}

	if c.closeFunc != nil {
		c.closeFunc()
	}

	return errors.Join(errs...)
}
