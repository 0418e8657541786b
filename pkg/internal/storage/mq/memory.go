package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/staticmd/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 进程内 gochannel，同一实例同时作为 Publisher 与 Subscriber.
func memoryFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.Common.ChannelSize),
	}, logger)

	return ch, ch, nil
}

// NewMemory 创建 memory 类型的客户端，测试使用.
func NewMemory(ctx context.Context) (*Client, error) {
	return New(ctx, configs.MQConfig{
		Type:   configs.MQTypeMemory,
		Common: configs.MQCommonConfig{ChannelSize: configs.DefaultChannelSize},
	}, configs.MetricsConfig{})
}
