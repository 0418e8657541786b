package mq_test

import (
	"context"
	"testing"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/storage/mq"
)

func TestRegisteredTypes(t *testing.T) {
	types := mq.GetRegisteredMQTypes()
	assert.Contains(t, types, configs.MQTypeMemory)
	assert.Contains(t, types, configs.MQTypeNATS)
	assert.Contains(t, types, configs.MQTypeRedis)
}

func TestMemoryRouterDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := mq.NewMemory(ctx)
	require.NoError(t, err)

	defer c.Close()

	got := make(chan string, 1)

	c.Handle("test", "smd.test", func(msg *message.Message) error {
		got <- string(msg.Payload)
		return nil
	})

	go func() { _ = c.Run(ctx) }()

	<-c.Running()

	require.NoError(t, c.Publish(ctx, "smd.test", message.NewMessage(watermill.NewUUID(), []byte("hello"))))

	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestUnsupportedType(t *testing.T) {
	_, err := mq.New(context.Background(), configs.MQConfig{Type: "kafka"}, configs.MetricsConfig{})
	assert.Error(t, err)
}
