package mq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer feeds every record of a topic to a Handler.
type Consumer struct {
	reader  Reader
	handler Handler
	backoff time.Duration
}

func NewConsumer(reader Reader, handler Handler) *Consumer {
	return &Consumer{reader: reader, handler: handler, backoff: time.Second}
}

// Start reads until ctx is done. Handler errors and panics are logged and
// the record is skipped; read errors are retried after a pause.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			zap.L().Error("kafka read failed", zap.Error(err))
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			zap.L().Error("kafka record skipped",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.HandleEvent(ctx, msg.Key, msg.Value)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
