// Package mq consumes directory events from kafka and hands them to a
// Handler. Realtime fan-out has its own brokers in service/chat.
package mq

import "context"

// Handler processes one record. A returned error is logged and the record
// is skipped.
type Handler interface {
	HandleEvent(ctx context.Context, key, value []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, key, value []byte) error

func (f HandlerFunc) HandleEvent(ctx context.Context, key, value []byte) error {
	return f(ctx, key, value)
}
