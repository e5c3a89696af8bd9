package queue

import "context"

// MessageQueue is the broker abstraction side-channel events travel on
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Ping(ctx context.Context) error
	Close() error
}
