// Package publisher defines the notification interface used when archives land.
package publisher

import "context"

// Publisher sends a JSON-encodable payload to a topic and returns the message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
