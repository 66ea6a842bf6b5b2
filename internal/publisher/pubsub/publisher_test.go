package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRequiresTopic(t *testing.T) {
	t.Parallel()

	var p *Publisher
	_, err := p.Publish(context.Background(), "market_report.ready", map[string]string{})
	assert.Error(t, err)
	assert.NoError(t, p.Close())

	_, err = New(nil).Publish(context.Background(), "market_report.ready", nil)
	assert.Error(t, err)
}

func TestOpenValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "", "topic")
	assert.Error(t, err)
	_, err = Open(context.Background(), "project", "")
	assert.Error(t, err)
}
