package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsJSONEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "crawl.archived", map[string]int{"page_count": 3})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "market_report.ready", map[string]string{"area_name": "愛知県 天白区"})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	require.Len(t, pub.Events(""), 2)

	ready := pub.Events("market_report.ready")
	require.Len(t, ready, 1)
	var body map[string]string
	require.NoError(t, json.Unmarshal(ready[0].Data, &body))
	assert.Equal(t, "愛知県 天白区", body["area_name"])
}

func TestPublisherRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "crawl.archived", make(chan int))
	require.Error(t, err)
	assert.Empty(t, pub.Events(""))
}
