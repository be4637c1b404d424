package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/akave-ai/hooklog/internal/metrics"
	"github.com/akave-ai/hooklog/internal/model"
)

func TestHub_PublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		h.Publish(model.WebhookLogEntry{Seq: int64(i + 1)})
	}
	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, int64(1), (<-ch).Seq)
}

func TestHub_CancelUnsubscribesOnce(t *testing.T) {
	m := metrics.New()
	h := NewHub(m)

	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(m.TailSubscribers), 0)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, h.Len())
	assert.InDelta(t, 0, testutil.ToFloat64(m.TailSubscribers), 0)

	h.Publish(model.WebhookLogEntry{})
}

func TestHub_CloseDisconnectsEveryone(t *testing.T) {
	h := NewHub(nil)
	a, cancelA := h.Subscribe()
	b, _ := h.Subscribe()

	h.Close()
	_, okA := <-a
	_, okB := <-b
	assert.False(t, okA)
	assert.False(t, okB)
	cancelA()

	late, _ := h.Subscribe()
	_, ok := <-late
	assert.False(t, ok)
}

func TestHub_DeliversInPublishOrderNotSeqOrder(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe()
	defer cancel()

	for _, seq := range []int64{3, 1, 2} {
		h.Publish(model.WebhookLogEntry{Seq: seq})
	}
	var got []int64
	for i := 0; i < 3; i++ {
		got = append(got, (<-ch).Seq)
	}
	assert.Equal(t, []int64{3, 1, 2}, got)
}
