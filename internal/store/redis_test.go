package store

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeElement mirrors what appendScript pushes.
func encodeElement(seq int64, record []byte) string {
	return strconv.FormatInt(seq, 10) + ":" + string(record)
}

func TestRedisElementRoundTripKeepsPayloadBytes(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 10, 18, 9, 30, 0, 123456789, time.UTC)
	payload := "{ \"event\" : \"ping\",\n  \"note\": \"a:b\" }"

	record, err := json.Marshal(redisRecord{ID: id, ReceivedAt: at, Payload: payload})
	require.NoError(t, err)

	e, err := decodeElement(encodeElement(42, record))
	require.NoError(t, err)
	assert.Equal(t, int64(42), e.Seq)
	assert.Equal(t, id, e.ID)
	assert.True(t, at.Equal(e.ReceivedAt))
	assert.Equal(t, payload, string(e.Payload))
}

func TestRedisDecodeRejectsMalformedElements(t *testing.T) {
	for _, item := range []string{"no-separator", "x:{}", "7:not json"} {
		_, err := decodeElement(item)
		assert.Error(t, err, item)
	}
}
