package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	MatchID int64  `msgpack:"match_id"`
	Kind    string `msgpack:"kind"`
}

func TestMockSendMessage_RecordsPublishedMessage(t *testing.T) {
	m := NewMock("TEST")

	require.NoError(t, m.SendMessage(EventRatingsUpdated, &event{MatchID: 4, Kind: "summary"}))

	require.Len(t, m.SendMessageCalls, 1)
	call := m.SendMessageCalls[0]
	assert.Equal(t, EventRatingsUpdated, call.Topic)
	assert.Equal(t, map[string]string{"event": "ratings-updated"}, call.Attributes)

	var got event
	require.NoError(t, m.ProcessMessage(call.Payload, &got))
	assert.Equal(t, event{MatchID: 4, Kind: "summary"}, got)
	assert.Len(t, m.ProcessMessageCalls, 1)
}

func TestMockSendMessage_EncodeFailure(t *testing.T) {
	m := NewMock("TEST")

	err := m.SendMessage(EventRatingsUpdated, make(chan int))
	require.Error(t, err)
	assert.Empty(t, m.SendMessageCalls)
}
