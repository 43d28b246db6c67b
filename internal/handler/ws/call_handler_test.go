package ws

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"wavelink-backend/internal/domain"
	"wavelink-backend/internal/service/call"
)

func TestFrameDecoding(t *testing.T) {
	to := uuid.New()
	callID := uuid.New()

	raw := `{
		"type": "call:initiate",
		"to": "` + to.String() + `",
		"call_id": "` + callID.String() + `",
		"call_type": "video",
		"offer": {"sdp": "v=0"}
	}`

	var f frame
	assert.NoError(t, json.Unmarshal([]byte(raw), &f))
	assert.Equal(t, call.EventInitiate, f.Type)
	assert.Equal(t, to, f.To)
	assert.Equal(t, callID, f.CallID)
	assert.Equal(t, domain.CallTypeVideo, f.CallType)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(f.Offer))
}

func TestFrameDecoding_StartedCarriesEpochMillis(t *testing.T) {
	raw := `{
		"type": "call:started",
		"call_id": "` + uuid.New().String() + `",
		"started_at": 1724800000000
	}`

	var f frame
	assert.NoError(t, json.Unmarshal([]byte(raw), &f))
	assert.Equal(t, call.EventStarted, f.Type)
	assert.Equal(t, int64(1724800000000), f.StartedAt)
}

func TestFrameDecoding_MalformedJSON(t *testing.T) {
	var f frame
	assert.Error(t, json.Unmarshal([]byte(`{"type": "call:answer",`), &f))
}

func TestClientDeliver_NeverBlocks(t *testing.T) {
	client := &Client{
		send:     make(chan []byte, 2),
		identity: uuid.New(),
	}

	// Nobody draining the channel: extra frames are dropped, not queued
	for i := 0; i < 10; i++ {
		client.Deliver([]byte(`{"type":"presence:online"}`))
	}

	assert.Len(t, client.send, 2)
}

func TestClientDeliver_AfterCloseIsNoOp(t *testing.T) {
	client := &Client{
		send:     make(chan []byte, 2),
		identity: uuid.New(),
	}

	client.closeSend()

	assert.NotPanics(t, func() {
		client.Deliver([]byte(`{"type":"call:ended"}`))
	})
}
