package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  string
		wantOK  bool
	}{
		{
			name:    "structured session_id field",
			payload: `{"content":[{"session_id":"session_12_34"}]}`,
			wantID:  "session_12_34",
			wantOK:  true,
		},
		{
			name:    "structured field wins over embedded text",
			payload: `{"content":[{"session_id":"session_1_1","text":"see session_9_9"}]}`,
			wantID:  "session_1_1",
			wantOK:  true,
		},
		{
			name:    "plain string content with embedded id",
			payload: `{"content":["Analysis session session_42_7 started for /tmp/sample.bin"]}`,
			wantID:  "session_42_7",
			wantOK:  true,
		},
		{
			name:    "text content item with embedded id",
			payload: `{"content":[{"type":"text","text":"Session session_3_14 is live"}]}`,
			wantID:  "session_3_14",
			wantOK:  true,
		},
		{
			name:    "only the first content item is consulted",
			payload: `{"content":["nothing here",{"session_id":"session_5_5"}]}`,
			wantOK:  false,
		},
		{
			name:    "text without a matching pattern",
			payload: `{"content":["session started but id withheld"]}`,
			wantOK:  false,
		},
		{
			name:    "partial pattern does not match",
			payload: `{"content":["session_12 is not a full id"]}`,
			wantOK:  false,
		},
		{
			name:    "empty content list",
			payload: `{"content":[]}`,
			wantOK:  false,
		},
		{
			name:    "no content member",
			payload: `{"message":"ok"}`,
			wantOK:  false,
		},
		{
			name:    "empty payload",
			payload: ``,
			wantOK:  false,
		},
		{
			name:    "non-object payload",
			payload: `"just a string"`,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, ok := Extract(json.RawMessage(tt.payload))
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, sess.ID)
			}
		})
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	payload := json.RawMessage(`{"content":[{"session_id":"session_8_8"}]}`)

	first, ok1 := Extract(payload)
	second, ok2 := Extract(payload)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestExtractTakesFirstTextMatch(t *testing.T) {
	payload := json.RawMessage(`{"content":["ids: session_1_2 then session_3_4"]}`)

	sess, ok := Extract(payload)
	require.True(t, ok)
	assert.Equal(t, "session_1_2", sess.ID)
}
