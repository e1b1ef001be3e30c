package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmitJobRequest(t *testing.T) {
	t.Run("valid submission", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{"user_id":"user-1","receipts":[{"id":"r1","amount":"100.00"}],"transactions":[{"id":"t1","amount":"100.00"}]}`),
		}
		req, err := msg.ParseSubmitJobRequest()
		require.NoError(t, err)
		assert.Equal(t, "user-1", req.UserID)
		require.Len(t, req.Receipts, 1)
		assert.Equal(t, "r1", req.Receipts[0].ID)
	})

	t.Run("user id falls back to header", func(t *testing.T) {
		msg := &IncomingMessage{
			Value:   []byte(`{"receipts":[{"id":"r1","amount":"100.00"}]}`),
			Headers: map[string]string{"user_id": "header-user"},
		}
		req, err := msg.ParseSubmitJobRequest()
		require.NoError(t, err)
		assert.Equal(t, "header-user", req.UserID)
	})

	t.Run("missing user id", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{"receipts":[{"id":"r1","amount":"100.00"}]}`),
		}
		_, err := msg.ParseSubmitJobRequest()
		assert.ErrorContains(t, err, "user_id")

		// Redelivery cannot fix a parse failure, so the consumer must commit
		var perm *PermanentError
		assert.ErrorAs(t, err, &perm)
	})

	t.Run("no receipts", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{"user_id":"user-1","receipts":[]}`),
		}
		_, err := msg.ParseSubmitJobRequest()
		assert.ErrorContains(t, err, "no receipts")
	})

	t.Run("malformed json", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{not json`)}
		_, err := msg.ParseSubmitJobRequest()
		assert.Error(t, err)
	})
}
