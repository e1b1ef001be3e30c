package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fintally/tally/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// ParseSubmitJobRequest parses the message value as a batch submission
// produced by the extraction pipeline. All failures are permanent: the same
// bytes will not parse any better on redelivery.
func (m *IncomingMessage) ParseSubmitJobRequest() (*models.SubmitJobRequest, error) {
	var req models.SubmitJobRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return nil, Permanent(err)
	}
	if req.UserID == "" {
		// Fallback to header, the pipeline keys messages by user
		req.UserID = m.Headers["user_id"]
	}
	if req.UserID == "" {
		return nil, Permanent(fmt.Errorf("submission missing user_id"))
	}
	if len(req.Receipts) == 0 {
		return nil, Permanent(fmt.Errorf("submission has no receipts"))
	}
	return &req, nil
}
