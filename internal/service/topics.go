package service

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Watermill topics carrying offloaded-call results back into the router's
// event stream.
const (
	TopicSyncCompleted  = "grace.sync.completed"
	TopicEntryProcessed = "grace.entry.processed"
)

type SyncCompletedPayload struct {
	UserID  string `json:"user_id"`
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

type EntryProcessedPayload struct {
	UserID string `json:"user_id"`
	Result string `json:"result"`
}

func publishJSON(publisher message.Publisher, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}
