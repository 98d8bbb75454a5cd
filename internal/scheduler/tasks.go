package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"quote_assistant_backend/internal/inbound"
)

// TaskInboundMessage processes one inbound WhatsApp message.
const TaskInboundMessage = "whatsapp:inbound"

// QueueInbound is the asynq queue for inbound messages.
const QueueInbound = "inbound"

func NewInboundMessageTask(msg inbound.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInboundMessage, data), nil
}

func ParseInboundMessagePayload(task *asynq.Task) (inbound.Message, error) {
	var msg inbound.Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return inbound.Message{}, err
	}
	return msg, nil
}
