package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeSuggestionPrompt = "suggestion:prompt"
	TaskTypeOutboundSend     = "notify:send"
	TaskTypeReminderRun      = "reminder:run"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type SuggestionPromptPayload struct {
	UserID        int64 `json:"user_id"`
	TransactionID int64 `json:"transaction_id"`
}

type OutboundSendPayload struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

type ReminderRunPayload struct {
	Day int `json:"day"`
}

func NewSuggestionPromptTask(userID, transactionID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(SuggestionPromptPayload{UserID: userID, TransactionID: transactionID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeSuggestionPrompt, payload, asynq.Queue(QueueLow)), nil
}

func NewOutboundSendTask(phone, body string) (*asynq.Task, error) {
	payload, err := json.Marshal(OutboundSendPayload{Phone: phone, Body: body})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeOutboundSend, payload, asynq.Queue(QueueDefault)), nil
}

func NewReminderRunTask(day int) (*asynq.Task, error) {
	payload, err := json.Marshal(ReminderRunPayload{Day: day})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeReminderRun, payload, asynq.Queue(QueueCritical)), nil
}
