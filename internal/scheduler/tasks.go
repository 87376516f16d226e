// Package scheduler runs the periodic triggers: the poll cycle every few
// minutes and the daily summary in the evening. Tasks flow through asynq so
// a crashed worker never loses a trigger.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskPollCycle = "intake.poll_cycle"

const TaskDailySummary = "intake.daily_summary"

type PollCyclePayload struct {
	TriggeredBy string `json:"triggeredBy"`
}

type DailySummaryPayload struct {
	Date string `json:"date"`
}

func NewPollCycleTask(payload PollCyclePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPollCycle, data), nil
}

func ParsePollCyclePayload(task *asynq.Task) (PollCyclePayload, error) {
	var payload PollCyclePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PollCyclePayload{}, err
	}
	return payload, nil
}

func NewDailySummaryTask(payload DailySummaryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailySummary, data), nil
}

func ParseDailySummaryPayload(task *asynq.Task) (DailySummaryPayload, error) {
	var payload DailySummaryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DailySummaryPayload{}, err
	}
	return payload, nil
}
