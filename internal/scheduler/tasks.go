package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSyncLogs = "logs.sync"

const TaskReconcile = "pipeline.reconcile"

const TaskArchiveExports = "exports.archive"

type SyncLogsPayload struct {
	Medium string `json:"medium"`
}

type ReconcilePayload struct {
	Trigger string `json:"trigger"`
}

type ArchiveExportsPayload struct {
	Medium string `json:"medium"`
}

func NewSyncLogsTask(payload SyncLogsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncLogs, data), nil
}

func ParseSyncLogsPayload(task *asynq.Task) (SyncLogsPayload, error) {
	var payload SyncLogsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncLogsPayload{}, err
	}
	return payload, nil
}

func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, data), nil
}

func ParseReconcilePayload(task *asynq.Task) (ReconcilePayload, error) {
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReconcilePayload{}, err
	}
	return payload, nil
}

func NewArchiveExportsTask(payload ArchiveExportsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArchiveExports, data), nil
}

func ParseArchiveExportsPayload(task *asynq.Task) (ArchiveExportsPayload, error) {
	var payload ArchiveExportsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ArchiveExportsPayload{}, err
	}
	return payload, nil
}
