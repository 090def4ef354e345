package services

import (
	"encoding/json"
	"log"
	"sync"

	"taskboard-app/taskboard/broker"
	"taskboard-app/taskboard/database"
	"taskboard-app/taskboard/models"
)

type SyncServiceInterface interface {
	CreateTask(db *database.Database, task models.Task) (models.Task, error)
	UpdateTask(db *database.Database, id string, updated models.Task) (models.Task, error)
	CompleteTask(db *database.Database, id string, completed bool, deviceID string) (models.Task, error)
	DeleteTask(db *database.Database, id string) (bool, error)
}

// SyncService performs a store mutation and fans the resulting change event
// out to subscribers as one logical unit. The mutex serializes the
// mutate-then-broadcast pair so events reach each subscriber in commit
// order. Delivery is fire-and-forget: the mutation result goes back to the
// caller no matter what happens to any subscriber.
type SyncService struct {
	mu          sync.Mutex
	tasks       TaskServiceInterface
	broadcaster *Broadcaster
}

func NewSyncService(tasks TaskServiceInterface, broadcaster *Broadcaster) *SyncService {
	return &SyncService{tasks: tasks, broadcaster: broadcaster}
}

func (s *SyncService) CreateTask(db *database.Database, task models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.tasks.CreateTask(db, task)
	if err != nil {
		return models.Task{}, err
	}

	s.broadcaster.BroadcastTaskCreated(created)
	publishTaskEvent(broker.TaskCreated, models.TaskEventPayload{Task: created})
	return created, nil
}

func (s *SyncService) UpdateTask(db *database.Database, id string, updated models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.tasks.UpdateTask(db, id, updated)
	if err != nil {
		return models.Task{}, err
	}

	s.broadcaster.BroadcastTaskUpdated(task)
	publishTaskEvent(broker.TaskUpdated, models.TaskEventPayload{Task: task})
	return task, nil
}

// CompleteTask toggles completion, leaving every other content field as
// stored. The store's update path keeps the completed/completed_at
// invariant and bumps the version.
func (s *SyncService) CompleteTask(db *database.Database, id string, completed bool, deviceID string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.tasks.GetTaskById(db, id)
	if err != nil {
		return models.Task{}, err
	}

	stored.Completed = completed
	if deviceID != "" {
		stored.DeviceID = deviceID
	}

	task, err := s.tasks.UpdateTask(db, id, stored)
	if err != nil {
		return models.Task{}, err
	}

	s.broadcaster.BroadcastTaskUpdated(task)
	publishTaskEvent(broker.TaskUpdated, models.TaskEventPayload{Task: task})
	return task, nil
}

// DeleteTask broadcasts only when a row was actually removed.
func (s *SyncService) DeleteTask(db *database.Database, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.tasks.DeleteTask(db, id)
	if err != nil || !deleted {
		return deleted, err
	}

	s.broadcaster.BroadcastTaskDeleted(id)
	publishTaskEvent(broker.TaskDeleted, models.TaskDeletedPayload{TaskID: id})
	return true, nil
}

// publishTaskEvent mirrors the event onto the message bus when a broker is
// connected. Like the websocket broadcast, failures never reach the caller.
func publishTaskEvent(event broker.EventType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error serializing %s event for broker: %v", event, err)
		return
	}
	broker.PublishMessage(broker.TaskEventsTopic, string(event), data)
}

var SyncServiceInstance SyncServiceInterface
