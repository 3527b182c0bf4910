package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maintenance task kinds. Each task triggers a full ledger rewrite,
// so tasks are consumed one at a time from a single queue.
const (
	TaskPurgeOwner      = "purge_owner"
	TaskPruneDuplicates = "prune_duplicates"
)

// MaintenanceTask represents a queued ledger maintenance operation.
// PurgeOwner removes every row belonging to Owner; PruneDuplicates
// rewrites the ledger with duplicate rows collapsed.
type MaintenanceTask struct {
	Kind      string    `json:"kind"`
	Owner     string    `json:"owner,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPurgeOwnerTask creates a task to remove all rows for an owner
func NewPurgeOwnerTask(owner string) *MaintenanceTask {
	return &MaintenanceTask{
		Kind:      TaskPurgeOwner,
		Owner:     owner,
		Timestamp: time.Now(),
	}
}

// NewPruneDuplicatesTask creates a task to collapse duplicate ledger rows
func NewPruneDuplicatesTask() *MaintenanceTask {
	return &MaintenanceTask{
		Kind:      TaskPruneDuplicates,
		Timestamp: time.Now(),
	}
}

// Validate checks the task is well formed before it is handled
func (t *MaintenanceTask) Validate() error {
	switch t.Kind {
	case TaskPurgeOwner:
		if t.Owner == "" {
			return fmt.Errorf("purge task missing owner")
		}
	case TaskPruneDuplicates:
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	return nil
}

// ToJSON converts the task to JSON bytes
func (t *MaintenanceTask) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// MaintenanceTaskFromJSON creates a task from JSON bytes
func MaintenanceTaskFromJSON(data []byte) (*MaintenanceTask, error) {
	var task MaintenanceTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
