package taskd

import (
	"time"

	"github.com/taskdata/taskd/kit/platform/errors"
)

var (
	// ErrTaskNotFound covers both a task that does not exist and a task owned
	// by a different user. The two cases must stay indistinguishable to the
	// caller so that task IDs cannot be probed across users.
	ErrTaskNotFound = &errors.Error{
		Code: errors.ENotFound,
		Msg:  "task not found",
	}
)

// Task is a single todo item owned by exactly one user. The owner is assigned
// when the task is created and never changes afterwards.
type Task struct {
	ID          ID        `json:"id" db:"id"`
	UserID      ID        `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	Completed   bool      `json:"completed" db:"completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TaskList is a scannable slice of tasks.
type TaskList []*Task

// Len returns the number of tasks in the list.
func (l *TaskList) Len() int {
	return len(*l)
}
