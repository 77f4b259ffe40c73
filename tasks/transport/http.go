package transport

import (
	"github.com/go-chi/chi"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/jsonweb"
	"github.com/taskdata/taskd/resource"
	"github.com/taskdata/taskd/tasks"
	"go.uber.org/zap"
)

const prefixTasks = "/api"

// TaskHandler serves the task endpoints:
//
//	GET    /api/{userID}/tasks
//	POST   /api/{userID}/tasks
//	GET    /api/{userID}/tasks/{id}
//	PUT    /api/{userID}/tasks/{id}
//	DELETE /api/{userID}/tasks/{id}
//	PATCH  /api/{userID}/tasks/{id}/complete
type TaskHandler struct {
	chi.Router

	log *zap.Logger
}

// NewTaskHandler wires the task schema into the resource controller. svc is
// typically a resource.Engine over the task schema, wrapped in the logging
// middleware.
func NewTaskHandler(log *zap.Logger, svc resource.Service, parser *jsonweb.TokenParser) *TaskHandler {
	h := &TaskHandler{
		log: log,
	}

	h.Router = resource.NewController(log, resource.Descriptor{
		Name:            "tasks",
		Service:         svc,
		TokenParser:     parser,
		ErrNotFound:     taskd.ErrTaskNotFound,
		CreateValidator: tasks.CreateValidator(),
		UpdateValidator: tasks.UpdateValidator(),
		ParseFilter:     tasks.ParseFilter,
		ToggleField:     "completed",
	})

	return h
}

func (h *TaskHandler) Prefix() string {
	return prefixTasks
}
