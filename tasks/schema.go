// Package tasks binds the task resource to the owner-scoped engine: its
// table schema, payload validation and list filters.
package tasks

import (
	"net/url"

	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/kit/platform/errors"
	"github.com/taskdata/taskd/resource"
)

// Fields outside the schema pass validation and are dropped by the engine,
// so a payload carrying an owner or ID is accepted but never honored.
var createSchema = resource.MustValidator("task_create.json", `{
	"type": "object",
	"properties": {
		"title": {"type": "string", "minLength": 1, "maxLength": 255},
		"description": {"type": ["string", "null"], "maxLength": 1000},
		"completed": {"type": "boolean"}
	},
	"required": ["title"]
}`)

var updateSchema = resource.MustValidator("task_update.json", `{
	"type": "object",
	"properties": {
		"title": {"type": "string", "minLength": 1, "maxLength": 255},
		"description": {"type": ["string", "null"], "maxLength": 1000},
		"completed": {"type": "boolean"}
	}
}`)

// Schema describes the tasks table to the resource engine.
type Schema struct{}

var _ resource.Schema = Schema{}

func (Schema) Table() string {
	return "tasks"
}

func (Schema) Columns() []string {
	return []string{"id", "user_id", "title", "description", "completed", "created_at", "updated_at"}
}

func (Schema) IDColumn() string {
	return "id"
}

func (Schema) OwnerColumn() string {
	return "user_id"
}

func (Schema) UpdatableColumns() []string {
	return []string{"title", "description", "completed"}
}

func (Schema) FilterableColumns() []string {
	return []string{"completed"}
}

func (Schema) NewRecord() interface{} {
	return &taskd.Task{}
}

func (Schema) NewList() resource.RecordList {
	return &taskd.TaskList{}
}

// CreateValidator returns the payload schema for creating a task.
func CreateValidator() *resource.PayloadValidator {
	return createSchema
}

// UpdateValidator returns the payload schema for updating a task.
func UpdateValidator() *resource.PayloadValidator {
	return updateSchema
}

// ParseFilter reads the completed, limit and offset query parameters of the
// list endpoint.
func ParseFilter(query url.Values) (resource.Filter, error) {
	f, err := resource.ParseRangeFilter(query)
	if err != nil {
		return f, err
	}

	if raw := query.Get("completed"); raw != "" {
		switch raw {
		case "true":
			f.Where = map[string]interface{}{"completed": true}
		case "false":
			f.Where = map[string]interface{}{"completed": false}
		default:
			return f, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "completed must be true or false",
			}
		}
	}

	return f, nil
}
